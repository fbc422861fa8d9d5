package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Worker WorkerConfig `mapstructure:"worker" validate:"required"`
	Watch  WatchConfig  `mapstructure:"watch" validate:"required"`
	Auth   AuthConfig   `mapstructure:"auth"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// WorkerConfig controls the coalescing manifest worker.
type WorkerConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	// ShutdownTimeout bounds the wait for the worker to terminate on exit.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// IdleTimeout bounds POST /api/idle requests.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
}

// WatchConfig describes the watched source tree and the derived manifest.
type WatchConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SourceDir    string `mapstructure:"source_dir" validate:"required"`
	ManifestPath string `mapstructure:"manifest_path" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
// An empty TokenSecret disables bearer authentication on the API.
type AuthConfig struct {
	TokenSecret string `mapstructure:"token_secret" validate:"omitempty,min=32"`
}

// AuthEnabled reports whether API requests must carry a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.Auth.TokenSecret != ""
}
