package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/triggerworker/internal/config"
)

// loadAppConfig loads the application configuration from environment variables or config file.
// Returns the loaded config and any loading error.
func loadAppConfig(configPaths ...string) (*config.Config, error) {
	cfg, err := config.Load(configPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// logConfig records the effective configuration without secrets.
func logConfig(logger *slog.Logger, cfg *config.Config) {
	logger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker", cfg.Worker.Name,
		"source_dir", cfg.Watch.SourceDir,
		"manifest_path", cfg.Watch.ManifestPath,
		"watch_enabled", cfg.Watch.Enabled)

	logger.Debug("Auth configuration", "token_secret_present", cfg.AuthEnabled())
}
