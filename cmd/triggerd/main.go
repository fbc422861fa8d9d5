// Package main implements triggerd, a service that keeps a content manifest
// of a directory up to date. Filesystem changes and API calls trigger a
// coalescing worker, so any burst of changes results in at most one rebuild
// in flight and one queued behind it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/triggerworker/internal/api/middleware"
	"github.com/phrazzld/triggerworker/internal/config"
)

func main() {
	configDir := flag.String("config-dir", ".", "directory searched for config.yaml")
	issueFor := flag.String("issue-token", "", "print an API bearer token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens printed by -issue-token")
	flag.Parse()

	cfg, err := loadAppConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if *issueFor != "" {
		if err := issueToken(cfg, *issueFor, *tokenTTL, os.Stdout); err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		return
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		logger.Error("Failed to listen", "port", cfg.Server.Port, "error", err)
		os.Exit(1)
	}

	if err := app.run(ctx, ln); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

// issueToken writes a bearer token for subject to w.
func issueToken(cfg *config.Config, subject string, ttl time.Duration, w io.Writer) error {
	if !cfg.AuthEnabled() {
		return fmt.Errorf("auth.token_secret is not configured")
	}

	auth, err := middleware.NewTokenAuth(cfg.Auth.TokenSecret)
	if err != nil {
		return err
	}

	token, err := auth.IssueToken(subject, ttl)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, token)
	return err
}
