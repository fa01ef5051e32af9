// Package main is the entry point for the media gallery server.
//
// main's job is deliberately small:
//  1. Build the logger
//  2. Load configuration from the environment
//  3. Construct the external collaborators (S3 blob store, SMTP mailer)
//  4. Hand everything to internal/server and block until shutdown
//
// All actual logic lives in the internal packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/media-gallery/internal/config"
	"github.com/sakif/media-gallery/internal/mailer"
	"github.com/sakif/media-gallery/internal/server"
	"github.com/sakif/media-gallery/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure the SQLite data directory exists before opening the file.
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Media blobs live in object storage; without a bucket the gallery
	// cannot accept uploads, so this is a startup failure.
	if cfg.S3.Bucket == "" {
		logger.Error("S3_BUCKET is required")
		os.Exit(1)
	}
	blobs, err := storage.NewS3(context.Background(), cfg.S3)
	if err != nil {
		logger.Error("failed to initialise object storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The SMTP relay is optional in development: without one, OTP codes
	// are written to the log instead of emailed.
	var mail mailer.Mailer
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTP(cfg.SMTP)
	} else {
		logger.Warn("SMTP_HOST not set, OTP codes will be logged instead of emailed")
		mail = mailer.NewLog(logger)
	}

	srv, err := server.New(cfg, blobs, mail, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
