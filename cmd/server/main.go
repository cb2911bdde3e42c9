// Package main is the entry point for the blog server.
//
// The main package stays minimal:
// 1. Read configuration from the environment
// 2. Create the logger
// 3. Start the server
//
// All actual logic lives in internal/.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/blog-platform/internal/config"
	"github.com/sakif/blog-platform/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// See internal/config for every variable and its default.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Level comes from LOG_LEVEL; Validate already rejected bad values.
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// === 3. AUTH SECRET ===
	// JWT_SECRET should be a long random string, e.g.
	//   JWT_SECRET=$(openssl rand -hex 32)
	generated, err := cfg.EnsureSecret()
	if err != nil {
		logger.Error("failed to generate JWT secret", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if generated {
		logger.Warn("JWT_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
