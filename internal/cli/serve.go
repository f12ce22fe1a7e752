// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/flaskchat-tui/internal/config"
	"github.com/jeranaias/flaskchat-tui/internal/logging"
	"github.com/jeranaias/flaskchat-tui/internal/ollama"
	"github.com/jeranaias/flaskchat-tui/internal/server"
	"github.com/jeranaias/flaskchat-tui/internal/storage"
)

// ollamaProbeTimeout bounds the startup check of the Ollama server.
const ollamaProbeTimeout = 5 * time.Second

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		addr      string
		dbPath    string
		ollamaURL string
		echo      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local development backend",
		Long: `Run a FlaskChat-compatible backend backed by SQLite.
Replies come from Ollama when server.ollama_url is set and reachable,
otherwise an echo responder answers.`,
		Example: `  flaskchat serve
  flaskchat serve --addr 127.0.0.1:5050 --db /tmp/chat.db
  flaskchat serve --ollama http://127.0.0.1:11434`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath != "" {
				cfg.Server.DBPath = dbPath
			}
			if ollamaURL != "" {
				cfg.Server.OllamaURL = ollamaURL
			}
			if echo {
				cfg.Server.OllamaURL = ""
			}

			// The server has no TUI to protect, so logs always reach stderr.
			logger, closer, err := logging.Setup(logging.Options{
				Path:       cfg.Log.Path,
				Level:      cfg.Log.Level,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				Stderr:     true,
			})
			if err != nil {
				return err
			}
			defer closer.Close()
			logger = logger.With("component", "server")

			return runServer(cmd.Context(), cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	f.StringVar(&dbPath, "db", "", "SQLite database path, overrides server.db_path")
	f.StringVar(&ollamaURL, "ollama", "", "Ollama base URL, overrides server.ollama_url")
	f.BoolVar(&echo, "echo", false, "always answer with the echo responder")
	return cmd
}

// runServer opens the database and serves until ctx is cancelled.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := storage.Open(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	responder := pickResponder(ctx, cfg.Server, logger)
	srv := server.New(db, responder, server.OptionsFromConfig(cfg.Server), logger)

	logger.Info("serving",
		"addr", cfg.Server.Addr,
		"db", cfg.Server.DBPath,
		"responder", responder.Name(),
		"allowed_models", cfg.Server.AllowedModels)
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// pickResponder returns the Ollama responder when it is configured and
// answers, the echo responder otherwise.
func pickResponder(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) server.Responder {
	if cfg.OllamaURL == "" {
		return server.EchoResponder{}
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.OllamaURL,
		DefaultModel: cfg.OllamaModel,
	})
	probeCtx, cancel := context.WithTimeout(ctx, ollamaProbeTimeout)
	defer cancel()

	responder, err := server.NewOllamaResponder(probeCtx, client)
	if err != nil {
		logger.Warn("ollama unavailable, using echo responder", "url", cfg.OllamaURL, "err", err)
		return server.EchoResponder{}
	}
	logger.Info("ollama connected", "url", cfg.OllamaURL, "installed", responder.Installed())
	return responder
}
