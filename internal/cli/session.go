// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/flaskchat-tui/internal/api"
	"github.com/jeranaias/flaskchat-tui/internal/config"
	"github.com/jeranaias/flaskchat-tui/internal/controller"
	"github.com/jeranaias/flaskchat-tui/internal/logging"
	"github.com/jeranaias/flaskchat-tui/internal/render"
	"github.com/jeranaias/flaskchat-tui/internal/ui/styles"
)

// =============================================================================
// CONFIG
// =============================================================================

// loadConfig loads the config named by --config, or the default files, and
// applies --url. A broken default file is reported and defaults are used.
// The returned path is the file the config came from, if any.
func loadConfig(cmd *cobra.Command, g *globalFlags) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFromPath(g.configPath)
		if err != nil {
			return nil, "", err
		}
		path = g.configPath
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, "", err
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v (using defaults)\n", WarningStyle.Render("Warning:"), err)
		}
		if p, perr := config.ConfigPathTOML(); perr == nil {
			if _, serr := os.Stat(p); serr == nil {
				path = p
			}
		}
	}

	if g.baseURL != "" {
		cfg.Backend.BaseURL = strings.TrimRight(g.baseURL, "/")
	}
	config.SetGlobal(cfg)
	return cfg, path, nil
}

// =============================================================================
// SESSION
// =============================================================================

// sessionOptions tune openSession.
type sessionOptions struct {
	// onChange is passed to the controller.
	onChange func(controller.Event)
	// quiet keeps logs off stderr even under --verbose.
	quiet bool
}

// session bundles what a client command needs: config, logger, backend
// client and controller, plus the output writer replies are printed to.
type session struct {
	cfg        *config.Config
	configPath string
	log        *slog.Logger
	closer     io.Closer
	client     *api.Client
	ctl        *controller.Controller

	out     io.Writer
	errOut  io.Writer
	jsonOut bool
	md      render.Markdown
	width   int
}

// openSession loads the config and wires logger, client and controller.
func openSession(cmd *cobra.Command, g *globalFlags, opts sessionOptions) (*session, error) {
	cfg, path, err := loadConfig(cmd, g)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.Setup(logging.Options{
		Path:       cfg.Log.Path,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Stderr:     g.verbose && !opts.quiet,
	})
	if err != nil {
		return nil, err
	}
	logger = logger.With("command", cmd.Name())

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout(),
	})
	ctl := controller.New(client, controller.Options{
		Logger:         logger,
		DefaultName:    cfg.Chat.DefaultName,
		FallbackModels: cfg.Chat.FallbackModels,
		OnChange:       opts.onChange,
	})

	out := cmd.OutOrStdout()
	var md render.Markdown = render.Plain{}
	if isTerminal(out) && ColorsEnabled() {
		md = render.NewMarkdown(cfg.UI.Markdown, styles.NewTheme(cfg.UI.Theme))
	}

	return &session{
		cfg:        cfg,
		configPath: path,
		log:        logger,
		closer:     closer,
		client:     client,
		ctl:        ctl,
		out:        out,
		errOut:     cmd.ErrOrStderr(),
		jsonOut:    g.jsonOut,
		md:         md,
		width:      terminalWidth(out),
	}, nil
}

// Close flushes the log file.
func (s *session) Close() error {
	return s.closer.Close()
}

// open loads the conversation list and, when id is set, makes it active.
func (s *session) open(ctx context.Context, id string) error {
	err := s.ctl.Load(ctx)
	var nerr *controller.NetworkError
	if errors.As(err, &nerr) && nerr.ConversationID != "" && nerr.ConversationID != id {
		// Another conversation's history failed; the list is usable.
		s.log.Debug("ignoring history failure", "conversation_id", nerr.ConversationID)
		err = nil
	}
	if err != nil {
		return describe(err)
	}
	if id == "" {
		return nil
	}
	return describe(s.ctl.SelectConversation(ctx, id))
}

// describe turns controller and client errors into messages for the
// terminal. Unknown errors pass through unchanged.
func describe(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, controller.ErrUnknownConversation):
		return errors.New("no such conversation")
	case errors.Is(err, controller.ErrBusy):
		return errors.New("conversation is busy, try again")
	case api.IsUnreachable(err):
		return fmt.Errorf("backend unreachable: %w", err)
	case api.IsTimeout(err):
		return fmt.Errorf("backend timed out: %w", err)
	default:
		return err
	}
}
