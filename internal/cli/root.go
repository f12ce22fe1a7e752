// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/flaskchat-tui/internal/ui/chat"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	baseURL    string
	verbose    bool
	jsonOut    bool
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "flaskchat",
		Short: "Terminal client for the FlaskChat API",
		Long: `flaskchat is a terminal client for FlaskChat backends.
Run it without arguments for the full-screen chat interface, or use the
subcommands to script conversations and chat in line mode.`,
		Example: `
# Run the chat interface
flaskchat

# Talk to a backend on another host
flaskchat --url http://10.0.0.5:5000

# Ask a one-off question in conversation 3
flaskchat ask 3 "¿Qué es una goroutine?"

# Save conversation 3 as a web page
flaskchat export 3 --format html

# Chat in line mode
flaskchat chat

# Run the local development backend
flaskchat serve --addr 127.0.0.1:5000
  `,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, g)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default ~/.flaskchat/config.toml)")
	pf.StringVar(&g.baseURL, "url", "", "backend base URL, overrides backend.base_url")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "mirror logs to stderr")
	pf.BoolVar(&g.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(
		newConversationsCmd(g),
		newHistoryCmd(g),
		newAskCmd(g),
		newNewCmd(g),
		newRenameCmd(g),
		newDeleteCmd(g),
		newModelsCmd(g),
		newModelCmd(g),
		newContextCmd(g),
		newExportCmd(g),
		newChatCmd(g),
		newServeCmd(g),
		newConfigCmd(g),
		newVersionCmd(g),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

// =============================================================================
// TUI
// =============================================================================

// runTUI starts the full-screen chat client. The logger never writes to
// stderr here because the program owns the terminal.
func runTUI(cmd *cobra.Command, g *globalFlags) error {
	if err := requireTTY("run the chat interface", cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("%w; use 'flaskchat chat' for line mode", err)
	}

	bridge := chat.NewBridge()
	s, err := openSession(cmd, g, sessionOptions{onChange: bridge.OnChange, quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()

	opts := chat.OptionsFromConfig(s.cfg)
	opts.Logger = s.log
	opts.Context = cmd.Context()
	opts.ConfigPath = s.configPath

	s.log.Info("starting tui", "base_url", s.cfg.Backend.BaseURL, "version", Version)
	p := tea.NewProgram(
		chat.New(s.ctl, bridge, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		s.log.Error("tui run error", "err", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
