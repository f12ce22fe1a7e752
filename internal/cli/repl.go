// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/flaskchat-tui/internal/config"
	"github.com/jeranaias/flaskchat-tui/internal/controller"
	"github.com/jeranaias/flaskchat-tui/internal/util"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of input per prompt.
type lineReader interface {
	ReadInput(prompt string) (string, error)
}

// ChatCLI provides input history and line editing for line-mode chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads the saved input history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with the given prompt. Non-blank lines are added
// to the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes the input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [id]",
		Short: "Chat in line mode",
		Long: `Chat in line mode with readline-style editing and input history.
Type /help inside the chat for the available commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWith(g, func(cmd *cobra.Command, s *session, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			if err := s.open(cmd.Context(), id); err != nil {
				return err
			}

			input := NewChatCLI()
			defer input.Close()
			return runREPL(cmd.Context(), s, input)
		}),
	}
}

// =============================================================================
// REPL
// =============================================================================

// repl holds the line-mode chat state.
type repl struct {
	s  *session
	in lineReader
}

// runREPL reads lines until /quit, EOF or Ctrl+C.
func runREPL(ctx context.Context, s *session, in lineReader) error {
	r := &repl{s: s, in: in}
	r.printWelcome()

	for ctx.Err() == nil {
		input, err := in.ReadInput(r.prompt())
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) and io.EOF (Ctrl+D) both end
			// the session.
			fmt.Fprintln(s.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		quit, err := r.handle(ctx, input)
		if err != nil {
			fmt.Fprintf(s.errOut, "%s %v\n", ErrorStyle.Render("[Error]"), describe(err))
		}
		if quit {
			return nil
		}
	}
	return nil
}

// prompt shows the active conversation's name.
func (r *repl) prompt() string {
	snap := r.s.ctl.Snapshot()
	if !snap.HasActive {
		return PromptStyle.Render("flaskchat> ")
	}
	return PromptStyle.Render(fmt.Sprintf("flaskchat[%s]> ", util.TruncateWidth(snap.Active.DisplayName(), 24)))
}

// handle runs one line of input. It returns true when the session should
// end.
func (r *repl) handle(ctx context.Context, input string) (bool, error) {
	if strings.HasPrefix(input, "/") {
		return r.command(ctx, input)
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return true, nil
	}

	if err := r.s.ctl.SendMessage(ctx, input); err != nil {
		if errors.Is(err, controller.ErrNoActiveConversation) {
			return false, errors.New("no conversation selected; use /new or /use <id>")
		}
		return false, err
	}
	r.s.printReply(lastReply(r.s.ctl.Snapshot().Messages))
	return false, nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command processes a slash command.
func (r *repl) command(ctx context.Context, input string) (bool, error) {
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	ctl := r.s.ctl

	switch strings.ToLower(name) {
	case "/help", "/h", "/?", "/":
		r.printHelp()

	case "/quit", "/q", "/exit":
		return true, nil

	case "/list", "/ls":
		snap := ctl.Snapshot()
		printConversations(r.s.out, snap.Conversations, snap.ActiveID)

	case "/new":
		conv, err := ctl.CreateConversation(ctx)
		if err != nil {
			return false, err
		}
		if rest != "" && rest != conv.Name {
			if err := ctl.RenameConversation(ctx, conv.ID, rest); err != nil {
				return false, err
			}
		}
		r.s.success("[Created conversation %s]", conv.ID)

	case "/use":
		if rest == "" {
			return false, errors.New("usage: /use <id>")
		}
		if err := ctl.SelectConversation(ctx, rest); err != nil {
			return false, err
		}
		r.printHistory()

	case "/history":
		r.printHistory()

	case "/rename":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		if err := ctl.RenameConversation(ctx, id, rest); err != nil {
			return false, err
		}
		r.s.success("[Renamed]")

	case "/models":
		for _, o := range ctl.Models() {
			fmt.Fprintf(r.s.out, "  %s  %s\n", o.Label, DimStyle.Render(o.ID))
		}

	case "/model", "/m":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		if rest == "" {
			fmt.Fprintf(r.s.out, "Current model: %s\n", ctl.Controls(id).ModelID)
			return false, nil
		}
		if err := ctl.SetModel(ctx, id, rest); err != nil {
			return false, err
		}
		r.s.success("[Model: %s]", ctl.Controls(id).ModelID)

	case "/context":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		if err := ctl.ToggleContext(ctx, id, !ctl.Controls(id).ContextEnabled); err != nil {
			return false, err
		}
		fmt.Fprintf(r.s.out, "Context: %s\n", onOff(ctl.Controls(id).ContextEnabled))

	case "/delete":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		conv, _ := ctl.Conversations().Get(id)
		answer, err := r.in.ReadInput(fmt.Sprintf("Delete %q? [y/N]: ", conv.DisplayName()))
		if err != nil || !isYes(answer) {
			fmt.Fprintln(r.s.out, DimStyle.Render("Cancelled."))
			return false, nil
		}
		if err := ctl.DeleteConversation(ctx, id); err != nil {
			return false, err
		}
		r.s.success("[Deleted conversation %s]", id)

	default:
		return false, fmt.Errorf("unknown command: %s (type /help for commands)", name)
	}
	return false, nil
}

// activeID returns the active conversation or an error telling the user how
// to pick one.
func (r *repl) activeID() (string, error) {
	if id := r.s.ctl.Conversations().ActiveID(); id != "" {
		return id, nil
	}
	return "", errors.New("no conversation selected; use /new or /use <id>")
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "s", "si", "sí":
		return true
	}
	return false
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) printWelcome() {
	out := r.s.out
	fmt.Fprintln(out, TitleStyle.Render("FlaskChat")+" "+DimStyle.Render(r.s.cfg.Backend.BaseURL))
	fmt.Fprintln(out, DimStyle.Render("Type /help for commands, /quit to leave."))
	fmt.Fprintln(out, RenderSeparator(min(r.s.width, 70)))
}

func (r *repl) printHelp() {
	lines := [][2]string{
		{"/list", "list conversations"},
		{"/new [name]", "create a conversation"},
		{"/use <id>", "switch conversation"},
		{"/history", "show the current conversation"},
		{"/rename <name>", "rename the current conversation"},
		{"/models", "list models"},
		{"/model [model]", "show or change the model"},
		{"/context", "toggle sending history"},
		{"/delete", "delete the current conversation"},
		{"/quit", "leave"},
	}
	for _, l := range lines {
		fmt.Fprintf(r.s.out, "  %s %s\n", util.PadWidth(l[0], 16), DimStyle.Render(l[1]))
	}
}

func (r *repl) printHistory() {
	snap := r.s.ctl.Snapshot()
	if !snap.HasActive {
		return
	}
	fmt.Fprintln(r.s.out, TitleStyle.Render(snap.Active.DisplayName()))
	for _, m := range snap.Messages {
		r.s.printMessage(m)
	}
}
