// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/flaskchat-tui/internal/controller"
	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// runWith opens a session for the command and closes it afterwards.
func runWith(g *globalFlags, fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, g, sessionOptions{})
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, s, args)
	}
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func newConversationsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls", "list"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: runWith(g, func(cmd *cobra.Command, s *session, _ []string) error {
			if err := s.open(cmd.Context(), ""); err != nil {
				return err
			}
			snap := s.ctl.Snapshot()
			data := make([]conversationData, len(snap.Conversations))
			for i, c := range snap.Conversations {
				data[i] = toConversationData(c, "")
			}
			return s.emit("conversations", data, func() {
				printConversations(s.out, snap.Conversations, "")
			})
		}),
	}
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Print the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: runWith(g, func(cmd *cobra.Command, s *session, args []string) error {
			if err := s.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			snap := s.ctl.Snapshot()
			data := make([]messageData, len(snap.Messages))
			for i, m := range snap.Messages {
				data[i] = toMessageData(m)
			}
			return s.emit("history", data, func() {
				fmt.Fprintln(s.out, TitleStyle.Render(snap.Active.DisplayName()))
				if len(snap.Messages) == 0 {
					fmt.Fprintln(s.out, DimStyle.Render("No messages yet."))
					return
				}
				for i, m := range snap.Messages {
					if i > 0 {
						fmt.Fprintln(s.out)
					}
					s.printMessage(m)
				}
			})
		}),
	}
}

// =============================================================================
// ASK
// =============================================================================

func newAskCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <id> [text...]",
		Short: "Send a message to a conversation and print the reply",
		Long: `Send a message to a conversation and print the reply.
When no text is given and stdin is piped, the message is read from stdin.`,
		Example: `  flaskchat ask 3 "Resume este texto"
  cat notas.md | flaskchat ask 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWith(g, func(cmd *cobra.Command, s *session, args []string) error {
			text, err := messageText(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("nothing to send")
			}

			id := args[0]
			if err := s.open(cmd.Context(), id); err != nil {
				return err
			}
			if err := s.ctl.SendMessage(cmd.Context(), text); err != nil {
				return describe(err)
			}

			reply := lastReply(s.ctl.Snapshot().Messages)
			data := map[string]string{"conversation_id": id, "reply": reply}
			return s.emit("ask", data, func() {
				s.printReply(reply)
			})
		}),
	}
}

// messageText joins args, or reads stdin when args are empty and stdin is
// not a terminal.
func messageText(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if isTerminal(in) {
		return "", nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// lastReply returns the newest assistant text that is not a local notice.
func lastReply(msgs []model.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].IsUser && !msgs[i].Synthetic {
			return msgs[i].Text
		}
	}
	return ""
}

// =============================================================================
// CREATE / RENAME / DELETE
// =============================================================================

func newNewCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "new [name...]",
		Short: "Create a conversation",
		RunE: runWith(g, func(cmd *cobra.Command, s *session, args []string) error {
			ctx := cmd.Context()
			conv, err := s.ctl.CreateConversation(ctx)
			if err != nil {
				return describe(err)
			}
			if name := strings.TrimSpace(strings.Join(args, " ")); name != "" && name != conv.Name {
				if err := s.ctl.RenameConversation(ctx, conv.ID, name); err != nil {
					return fmt.Errorf("created conversation %s but rename failed: %w", conv.ID, describe(err))
				}
			}
			conv, _ = s.ctl.Conversations().Get(conv.ID)

			return s.emit("new", toConversationData(conv, ""), func() {
				s.success("Created conversation %s: %s", conv.ID, conv.DisplayName())
			})
		}),
	}
}

func newRenameCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name...>",
		Short: "Rename a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: runWith(g, func(cmd *cobra.Command, s *session, args []string) error {
			ctx := cmd.Context()
			if err := s.open(ctx, ""); err != nil {
				return err
			}
			id, name := args[0], strings.Join(args[1:], " ")
			if err := s.ctl.RenameConversation(ctx, id, name); err != nil {
				return describe(err)
			}
			conv, _ := s.ctl.Conversations().Get(id)
			return s.emit("rename", toConversationData(conv, ""), func() {
				s.success("Renamed conversation %s to %s", id, conv.DisplayName())
			})
		}),
	}
}

func newDeleteCmd(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation and its messages",
		Args:    cobra.ExactArgs(1),
		RunE: runWith(g, func(cmd *cobra.Command, s *session, args []string) error {
			ctx := cmd.Context()
			if err := s.open(ctx, ""); err != nil {
				return err
			}
			id := args[0]
			conv, ok := s.ctl.Conversations().Get(id)
			if !ok {
				return describe(controller.ErrUnknownConversation)
			}

			ok, err := confirm(cmd.InOrStdin(), s.out,
				fmt.Sprintf("Delete conversation %s (%s)?", id, conv.DisplayName()),
				ConfirmationOptions{Yes: yes, JSONMode: s.jsonOut, Interactive: interactiveInput(cmd.InOrStdin())})
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(s.out, DimStyle.Render("Cancelled."))
				return nil
			}

			if err := s.ctl.DeleteConversation(ctx, id); err != nil {
				return describe(err)
			}
			return s.emit("delete", map[string]string{"id": id}, func() {
				s.success("Deleted conversation %s", id)
			})
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

// =============================================================================
// MODELS / CONTEXT
// =============================================================================

func newModelsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models conversations can use",
		Args:  cobra.NoArgs,
		RunE: runWith(g, func(cmd *cobra.Command, s *session, _ []string) error {
			s.ctl.LoadModels(cmd.Context())
			opts := s.ctl.Models()
			data := make([]map[string]string, len(opts))
			for i, o := range opts {
				data[i] = map[string]string{"id": o.ID, "label": o.Label}
			}
			return s.emit("models", data, func() {
				for _, o := range opts {
					fmt.Fprintf(s.out, "%s  %s\n", o.Label, DimStyle.Render(o.ID))
				}
			})
		}),
	}
}

func newModelCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "model <id> [model]",
		Short: "Show or change the model of a conversation",
		Args:  cobra.RangeArgs(1, 2),
		RunE: runWith(g, func(cmd *cobra.Command, s *session, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			if err := s.open(ctx, id); err != nil {
				return err
			}
			if len(args) == 2 {
				if err := s.ctl.SetModel(ctx, id, args[1]); err != nil {
					return describe(err)
				}
			}
			current := s.ctl.Controls(id).ModelID
			return s.emit("model", map[string]string{"id": id, "model": current}, func() {
				if len(args) == 2 {
					s.success("Conversation %s now uses %s", id, current)
					return
				}
				fmt.Fprintln(s.out, current)
			})
		}),
	}
}

func newContextCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "context <id> [on|off]",
		Short: "Toggle whether a conversation sends its history",
		Long: `Toggle whether a conversation sends its history to the model.
With on or off, the value is only changed when it differs.`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"on", "off"},
		RunE: runWith(g, func(cmd *cobra.Command, s *session, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			if err := s.open(ctx, id); err != nil {
				return err
			}
			current := s.ctl.Controls(id).ContextEnabled
			want := !current
			if len(args) == 2 {
				switch strings.ToLower(args[1]) {
				case "on", "true", "1":
					want = true
				case "off", "false", "0":
					want = false
				default:
					return fmt.Errorf("invalid value %q: use on or off", args[1])
				}
			}
			if want != current {
				if err := s.ctl.ToggleContext(ctx, id, want); err != nil {
					return describe(err)
				}
			}
			enabled := s.ctl.Controls(id).ContextEnabled
			return s.emit("context", map[string]any{"id": id, "context": enabled}, func() {
				fmt.Fprintf(s.out, "Context for conversation %s: %s\n", id, onOff(enabled))
			})
		}),
	}
}
