// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flaskchat-tui/internal/export"
)

// Operation names carried by opDoneMsg.
const (
	opLoad    = "load"
	opSelect  = "select"
	opSend    = "send"
	opRename  = "rename"
	opDelete  = "delete"
	opCreate  = "create"
	opContext = "context"
	opModel   = "model"
)

// =============================================================================
// CONTROLLER COMMANDS
// =============================================================================

// run wraps a blocking controller call in a command reporting opDoneMsg.
func (m Model) run(op, id string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, id: id, err: fn(ctx)}
	}
}

func (m Model) loadCmd() tea.Cmd {
	return m.run(opLoad, "", m.ctl.Load)
}

func (m Model) selectCmd(id string) tea.Cmd {
	return m.run(opSelect, id, func(ctx context.Context) error {
		return m.ctl.SelectConversation(ctx, id)
	})
}

func (m Model) sendCmd(text string) tea.Cmd {
	return m.run(opSend, m.frame.ActiveID, func(ctx context.Context) error {
		return m.ctl.SendMessage(ctx, text)
	})
}

func (m Model) renameCmd(id, name string) tea.Cmd {
	return m.run(opRename, id, func(ctx context.Context) error {
		return m.ctl.RenameConversation(ctx, id, name)
	})
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return m.run(opDelete, id, func(ctx context.Context) error {
		return m.ctl.DeleteConversation(ctx, id)
	})
}

func (m Model) createCmd() tea.Cmd {
	return m.run(opCreate, "", func(ctx context.Context) error {
		_, err := m.ctl.CreateConversation(ctx)
		return err
	})
}

func (m Model) toggleContextCmd(id string, enabled bool) tea.Cmd {
	return m.run(opContext, id, func(ctx context.Context) error {
		return m.ctl.ToggleContext(ctx, id, enabled)
	})
}

func (m Model) setModelCmd(id, modelID string) tea.Cmd {
	return m.run(opModel, id, func(ctx context.Context) error {
		return m.ctl.SetModel(ctx, id, modelID)
	})
}

// =============================================================================
// OTHER COMMANDS
// =============================================================================

// copyCmd writes text to the system clipboard.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{err: clipboard.WriteAll(text)}
	}
}

// exportCmd saves the active conversation as Markdown under dir.
func (m Model) exportCmd() tea.Cmd {
	snap := m.ctl.Snapshot()
	if !snap.HasActive {
		return nil
	}
	t := export.NewTranscript(snap.Active.WithControls(snap.Controls), snap.Messages)
	opts := export.DefaultOptions()
	if m.opts.ExportDir != "" {
		opts.OutputDir = m.opts.ExportDir
	}
	return func() tea.Msg {
		path, err := export.ExportToFile(t, export.NewMarkdownExporter(opts), opts)
		return exportMsg{path: path, err: err}
	}
}
