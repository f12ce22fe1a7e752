// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flaskchat-tui/internal/config"
	"github.com/jeranaias/flaskchat-tui/internal/controller"
)

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge carries messages from other goroutines into the Bubble Tea loop.
// Pass OnChange as controller.Options.OnChange.
type Bridge struct {
	ch chan tea.Msg
}

// NewBridge creates a bridge with room for a burst of events.
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan tea.Msg, 64)}
}

// OnChange forwards a controller event without blocking. When the buffer is
// full the event is dropped: a refresh is already queued and it will read the
// latest snapshot anyway.
func (b *Bridge) OnChange(ev controller.Event) {
	select {
	case b.ch <- changeMsg{event: ev}:
	default:
	}
}

// OnConfig forwards a reloaded configuration.
func (b *Bridge) OnConfig(cfg *config.Config) {
	select {
	case b.ch <- configReloadMsg{cfg: cfg}:
	default:
	}
}

// OnConfigError forwards a configuration reload failure.
func (b *Bridge) OnConfigError(err error) {
	select {
	case b.ch <- configErrorMsg{err: err}:
	default:
	}
}

// Wait returns a command that delivers the next bridged message.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

// changeMsg reports that controller state changed.
type changeMsg struct {
	event controller.Event
}

// opDoneMsg reports the outcome of a controller operation.
type opDoneMsg struct {
	op  string
	id  string
	err error
}

// configReloadMsg carries a configuration loaded after a file change.
type configReloadMsg struct {
	cfg *config.Config
}

// configErrorMsg reports a failed configuration reload.
type configErrorMsg struct {
	err error
}

// exportMsg reports where a transcript was saved.
type exportMsg struct {
	path string
	err  error
}

// clipboardMsg reports the outcome of a copy.
type clipboardMsg struct {
	err error
}
