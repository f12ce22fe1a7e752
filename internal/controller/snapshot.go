// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller implements the conversation synchronization logic.
package controller

import (
	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// Snapshot is a read-only copy of everything the renderer needs. State,
// messages, pending controls and busy flags are taken under one lock, so the
// log always matches the state. The conversation list comes from its own
// store and may already show a change the rest has not caught up with.
type Snapshot struct {
	State State
	Err   error

	Conversations []model.Conversation
	ActiveID      string
	Active        model.Conversation
	HasActive     bool

	// Controls are the header values of the active conversation, including
	// any optimistic value in flight.
	Controls model.Controls

	Messages []model.Message
	Models   []model.ModelOption

	// Busy holds the ids with a mutating call in flight.
	Busy     map[string]bool
	Creating bool
}

// IsBusy reports whether id has a call in flight.
func (s Snapshot) IsBusy(id string) bool {
	return s.Busy[id]
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		Conversations: c.convs.List(),
	}
	snap.Active, snap.HasActive = c.convs.Active()
	if snap.HasActive {
		snap.ActiveID = snap.Active.ID
		snap.Controls = snap.Active.Controls()
	}

	c.mu.Lock()
	snap.Messages = c.msgs.Snapshot()
	if ctl, ok := c.pending[snap.ActiveID]; ok && snap.HasActive {
		snap.Controls = ctl
	}
	snap.State = c.state
	snap.Err = c.lastErr
	snap.Models = make([]model.ModelOption, len(c.models))
	copy(snap.Models, c.models)
	snap.Busy = make(map[string]bool, len(c.inflight))
	for id := range c.inflight {
		if id == createKey {
			snap.Creating = true
			continue
		}
		snap.Busy[id] = true
	}
	c.mu.Unlock()

	return snap
}
