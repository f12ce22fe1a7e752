// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/jeranaias/flaskchat-tui/internal/controller"
	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// =============================================================================
// FRAME TYPES
// =============================================================================

// SidebarItem is one conversation row.
type SidebarItem struct {
	ID      string
	Name    string
	Active  bool
	Editing bool
	Busy    bool
}

// FeedEntry is one message in the feed. Text is the markdown source; it is
// rendered when the feed is drawn.
type FeedEntry struct {
	Key    string
	Text   string
	IsUser bool
	Notice bool
}

// ModelChoice is one option of the header model selector.
type ModelChoice struct {
	ID       string
	Label    string
	Selected bool
}

// Header describes the active conversation's controls.
type Header struct {
	Name           string
	HasActive      bool
	Models         []ModelChoice
	ContextEnabled bool
	Busy           bool
}

// Frame is everything the view shows, derived from one snapshot.
type Frame struct {
	State    controller.State
	ActiveID string
	Sidebar  []SidebarItem
	Feed     []FeedEntry
	Header   Header
	// Creating is true while a new conversation is being created.
	Creating bool
}

// Options tune Build.
type Options struct {
	// EditingID marks the sidebar row being renamed.
	EditingID string
}

// =============================================================================
// BUILD
// =============================================================================

// Build projects snap into a Frame.
func Build(snap controller.Snapshot, opts Options) Frame {
	f := Frame{
		State:    snap.State,
		ActiveID: snap.ActiveID,
		Creating: snap.Creating,
		Sidebar:  make([]SidebarItem, 0, len(snap.Conversations)),
		Feed:     make([]FeedEntry, 0, len(snap.Messages)),
	}

	for _, c := range snap.Conversations {
		f.Sidebar = append(f.Sidebar, SidebarItem{
			ID:      c.ID,
			Name:    c.DisplayName(),
			Active:  c.ID == snap.ActiveID,
			Editing: opts.EditingID != "" && c.ID == opts.EditingID,
			Busy:    snap.IsBusy(c.ID),
		})
	}

	for _, m := range snap.Messages {
		f.Feed = append(f.Feed, FeedEntry{
			Key:    m.ID,
			Text:   m.Text,
			IsUser: m.IsUser,
			Notice: m.Synthetic,
		})
	}

	if snap.HasActive {
		f.Header = Header{
			Name:           snap.Active.DisplayName(),
			HasActive:      true,
			Models:         modelChoices(snap.Models, snap.Controls.ModelID),
			ContextEnabled: snap.Controls.ContextEnabled,
			Busy:           snap.IsBusy(snap.ActiveID),
		}
	}
	return f
}

// modelChoices marks the selected model. A selected id missing from opts is
// listed first so the header always shows the confirmed value.
func modelChoices(opts []model.ModelOption, selected string) []ModelChoice {
	out := make([]ModelChoice, 0, len(opts)+1)
	if selected != "" && model.IndexOfModel(opts, selected) < 0 {
		missing := model.NewModelOptions([]string{selected})
		out = append(out, ModelChoice{ID: selected, Label: missing[0].Label, Selected: true})
	}
	for _, o := range opts {
		out = append(out, ModelChoice{ID: o.ID, Label: o.Label, Selected: o.ID == selected})
	}
	return out
}

// SelectedModel returns the selected choice, if any.
func (h Header) SelectedModel() (ModelChoice, bool) {
	for _, m := range h.Models {
		if m.Selected {
			return m, true
		}
	}
	return ModelChoice{}, false
}

// Active returns the sidebar item of the active conversation.
func (f Frame) Active() (SidebarItem, bool) {
	if i := f.ActiveIndex(); i >= 0 {
		return f.Sidebar[i], true
	}
	return SidebarItem{}, false
}

// Busy reports whether any conversation has a call in flight.
func (f Frame) Busy() bool {
	if f.Creating || f.State == controller.StateLoading {
		return true
	}
	for _, it := range f.Sidebar {
		if it.Busy {
			return true
		}
	}
	return false
}

// ActiveIndex returns the sidebar index of the active conversation, or -1.
func (f Frame) ActiveIndex() int {
	for i, it := range f.Sidebar {
		if it.Active {
			return i
		}
	}
	return -1
}

// LastReply returns the text of the newest assistant message that is not a
// local notice.
func (f Frame) LastReply() (string, bool) {
	for i := len(f.Feed) - 1; i >= 0; i-- {
		e := f.Feed[i]
		if !e.IsUser && !e.Notice && strings.TrimSpace(e.Text) != "" {
			return e.Text, true
		}
	}
	return "", false
}
