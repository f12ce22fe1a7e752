// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"testing"
)

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		conv Conversation
		want string
	}{
		{"named", Conversation{ID: "1", Name: "Recetas"}, "Recetas"},
		{"empty", Conversation{ID: "1"}, DefaultConversationName},
		{"whitespace", Conversation{ID: "1", Name: "   "}, DefaultConversationName},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.conv.DisplayName(); got != tc.want {
				t.Errorf("DisplayName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestConversation_WithControls(t *testing.T) {
	c := Conversation{ID: "7", Name: "x", ModelID: "gpt-4", ContextEnabled: true}
	got := c.WithControls(Controls{ModelID: "gpt-3.5-turbo"})

	if got.ModelID != "gpt-3.5-turbo" || got.ContextEnabled {
		t.Errorf("WithControls() = %+v, want model gpt-3.5-turbo and context off", got)
	}
	if c.ModelID != "gpt-4" {
		t.Errorf("original mutated: ModelID = %q", c.ModelID)
	}
	if got.Controls() != (Controls{ModelID: "gpt-3.5-turbo"}) {
		t.Errorf("Controls() = %+v", got.Controls())
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_Constructors(t *testing.T) {
	u := NewUserMessage("7", "hello")
	a := NewAssistantMessage("7", "hi")
	e := NewSyntheticError("7", "boom")

	if !u.IsUser || u.Role() != RoleUser || u.Synthetic {
		t.Errorf("user message = %+v", u)
	}
	if a.IsUser || a.Role() != RoleAssistant || a.Synthetic {
		t.Errorf("assistant message = %+v", a)
	}
	if e.IsUser || !e.Synthetic {
		t.Errorf("synthetic message = %+v", e)
	}
	if u.ID == "" || u.ID == a.ID {
		t.Errorf("message ids must be unique and non-empty: %q %q", u.ID, a.ID)
	}
	if u.ConversationID != "7" || u.CreatedAt.IsZero() {
		t.Errorf("user message missing owner or timestamp: %+v", u)
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("RoleUser.DisplayName() = %q", RoleUser.DisplayName())
	}
	if Role("other").DisplayName() != "other" {
		t.Errorf("unknown role display name = %q", Role("other").DisplayName())
	}
}

// =============================================================================
// MODEL OPTION TESTS
// =============================================================================

func TestNewModelOptions(t *testing.T) {
	tests := []struct {
		name   string
		in     []string
		ids    []string
		labels []string
	}{
		{
			name:   "sorted case-insensitive",
			in:     []string{"gpt-4", "GPT-3.5-turbo", "claude"},
			ids:    []string{"claude", "GPT-3.5-turbo", "gpt-4"},
			labels: []string{"CLAUDE", "GPT-3.5-TURBO", "GPT-4"},
		},
		{
			name:   "drops blanks and duplicates",
			in:     []string{"gpt-4", "", "gpt-4", "  "},
			ids:    []string{"gpt-4"},
			labels: []string{"GPT-4"},
		},
		{
			name: "empty",
			in:   nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NewModelOptions(tc.in)
			if len(got) != len(tc.ids) {
				t.Fatalf("len = %d, want %d (%+v)", len(got), len(tc.ids), got)
			}
			for i := range got {
				if got[i].ID != tc.ids[i] {
					t.Errorf("[%d].ID = %q, want %q", i, got[i].ID, tc.ids[i])
				}
				if got[i].Label != tc.labels[i] {
					t.Errorf("[%d].Label = %q, want %q", i, got[i].Label, tc.labels[i])
				}
			}
		})
	}
}

func TestIndexOfModel(t *testing.T) {
	opts := NewModelOptions(FallbackModels)
	if IndexOfModel(opts, "gpt-4") != 1 {
		t.Errorf("IndexOfModel(gpt-4) = %d, want 1", IndexOfModel(opts, "gpt-4"))
	}
	if IndexOfModel(opts, "missing") != -1 {
		t.Errorf("IndexOfModel(missing) = %d, want -1", IndexOfModel(opts, "missing"))
	}
}
