// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side conversation and message state.
package store

import (
	"sync"
	"testing"

	"github.com/jeranaias/flaskchat-tui/internal/model"
)

func conv(id, name string) model.Conversation {
	return model.Conversation{ID: id, Name: name, ModelID: "gpt-3.5-turbo", ContextEnabled: true}
}

func ids(list []model.Conversation) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// CONVERSATION STORE TESTS
// =============================================================================

func TestConversationStore_ListKeepsBackendOrder(t *testing.T) {
	s := NewConversationStore()
	s.Replace([]model.Conversation{conv("9", "z"), conv("2", "a"), conv("5", "m")})

	if got := ids(s.List()); !equalStrings(got, []string{"9", "2", "5"}) {
		t.Errorf("List() ids = %v, want [9 2 5]", got)
	}
}

func TestConversationStore_SetActive(t *testing.T) {
	s := NewConversationStore()
	s.Replace([]model.Conversation{conv("1", "a"), conv("2", "b")})

	if !s.SetActive("2") {
		t.Fatal("SetActive(2) = false, want true")
	}
	if s.SetActive("missing") {
		t.Error("SetActive(missing) = true, want false")
	}
	if s.ActiveID() != "2" {
		t.Errorf("ActiveID() = %q, want %q", s.ActiveID(), "2")
	}

	active, ok := s.Active()
	if !ok || active.Name != "b" {
		t.Errorf("Active() = %+v, %v", active, ok)
	}
}

func TestConversationStore_ActiveEmpty(t *testing.T) {
	s := NewConversationStore()
	if _, ok := s.Active(); ok {
		t.Error("Active() on empty store reported a conversation")
	}
}

func TestConversationStore_Upsert(t *testing.T) {
	s := NewConversationStore()
	s.Replace([]model.Conversation{conv("1", "a"), conv("2", "b")})

	s.Upsert(conv("2", "renamed"))
	s.Upsert(conv("3", "new"))
	s.Upsert(model.Conversation{Name: "no id"})

	if got := ids(s.List()); !equalStrings(got, []string{"3", "1", "2"}) {
		t.Errorf("List() ids = %v, want [3 1 2]", got)
	}
	if c, _ := s.Get("2"); c.Name != "renamed" {
		t.Errorf("Get(2).Name = %q, want %q", c.Name, "renamed")
	}
}

func TestConversationStore_Remove(t *testing.T) {
	tests := []struct {
		name       string
		list       []string
		active     string
		remove     string
		wantActive string
		wantIDs    []string
	}{
		{"active reassigned to first", []string{"1", "2", "3"}, "2", "2", "1", []string{"1", "3"}},
		{"active first removed", []string{"1", "2"}, "1", "1", "2", []string{"2"}},
		{"only conversation", []string{"1"}, "1", "1", "", []string{}},
		{"non-active keeps selection", []string{"1", "2", "3"}, "3", "1", "3", []string{"2", "3"}},
		{"unknown id", []string{"1"}, "1", "x", "1", []string{"1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewConversationStore()
			var list []model.Conversation
			for _, id := range tc.list {
				list = append(list, conv(id, "c"+id))
			}
			s.Replace(list)
			s.SetActive(tc.active)

			got := s.Remove(tc.remove)
			if got != tc.wantActive {
				t.Errorf("Remove() active = %q, want %q", got, tc.wantActive)
			}
			if s.ActiveID() != tc.wantActive {
				t.Errorf("ActiveID() = %q, want %q", s.ActiveID(), tc.wantActive)
			}
			if gotIDs := ids(s.List()); !equalStrings(gotIDs, tc.wantIDs) {
				t.Errorf("List() ids = %v, want %v", gotIDs, tc.wantIDs)
			}
		})
	}
}

func TestConversationStore_ReplaceDropsVanishedActive(t *testing.T) {
	s := NewConversationStore()
	s.Replace([]model.Conversation{conv("1", "a"), conv("2", "b")})
	s.SetActive("2")

	s.Replace([]model.Conversation{conv("1", "a"), conv("2", "b2")})
	if s.ActiveID() != "2" {
		t.Errorf("ActiveID() = %q after reload, want kept", s.ActiveID())
	}

	s.Replace([]model.Conversation{conv("1", "a")})
	if s.ActiveID() != "" {
		t.Errorf("ActiveID() = %q after vanish, want empty", s.ActiveID())
	}
}

func TestConversationStore_UpdateControls(t *testing.T) {
	s := NewConversationStore()
	s.Replace([]model.Conversation{conv("1", "a")})

	if !s.UpdateControls("1", model.Controls{ModelID: "gpt-4", ContextEnabled: false}) {
		t.Fatal("UpdateControls(1) = false")
	}
	c, _ := s.Get("1")
	if c.ModelID != "gpt-4" || c.ContextEnabled || c.Name != "a" {
		t.Errorf("after UpdateControls = %+v", c)
	}
	if s.UpdateControls("2", model.Controls{}) {
		t.Error("UpdateControls(unknown) = true")
	}
}

func TestConversationStore_ListIsCopy(t *testing.T) {
	s := NewConversationStore()
	s.Replace([]model.Conversation{conv("1", "a")})
	list := s.List()
	list[0].Name = "mutated"

	if c, _ := s.Get("1"); c.Name != "a" {
		t.Errorf("store mutated through List(): %q", c.Name)
	}
}

// =============================================================================
// MESSAGE STORE TESTS
// =============================================================================

func TestMessageStore_ReplaceAllGuard(t *testing.T) {
	s := NewMessageStore()
	s.Reset("B")

	stale := []model.Message{model.NewAssistantMessage("A", "from A")}
	if s.ReplaceAll("A", stale) {
		t.Error("ReplaceAll(A) applied while B owns the store")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after discarded replace, want 0", s.Len())
	}

	fresh := []model.Message{model.NewUserMessage("B", "q"), model.NewAssistantMessage("B", "a")}
	if !s.ReplaceAll("B", fresh) {
		t.Fatal("ReplaceAll(B) rejected for the owner")
	}
	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].Text != "q" || snap[1].Text != "a" {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestMessageStore_ReplaceAllWithoutOwner(t *testing.T) {
	s := NewMessageStore()
	if s.ReplaceAll("", nil) {
		t.Error("ReplaceAll on ownerless store applied")
	}
}

func TestMessageStore_AppendOrderAndOwner(t *testing.T) {
	s := NewMessageStore()
	s.Reset("7")

	s.Append(model.NewUserMessage("7", "one"))
	s.Append(model.NewAssistantMessage("7", "two"))
	if s.Append(model.NewAssistantMessage("8", "late")) {
		t.Error("Append accepted a message for another conversation")
	}

	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].Text != "one" || snap[1].Text != "two" {
		t.Errorf("Snapshot() = %+v", snap)
	}
	last, ok := s.Last()
	if !ok || last.Text != "two" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestMessageStore_Clear(t *testing.T) {
	s := NewMessageStore()
	s.Reset("7")
	s.Append(model.NewUserMessage("7", "one"))

	s.Clear()
	if s.Len() != 0 || s.OwnerID() != "" {
		t.Errorf("after Clear(): len=%d owner=%q", s.Len(), s.OwnerID())
	}
	if _, ok := s.Last(); ok {
		t.Error("Last() on empty store reported a message")
	}
}

func TestMessageStore_ConcurrentAccess(t *testing.T) {
	s := NewMessageStore()
	s.Reset("1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Append(model.NewUserMessage("1", "x"))
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	if s.Len() != 50 {
		t.Errorf("Len() = %d, want 50", s.Len())
	}
}
