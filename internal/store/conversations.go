// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side conversation and message state.
package store

import (
	"sync"

	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// ConversationStore holds the known conversations in backend order and the
// id of the active one.
type ConversationStore struct {
	mu       sync.RWMutex
	items    []model.Conversation
	activeID string
}

// NewConversationStore creates an empty store with no active conversation.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

// =============================================================================
// READERS
// =============================================================================

// List returns a copy of the conversations in display order.
func (s *ConversationStore) List() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Conversation, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of conversations.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the conversation with the given id.
func (s *ConversationStore) Get(id string) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return model.Conversation{}, false
}

// ActiveID returns the active conversation id, or "" if none.
func (s *ConversationStore) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns the active conversation.
func (s *ConversationStore) Active() (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return model.Conversation{}, false
	}
	if i := s.indexOf(s.activeID); i >= 0 {
		return s.items[i], true
	}
	return model.Conversation{}, false
}

// =============================================================================
// MUTATORS
// =============================================================================

// Replace swaps the whole list, keeping the active id only if it is still
// present.
func (s *ConversationStore) Replace(list []model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]model.Conversation, len(list))
	copy(s.items, list)
	if s.indexOf(s.activeID) < 0 {
		s.activeID = ""
	}
}

// SetActive marks id as active. Unknown ids are ignored.
func (s *ConversationStore) SetActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return false
	}
	s.activeID = id
	return true
}

// Upsert replaces the conversation with the same id in place, or inserts it
// at the front of the list (the backend lists newest first).
func (s *ConversationStore) Upsert(c model.Conversation) {
	if c.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(c.ID); i >= 0 {
		s.items[i] = c
		return
	}
	s.items = append([]model.Conversation{c}, s.items...)
}

// Remove deletes the conversation. If it was active, the first remaining
// conversation becomes active, or none if the list is now empty. It returns
// the resulting active id.
func (s *ConversationStore) Remove(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return s.activeID
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	if s.activeID == id {
		s.activeID = ""
		if len(s.items) > 0 {
			s.activeID = s.items[0].ID
		}
	}
	return s.activeID
}

// UpdateControls sets the model and context values of a conversation.
func (s *ConversationStore) UpdateControls(id string, ctl model.Controls) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items[i] = s.items[i].WithControls(ctl)
	return true
}

// indexOf must be called with mu held.
func (s *ConversationStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
