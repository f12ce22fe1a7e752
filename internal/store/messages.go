// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side conversation and message state.
package store

import (
	"sync"

	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// MessageStore holds the ordered message log of a single conversation, its
// owner. Writes for any other conversation are discarded, which is how stale
// fetches and late replies are kept out after a switch.
type MessageStore struct {
	mu      sync.RWMutex
	ownerID string
	msgs    []model.Message
}

// NewMessageStore creates an empty store with no owner.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// OwnerID returns the conversation the log belongs to.
func (s *MessageStore) OwnerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID
}

// Snapshot returns a copy of the log.
func (s *MessageStore) Snapshot() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Len returns the number of messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Last returns the newest message.
func (s *MessageStore) Last() (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.msgs) == 0 {
		return model.Message{}, false
	}
	return s.msgs[len(s.msgs)-1], true
}

// Reset empties the log and hands it to conversationID.
func (s *MessageStore) Reset(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerID = conversationID
	s.msgs = nil
}

// Clear empties the log and drops the owner.
func (s *MessageStore) Clear() {
	s.Reset("")
}

// ReplaceAll swaps the full log if conversationID still owns the store.
// It reports whether the swap happened.
func (s *MessageStore) ReplaceAll(conversationID string, msgs []model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID == "" || conversationID != s.ownerID {
		return false
	}
	s.msgs = make([]model.Message, len(msgs))
	copy(s.msgs, msgs)
	return true
}

// Append adds msg to the end of the log if it belongs to the owner.
func (s *MessageStore) Append(msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ConversationID == "" || msg.ConversationID != s.ownerID {
		return false
	}
	s.msgs = append(s.msgs, msg)
	return true
}
