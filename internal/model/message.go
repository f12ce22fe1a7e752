// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation's message log.
type Message struct {
	// Local identity, used as a stable key by the renderer.
	ID string `json:"-"`

	ConversationID string    `json:"-"`
	Text           string    `json:"mensaje"`
	IsUser         bool      `json:"es_usuario"`
	CreatedAt      time.Time `json:"fecha_creacion"`

	// Synthetic marks locally generated notices that were never sent to or
	// received from the backend.
	Synthetic bool `json:"-"`
}

// Role returns the author role of the message.
func (m Message) Role() Role {
	if m.IsUser {
		return RoleUser
	}
	return RoleAssistant
}

// NewUserMessage creates the local copy of a message typed by the user.
func NewUserMessage(conversationID, text string) Message {
	return newMessage(conversationID, text, true)
}

// NewAssistantMessage creates a message holding a backend reply.
func NewAssistantMessage(conversationID, text string) Message {
	return newMessage(conversationID, text, false)
}

// NewSyntheticError creates an assistant-authored notice that is shown in the
// feed but never persisted.
func NewSyntheticError(conversationID, text string) Message {
	m := newMessage(conversationID, text, false)
	m.Synthetic = true
	return m
}

func newMessage(conversationID, text string, isUser bool) Message {
	return Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Text:           text,
		IsUser:         isUser,
		CreatedAt:      time.Now(),
	}
}
