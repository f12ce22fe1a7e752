// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import "strings"

// DefaultConversationName is the name the backend assigns when none is given.
const DefaultConversationName = "Nueva Conversación"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a chat conversation as known by the backend.
// The ID is opaque: the backend may send a string or an integer, it is always
// held as a string here.
type Conversation struct {
	ID             string `json:"id"`
	Name           string `json:"nombre"`
	ModelID        string `json:"modelo,omitempty"`
	ContextEnabled bool   `json:"contexto"`
}

// DisplayName returns the name to show, falling back to the default name.
func (c Conversation) DisplayName() string {
	if strings.TrimSpace(c.Name) == "" {
		return DefaultConversationName
	}
	return c.Name
}

// IsZero reports whether the conversation has no identity.
func (c Conversation) IsZero() bool {
	return c.ID == ""
}

// Controls is the header control state of a conversation.
type Controls struct {
	ModelID        string
	ContextEnabled bool
}

// Controls returns the conversation's model and context values.
func (c Conversation) Controls() Controls {
	return Controls{ModelID: c.ModelID, ContextEnabled: c.ContextEnabled}
}

// WithControls returns a copy of c carrying the given control values.
func (c Conversation) WithControls(ctl Controls) Conversation {
	c.ModelID = ctl.ModelID
	c.ContextEnabled = ctl.ContextEnabled
	return c
}
