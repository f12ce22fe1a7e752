// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller implements the conversation synchronization logic.
package controller

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError reports an intent rejected before any backend call.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Op + ": " + e.Reason
}

// NetworkError reports a failed backend call. Err is usually an
// *api.ClientError.
type NetworkError struct {
	Op             string
	ConversationID string
	Err            error
}

func (e *NetworkError) Error() string {
	if e.ConversationID != "" {
		return fmt.Sprintf("%s (conversation %s): %v", e.Op, e.ConversationID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Sentinel errors for easy checking.
var (
	ErrBusy                 = errors.New("another request for this conversation is in progress")
	ErrEmptyMessage         = &ValidationError{Op: "send", Reason: "message is empty"}
	ErrNoActiveConversation = &ValidationError{Op: "send", Reason: "no active conversation"}
	ErrEmptyName            = &ValidationError{Op: "rename", Reason: "name is empty"}
	ErrUnchangedName        = &ValidationError{Op: "rename", Reason: "name is unchanged"}
	ErrUnknownConversation  = &ValidationError{Op: "lookup", Reason: "unknown conversation"}
	ErrEmptyModel           = &ValidationError{Op: "set model", Reason: "model is empty"}
)

// IsValidation checks if err was rejected before reaching the backend.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNetwork checks if err is a failed backend call.
func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}

func networkErr(op, id string, err error) error {
	return &NetworkError{Op: op, ConversationID: id, Err: err}
}
