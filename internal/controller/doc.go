// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller implements the synchronization logic between the local
// stores and the FlaskChat backend.
//
// The Controller owns the conversation and message stores. Every user intent
// (select, send, rename, delete, toggle context, change model, create) is a
// blocking method that issues the backend call, reconciles the stores with
// the response and reports a change through the OnChange hook. Callers that
// must stay responsive (the TUI) run these methods in their own goroutine.
//
// # Selection Lifecycle
//
//	Idle -> Loading -> Ready
//	Idle -> Loading -> Error
//
// A history fetch that resolves after the user selected another conversation
// is discarded: the message store only accepts writes for its owner and each
// load carries a generation number.
//
// # Error Taxonomy
//
//   - ValidationError: rejected before any network call (empty text, no
//     active conversation, unchanged name)
//   - NetworkError: the backend was unreachable or answered non-2xx; the
//     optimistic change is reverted
//   - ErrBusy: another mutating call for the same conversation is in flight
//
// Stale results are never surfaced; they are logged at debug level.
//
// # Usage
//
//	ctl := controller.New(api.NewClient(), controller.Options{Logger: logger})
//	if err := ctl.Load(ctx); err != nil {
//	    // the list could not be fetched
//	}
//	err := ctl.SendMessage(ctx, "hola")
package controller
