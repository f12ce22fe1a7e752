// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side state: the known conversations with the
// active selection, and the message log of the active conversation.
//
// Both stores are safe for concurrent use. They are mutated only by the sync
// controller; everything else reads snapshots.
//
// # Key Types
//
//   - ConversationStore: Ordered conversation list plus the active id
//   - MessageStore: Message log guarded by its owning conversation id
//
// # Usage
//
//	convs := store.NewConversationStore()
//	convs.Replace(list)
//	convs.SetActive("7")
//
//	msgs := store.NewMessageStore()
//	msgs.Reset("7")
//	if !msgs.ReplaceAll("7", history) {
//	    // the user switched away, result dropped
//	}
package store
