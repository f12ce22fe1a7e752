// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by the backend client, the
// local stores, the sync controller and the renderer.
//
// # Key Types
//
//   - Conversation: A backend conversation with its name, model and context flag
//   - Message: Single entry of a conversation's message log
//   - ModelOption: A selectable generation model with its display label
//   - Role: Message author (user or assistant, plus system for prompts)
//
// # Usage
//
// Build the optimistic user message for a send:
//
//	msg := model.NewUserMessage(conv.ID, "hola")
//
// Build the model selector options:
//
//	opts := model.NewModelOptions([]string{"gpt-4", "gpt-3.5-turbo"})
//	fmt.Println(opts[0].Label) // GPT-3.5-TURBO
package model
