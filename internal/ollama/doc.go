// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides a minimal client for a local Ollama server.
//
// The development backend uses it to answer chat messages with a real model
// when one is available.
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url})
//	if err := client.CheckRunning(ctx); err != nil {
//	    // fall back to another responder
//	}
//	resp, err := client.Chat(ctx, "llama3.2", []ollama.Message{
//	    ollama.NewSystemMessage("Salida formato Markdown"),
//	    ollama.NewUserMessage("Hola"),
//	})
//
// Only non-streaming requests are supported.
package ollama
