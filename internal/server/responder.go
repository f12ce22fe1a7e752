// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/flaskchat-tui/internal/ollama"
)

// Responder produces the assistant reply for a prompt.
type Responder interface {
	// Respond answers messages using model. model is the conversation's
	// model id; implementations may map it to one they can serve.
	Respond(ctx context.Context, model string, messages []ollama.Message) (string, error)

	// Name identifies the responder in logs and /health.
	Name() string
}

// ============================================================================
// OLLAMA
// ============================================================================

// OllamaResponder answers through a local Ollama server.
type OllamaResponder struct {
	client    *ollama.Client
	installed map[string]bool
}

// NewOllamaResponder checks that Ollama is running and records its installed
// models. Conversation models Ollama does not have are served by the
// client's default model.
func NewOllamaResponder(ctx context.Context, client *ollama.Client) (*OllamaResponder, error) {
	if err := client.CheckRunning(ctx); err != nil {
		return nil, err
	}
	models, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ollama models: %w", err)
	}

	installed := make(map[string]bool, len(models)*2)
	for _, m := range models {
		installed[m.Name] = true
		// "llama3.2:latest" is also addressable as "llama3.2".
		if base, ok := strings.CutSuffix(m.Name, ":latest"); ok {
			installed[base] = true
		}
	}
	return &OllamaResponder{client: client, installed: installed}, nil
}

// Installed returns the installed model names.
func (o *OllamaResponder) Installed() []string {
	names := make([]string, 0, len(o.installed))
	for name := range o.installed {
		names = append(names, name)
	}
	return names
}

// Name implements Responder.
func (o *OllamaResponder) Name() string { return "ollama" }

// Respond implements Responder.
func (o *OllamaResponder) Respond(ctx context.Context, model string, messages []ollama.Message) (string, error) {
	if !o.installed[model] {
		model = o.client.DefaultModel()
	}
	resp, err := o.client.Chat(ctx, model, messages)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", errors.New("empty reply from model")
	}
	return resp.Message.Content, nil
}

// ============================================================================
// ECHO
// ============================================================================

// EchoResponder answers with the last user message in markdown. It needs no
// model, so the whole stack can run offline.
type EchoResponder struct{}

// Name implements Responder.
func (EchoResponder) Name() string { return "echo" }

// Respond implements Responder.
func (EchoResponder) Respond(_ context.Context, model string, messages []ollama.Message) (string, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			last = messages[i].Content
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Eco** (`%s`, %d mensajes en contexto)\n\n", model, len(messages))
	for _, line := range strings.Split(last, "\n") {
		b.WriteString("> ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}
