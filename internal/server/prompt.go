// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jeranaias/flaskchat-tui/internal/ollama"
	"github.com/jeranaias/flaskchat-tui/internal/storage"
)

// SystemPrompt asks the model for markdown output, which the client renders.
const SystemPrompt = "Salida formato Markdown"

// SummaryPrompt asks the model to condense history that no longer fits.
const SummaryPrompt = "Resuma los siguientes mensajes de forma clara y concisa"

// summaryPrefix introduces a condensed history inside the prompt.
const summaryPrefix = "Resumen de la conversación anterior: "

// Token estimate overheads, per message and per prompt.
const (
	tokensPerMessage = 4
	tokensPerPrompt  = 2
)

// EstimateTokens approximates the token count of a prompt at four characters
// per token.
func EstimateTokens(messages []ollama.Message) int {
	n := tokensPerPrompt
	for _, m := range messages {
		n += messageTokens(m)
	}
	return n
}

func messageTokens(m ollama.Message) int {
	return tokensPerMessage + (utf8.RuneCountInString(m.Content)+3)/4
}

// BuildPrompt assembles the messages sent to the responder: the system
// prompt, then the history when context is on, then the new user text.
// History is dropped oldest first until the prompt fits limit tokens; the
// system prompt and the new text are always kept. A limit of 0 keeps the
// whole history.
func BuildPrompt(history []storage.Message, text string, withContext bool, limit int) []ollama.Message {
	prompt, _ := splitPrompt(history, text, withContext, limit)
	return prompt
}

// splitPrompt builds the prompt like BuildPrompt and also returns the history
// messages that were left out.
func splitPrompt(history []storage.Message, text string, withContext bool, limit int) (prompt, dropped []ollama.Message) {
	system := ollama.NewSystemMessage(SystemPrompt)
	user := ollama.NewUserMessage(text)
	if !withContext {
		return []ollama.Message{system, user}, nil
	}

	past := make([]ollama.Message, 0, len(history))
	for _, m := range history {
		if m.IsUser {
			past = append(past, ollama.NewUserMessage(m.Text))
		} else {
			past = append(past, ollama.NewAssistantMessage(m.Text))
		}
	}

	if limit > 0 {
		budget := limit - EstimateTokens([]ollama.Message{system, user})
		dropped, past = fitNewest(past, budget)
	}

	prompt = make([]ollama.Message, 0, len(past)+2)
	prompt = append(prompt, system)
	prompt = append(prompt, past...)
	return append(prompt, user), dropped
}

// fitNewest splits past into the oldest messages that exceed budget and the
// newest ones that fit.
func fitNewest(past []ollama.Message, budget int) (dropped, kept []ollama.Message) {
	start := len(past)
	for start > 0 {
		cost := messageTokens(past[start-1])
		if cost > budget {
			break
		}
		budget -= cost
		start--
	}
	return past[:start], past[start:]
}

// Summarize asks r to condense msgs into one text using model.
func Summarize(ctx context.Context, r Responder, model string, msgs []ollama.Message) (string, error) {
	req := make([]ollama.Message, 0, len(msgs)+1)
	req = append(req, ollama.NewSystemMessage(SummaryPrompt))
	req = append(req, msgs...)
	summary, err := r.Respond(ctx, model, req)
	if err != nil {
		return "", fmt.Errorf("summarize history: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.New("summarize history: empty summary")
	}
	return summary, nil
}

// withSummary places summary right after the system prompt of a prompt built
// by splitPrompt. The oldest kept history makes room for it. If the summary
// cannot fit even alone, prompt is returned unchanged.
func withSummary(prompt []ollama.Message, summary string, limit int) []ollama.Message {
	system, user := prompt[0], prompt[len(prompt)-1]
	note := ollama.NewSystemMessage(summaryPrefix + summary)

	budget := limit - EstimateTokens([]ollama.Message{system, note, user})
	if budget < 0 {
		return prompt
	}
	_, kept := fitNewest(prompt[1:len(prompt)-1], budget)

	out := make([]ollama.Message, 0, len(kept)+3)
	out = append(out, system, note)
	out = append(out, kept...)
	return append(out, user)
}
