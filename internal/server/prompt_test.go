// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flaskchat-tui/internal/ollama"
	"github.com/jeranaias/flaskchat-tui/internal/storage"
)

func history(texts ...string) []storage.Message {
	out := make([]storage.Message, len(texts))
	for i, t := range texts {
		out[i] = storage.Message{Text: t, IsUser: i%2 == 0}
	}
	return out
}

func contents(msgs []ollama.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestBuildPrompt(t *testing.T) {
	long := strings.Repeat("x", 400) // ~100 tokens

	tests := []struct {
		name        string
		history     []storage.Message
		withContext bool
		limit       int
		want        []string
	}{
		{"no context", history("a", "b"), false, 1000, []string{SystemPrompt, "new"}},
		{"full history", history("a", "b"), true, 1000, []string{SystemPrompt, "a", "b", "new"}},
		{"no limit", history(long, long, long), true, 0, []string{SystemPrompt, long, long, long, "new"}},
		{"trims oldest", history(long, long, "c"), true, 130, []string{SystemPrompt, long, "c", "new"}},
		{"nothing fits", history(long), true, 20, []string{SystemPrompt, "new"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildPrompt(tc.history, "new", tc.withContext, tc.limit)
			assert.Equal(t, tc.want, contents(got))
			assert.Equal(t, "system", got[0].Role)
			assert.Equal(t, "user", got[len(got)-1].Role)
		})
	}
}

func TestBuildPrompt_Roles(t *testing.T) {
	got := BuildPrompt(history("q", "a"), "n", true, 0)
	roles := []string{got[0].Role, got[1].Role, got[2].Role, got[3].Role}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
}

func TestWithSummary(t *testing.T) {
	long := strings.Repeat("x", 400)
	prompt, dropped := splitPrompt(history(long, long, "c"), "new", true, 130)
	require.Equal(t, []string{long}, contents(dropped))
	require.Equal(t, []string{SystemPrompt, long, "c", "new"}, contents(prompt))

	got := withSummary(prompt, "breve", 130)
	assert.Equal(t, []string{SystemPrompt, summaryPrefix + "breve", "c", "new"}, contents(got),
		"the summary takes the room of the oldest kept message")
	assert.Equal(t, "system", got[1].Role)
	assert.LessOrEqual(t, EstimateTokens(got), 130)

	got = withSummary(prompt, strings.Repeat("y", 1000), 130)
	assert.Equal(t, contents(prompt), contents(got), "an oversized summary is left out")
}

func TestSummarize(t *testing.T) {
	msgs := []ollama.Message{ollama.NewUserMessage("q"), ollama.NewAssistantMessage("a")}

	resp := &recordingResponder{reply: "  corto \n"}
	summary, err := Summarize(context.Background(), resp, "gpt-4", msgs)
	require.NoError(t, err)
	assert.Equal(t, "corto", summary)
	assert.Equal(t, []string{SummaryPrompt, "q", "a"}, contents(resp.last()))
	assert.Equal(t, "gpt-4", resp.models[0])

	_, err = Summarize(context.Background(), &recordingResponder{reply: " "}, "gpt-4", msgs)
	assert.Error(t, err)

	_, err = Summarize(context.Background(), &recordingResponder{err: errors.New("down")}, "gpt-4", msgs)
	assert.ErrorContains(t, err, "down")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 2, EstimateTokens(nil))
	assert.Equal(t, 2+4+1, EstimateTokens([]ollama.Message{ollama.NewUserMessage("hola")}))
	assert.Equal(t, 2+4+1, EstimateTokens([]ollama.Message{ollama.NewUserMessage("añó")}), "counts runes")
}

// =============================================================================
// RESPONDERS
// =============================================================================

func TestEchoResponder(t *testing.T) {
	reply, err := EchoResponder{}.Respond(context.Background(), "gpt-4", []ollama.Message{
		ollama.NewSystemMessage(SystemPrompt),
		ollama.NewUserMessage("línea 1\nlínea 2"),
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "`gpt-4`")
	assert.Contains(t, reply, "> línea 1\n> línea 2\n")
}

func TestOllamaResponder_MapsUnknownModels(t *testing.T) {
	var asked []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte("Ollama is running"))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"qwen2.5:7b"}]}`))
		case "/api/chat":
			var req ollama.ChatRequest
			json.NewDecoder(r.Body).Decode(&req)
			asked = append(asked, req.Model)
			json.NewEncoder(w).Encode(ollama.ChatResponse{Message: ollama.NewAssistantMessage("hi " + req.Model)})
		}
	}))
	defer srv.Close()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL, DefaultModel: "llama3.2"})
	resp, err := NewOllamaResponder(context.Background(), client)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"llama3.2:latest", "llama3.2", "qwen2.5:7b"}, resp.Installed())

	reply, err := resp.Respond(context.Background(), "qwen2.5:7b", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi qwen2.5:7b", reply)

	_, err = resp.Respond(context.Background(), "gpt-4", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen2.5:7b", "llama3.2"}, asked)
}

func TestOllamaResponder_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllamaResponder(context.Background(), ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url}))
	assert.True(t, ollama.IsNotRunning(err))
}
