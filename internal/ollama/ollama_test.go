// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		msg  Message
		role string
	}{
		{NewUserMessage("Hola"), "user"},
		{NewAssistantMessage("¡Hola!"), "assistant"},
		{NewSystemMessage("Salida formato Markdown"), "system"},
	}
	for _, tc := range tests {
		if tc.msg.Role != tc.role {
			t.Errorf("Role = %q, want %q", tc.msg.Role, tc.role)
		}
	}
}

func TestChatResponse_TotalTime(t *testing.T) {
	resp := &ChatResponse{TotalDuration: int64(2 * time.Second)}
	if resp.TotalTime() != 2*time.Second {
		t.Errorf("TotalTime() = %v, want 2s", resp.TotalTime())
	}
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

func TestClient_Chat(t *testing.T) {
	var got ChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Model:   got.Model,
			Message: NewAssistantMessage("**hola**"),
			Done:    true,
		})
	})

	resp, err := client.Chat(context.Background(), "", []Message{NewUserMessage("hola")})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Message.Content != "**hola**" {
		t.Errorf("Content = %q", resp.Message.Content)
	}
	if got.Model != "llama3.2" {
		t.Errorf("Model = %q, want default", got.Model)
	}
	if got.Stream {
		t.Error("Stream = true, want false")
	}
	if got.Options == nil || got.Options.NumPredict != 550 {
		t.Errorf("Options = %+v, want default options", got.Options)
	}
}

func TestClient_ChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"model not found", http.StatusNotFound, `{"error":"model 'x' not found"}`, IsModelNotFound},
		{"server error body", http.StatusInternalServerError, `{"error":"out of memory"}`, func(err error) bool {
			return err.Error() == "out of memory"
		}},
		{"bad json", http.StatusOK, `{`, func(err error) bool {
			ce, ok := err.(*ClientError)
			return ok && ce.Type == ErrTypeInvalidResponse
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := client.Chat(context.Background(), "x", nil)
			if err == nil || !tc.check(err) {
				t.Errorf("Chat() error = %v", err)
			}
		})
	}
}

func TestClient_ListModels(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2:latest","size":2019393189},{"name":"qwen2.5:7b"}]}`))
	})

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3.2:latest" {
		t.Errorf("ListModels() = %+v", models)
	}
}

func TestClient_CheckRunning(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ollama is running"))
	})
	if err := client.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning() error = %v", err)
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	down := NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: time.Second})
	if err := down.CheckRunning(context.Background()); !IsNotRunning(err) {
		t.Errorf("CheckRunning(closed) error = %v, want not running", err)
	}
}
