// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flaskchat-tui/internal/config"
	"github.com/jeranaias/flaskchat-tui/internal/export"
	"github.com/jeranaias/flaskchat-tui/internal/server"
	"github.com/jeranaias/flaskchat-tui/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FLASKCHAT_CONFIG_DIR", dir)
	for _, v := range []string{
		"FLASKCHAT_BASE_URL", "FLASKCHAT_TIMEOUT", "FLASKCHAT_LOG_LEVEL", "FLASKCHAT_THEME",
		"FLASKCHAT_MARKDOWN", "FLASKCHAT_SERVER_ADDR", "FLASKCHAT_DB_PATH", "FLASKCHAT_OLLAMA_URL",
	} {
		t.Setenv(v, "")
	}
	config.ResetGlobalForTesting()
	return dir
}

// newBackend starts the development backend with the echo responder.
func newBackend(t *testing.T) (*httptest.Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := httptest.NewServer(server.New(db, server.EchoResponder{}, server.Options{
		AllowedModels:     []string{"gpt-3.5-turbo", "gpt-4"},
		ContextTokenLimit: 1000,
	}, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, db
}

// runCLI executes one command line against baseURL and returns everything
// written to stdout and stderr.
func runCLI(t *testing.T, baseURL, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--url", baseURL}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// =============================================================================
// SCRIPTED COMMANDS
// =============================================================================

func TestCLI_ConversationLifecycle(t *testing.T) {
	isolate(t)
	srv, _ := newBackend(t)

	out, err := runCLI(t, srv.URL, "", "conversations")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet")

	out, err = runCLI(t, srv.URL, "", "new", "Mi", "charla")
	require.NoError(t, err)
	assert.Contains(t, out, "Created conversation 1: Mi charla")

	out, err = runCLI(t, srv.URL, "", "ask", "1", "hola", "mundo")
	require.NoError(t, err)
	assert.Contains(t, out, "> hola mundo")
	assert.Contains(t, out, "gpt-3.5-turbo")

	out, err = runCLI(t, srv.URL, "", "history", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Mi charla")
	assert.Contains(t, out, "You:")
	assert.Contains(t, out, "Assistant:")
	assert.Less(t, strings.Index(out, "You:"), strings.Index(out, "Assistant:"))

	out, err = runCLI(t, srv.URL, "", "rename", "1", "Saludos")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed conversation 1 to Saludos")

	out, err = runCLI(t, srv.URL, "", "model", "1", "gpt-4")
	require.NoError(t, err)
	assert.Contains(t, out, "now uses gpt-4")

	out, err = runCLI(t, srv.URL, "", "model", "1")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", strings.TrimSpace(out))

	out, err = runCLI(t, srv.URL, "", "context", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "off")

	out, err = runCLI(t, srv.URL, "", "context", "1", "off")
	require.NoError(t, err, "same value is a no-op")
	assert.Contains(t, out, "off")

	out, err = runCLI(t, srv.URL, "", "conversations")
	require.NoError(t, err)
	assert.Contains(t, out, "Saludos")
	assert.Contains(t, out, "gpt-4")

	out, err = runCLI(t, srv.URL, "n\n", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	out, err = runCLI(t, srv.URL, "", "delete", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted conversation 1")

	out, err = runCLI(t, srv.URL, "", "conversations")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet")
}

func TestCLI_JSONOutput(t *testing.T) {
	isolate(t)
	srv, _ := newBackend(t)

	out, err := runCLI(t, srv.URL, "", "--json", "new")
	require.NoError(t, err)

	var resp struct {
		Success bool             `json:"success"`
		Command string           `json:"command"`
		Data    conversationData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "new", resp.Command)
	assert.Equal(t, "1", resp.Data.ID)
	assert.Equal(t, "Nueva Conversación", resp.Data.Name)
	assert.True(t, resp.Data.Context)

	out, err = runCLI(t, srv.URL, "", "--json", "models")
	require.NoError(t, err)
	var models struct {
		Data []map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.Len(t, models.Data, 2)
	assert.Equal(t, "gpt-3.5-turbo", models.Data[0]["id"])
	assert.Equal(t, "GPT-3.5-TURBO", models.Data[0]["label"])

	_, err = runCLI(t, srv.URL, "y\n", "--json", "delete", "1")
	assert.ErrorIs(t, err, ErrConfirmationRequired, "--json never prompts")
}

func TestCLI_AskReadsStdin(t *testing.T) {
	isolate(t)
	srv, _ := newBackend(t)

	_, err := runCLI(t, srv.URL, "", "new")
	require.NoError(t, err)

	out, err := runCLI(t, srv.URL, "línea uno\nlínea dos\n", "ask", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "> línea uno")
	assert.Contains(t, out, "> línea dos")

	_, err = runCLI(t, srv.URL, "   ", "ask", "1")
	assert.Error(t, err)
}

func TestCLI_Errors(t *testing.T) {
	isolate(t)
	srv, _ := newBackend(t)
	_, err := runCLI(t, srv.URL, "", "new")
	require.NoError(t, err)

	tests := []struct {
		name    string
		url     string
		args    []string
		wantErr string
	}{
		{"unknown history", srv.URL, []string{"history", "99"}, "no such conversation"},
		{"unknown rename", srv.URL, []string{"rename", "99", "x"}, "no such conversation"},
		{"unknown delete", srv.URL, []string{"delete", "99", "--yes"}, "no such conversation"},
		{"unreachable", "http://127.0.0.1:1", []string{"conversations"}, "backend unreachable"},
		{"missing args", srv.URL, []string{"ask"}, "requires at least 1 arg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, tc.url, "", tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	_, err = runCLI(t, srv.URL, "", "context", "1", "maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use on or off")

	_, err = runCLI(t, srv.URL, "", "model", "1", "davinci")
	require.Error(t, err, "backend rejects models outside the allowed list")
}

func TestCLI_Export(t *testing.T) {
	isolate(t)
	srv, _ := newBackend(t)
	dir := t.TempDir()

	_, err := runCLI(t, srv.URL, "", "new", "Viaje")
	require.NoError(t, err)

	_, err = runCLI(t, srv.URL, "", "export", "1", "-o", dir)
	assert.ErrorIs(t, err, export.ErrEmptyConversation)

	_, err = runCLI(t, srv.URL, "", "ask", "1", "hola")
	require.NoError(t, err)

	out, err := runCLI(t, srv.URL, "", "export", "1", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported conversation 1 to "+dir)

	out, err = runCLI(t, srv.URL, "", "--json", "export", "1", "-f", "json", "-o", dir)
	require.NoError(t, err)
	var resp struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "application/json", resp.Data["mime_type"])

	data, err := os.ReadFile(resp.Data["path"])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mensaje": "hola"`)
	assert.Contains(t, string(data), `"nombre": "Viaje"`)

	_, err = runCLI(t, srv.URL, "", "export", "1", "-f", "pdf")
	assert.ErrorContains(t, err, "unsupported export format")

	_, err = runCLI(t, srv.URL, "", "export", "42")
	assert.Error(t, err)
}

func TestCLI_RootRequiresTTY(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "http://127.0.0.1:5000", "")
	var ttyErr *TTYRequiredError
	require.ErrorAs(t, err, &ttyErr)
	assert.Contains(t, err.Error(), "flaskchat chat")
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "http://127.0.0.1:5000", "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestCLI_ConfigSetGet(t *testing.T) {
	dir := isolate(t)

	out, err := runCLI(t, "http://127.0.0.1:5000", "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), strings.TrimSpace(out))

	_, err = runCLI(t, "http://10.9.9.9:1234", "", "config", "set", "backend.timeout_secs", "90")
	require.NoError(t, err)

	root := NewRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"config", "get", "backend.timeout_secs"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "90", strings.TrimSpace(buf.String()))

	_, err = runCLI(t, "http://127.0.0.1:5000", "", "config", "set", "ui.theme", "neon")
	assert.Error(t, err, "invalid values are not written")

	_, err = runCLI(t, "http://127.0.0.1:5000", "", "config", "set", "chat.fallback_models", "a,b")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout_secs = 90")
	assert.NotContains(t, string(data), "neon")
	assert.NotContains(t, string(data), "10.9.9.9", "--url is never persisted")
}

func TestSetConfigValue_RejectsJSON(t *testing.T) {
	err := setConfigValue(filepath.Join(t.TempDir(), "config.json"), "ui.theme", "dark")
	assert.Error(t, err)
}

// =============================================================================
// CONFIRM / INPUT
// =============================================================================

func TestConfirm(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    ConfirmationOptions
		want    bool
		wantErr error
	}{
		{"yes flag", "", ConfirmationOptions{Yes: true}, true, nil},
		{"json mode", "y\n", ConfirmationOptions{JSONMode: true, Interactive: true}, false, ErrConfirmationRequired},
		{"not interactive", "y\n", ConfirmationOptions{}, false, ErrConfirmationRequired},
		{"answer y", "y\n", ConfirmationOptions{Interactive: true}, true, nil},
		{"answer sí", "sí\n", ConfirmationOptions{Interactive: true}, true, nil},
		{"answer no", "no\n", ConfirmationOptions{Interactive: true}, false, nil},
		{"eof", "", ConfirmationOptions{Interactive: true}, false, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := confirm(strings.NewReader(tc.input), io.Discard, "Delete?", tc.opts)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInteractiveInput(t *testing.T) {
	assert.True(t, interactiveInput(strings.NewReader("")))

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, interactiveInput(f), "regular files cannot answer prompts")
}

func TestMessageText(t *testing.T) {
	got, err := messageText(strings.NewReader("ignored"), []string{"hola", "mundo"})
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", got)

	got, err = messageText(strings.NewReader("desde stdin\n\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "desde stdin", got)
}

// =============================================================================
// REPL
// =============================================================================

// scriptedInput feeds fixed lines to the REPL, then io.EOF.
type scriptedInput struct {
	lines   []string
	prompts []string
}

func (s *scriptedInput) ReadInput(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func newTestSession(t *testing.T, baseURL string) (*session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cmd := &cobra.Command{Use: "chat"}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	s, err := openSession(cmd, &globalFlags{baseURL: baseURL}, sessionOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, &out, &errOut
}

func TestREPL_Session(t *testing.T) {
	isolate(t)
	srv, db := newBackend(t)
	s, out, errOut := newTestSession(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, s.open(ctx, ""))

	in := &scriptedInput{lines: []string{
		"hola antes de crear",
		"/new Prueba",
		"hola",
		"/model gpt-4",
		"/model",
		"/context",
		"/rename Renombrada",
		"/list",
		"/bogus",
		"/delete",
		"n",
		"/delete",
		"y",
		"/quit",
		"never read",
	}}
	require.NoError(t, runREPL(ctx, s, in))

	text := out.String()
	assert.Contains(t, text, "[Created conversation 1]")
	assert.Contains(t, text, "> hola")
	assert.Contains(t, text, "[Model: gpt-4]")
	assert.Contains(t, text, "Current model: gpt-4")
	assert.Contains(t, text, "Context: off")
	assert.Contains(t, text, "Renombrada")
	assert.Contains(t, text, "Cancelled.")
	assert.Contains(t, text, "[Deleted conversation 1]")
	assert.Equal(t, []string{"never read"}, in.lines, "/quit stops reading")

	errText := errOut.String()
	assert.Contains(t, errText, "no conversation selected")
	assert.Contains(t, errText, "unknown command: /bogus")

	assert.Contains(t, strings.Join(in.prompts, "\n"), "flaskchat[Prueba]>")

	convs, err := db.ListConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestREPL_UseShowsHistory(t *testing.T) {
	isolate(t)
	srv, db := newBackend(t)
	ctx := context.Background()

	first, err := db.CreateConversation(ctx, "Primera")
	require.NoError(t, err)
	require.NoError(t, db.AppendExchange(ctx, first.ID, "pregunta guardada", "respuesta guardada"))
	_, err = db.CreateConversation(ctx, "Segunda")
	require.NoError(t, err)

	s, out, _ := newTestSession(t, srv.URL)
	require.NoError(t, s.open(ctx, ""))

	in := &scriptedInput{lines: []string{"/use 1", "/history"}}
	require.NoError(t, runREPL(ctx, s, in))

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "pregunta guardada"))
	assert.Contains(t, text, "respuesta guardada")
}

func TestREPL_StopsOnCancel(t *testing.T) {
	isolate(t)
	srv, _ := newBackend(t)
	s, _, _ := newTestSession(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := &scriptedInput{lines: []string{"hola"}}
	require.NoError(t, runREPL(ctx, s, in))
	assert.Equal(t, []string{"hola"}, in.lines)
}

// =============================================================================
// SERVE
// =============================================================================

func TestPickResponder(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	r := pickResponder(context.Background(), config.ServerConfig{}, logger)
	assert.Equal(t, "echo", r.Name())

	r = pickResponder(context.Background(), config.ServerConfig{OllamaURL: "http://127.0.0.1:1"}, logger)
	assert.Equal(t, "echo", r.Name(), "unreachable ollama falls back to echo")
}

func TestRunServer_GracefulShutdown(t *testing.T) {
	dir := isolate(t)
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.DBPath = filepath.Join(dir, "serve.db")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, cfg, slog.New(slog.DiscardHandler)) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not stop")
	}
	_, err := os.Stat(cfg.Server.DBPath)
	assert.NoError(t, err, "database file created")
}

func TestDescribe(t *testing.T) {
	assert.NoError(t, describe(nil))
	plain := errors.New("boom")
	assert.Equal(t, plain, describe(plain))
}
