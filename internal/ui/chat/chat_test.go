// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flaskchat-tui/internal/controller"
	"github.com/jeranaias/flaskchat-tui/internal/export"
	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// =============================================================================
// STUB BACKEND
// =============================================================================

type stubBackend struct {
	mu    sync.Mutex
	convs []model.Conversation
	calls []string
	fail  error
}

func (s *stubBackend) record(format string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
	return s.fail
}

func (s *stubBackend) called(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (s *stubBackend) ListConversations(context.Context) ([]model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Conversation(nil), s.convs...), nil
}

func (s *stubBackend) CreateConversation(_ context.Context, name string) (model.Conversation, error) {
	if err := s.record("create %s", name); err != nil {
		return model.Conversation{}, err
	}
	return model.Conversation{ID: "99", Name: name, ModelID: "gpt-3.5-turbo", ContextEnabled: true}, nil
}

func (s *stubBackend) RenameConversation(_ context.Context, id, name string) (string, error) {
	return name, s.record("rename %s %s", id, name)
}

func (s *stubBackend) DeleteConversation(_ context.Context, id string) error {
	return s.record("delete %s", id)
}

func (s *stubBackend) GetMessages(context.Context, string) ([]model.Message, error) {
	return nil, nil
}

func (s *stubBackend) SendMessage(_ context.Context, id, text string) (string, error) {
	return "respuesta", s.record("send %s %q", id, text)
}

func (s *stubBackend) ToggleContext(_ context.Context, id string, enabled bool) (bool, error) {
	return enabled, s.record("context %s %v", id, enabled)
}

func (s *stubBackend) GetModel(context.Context, string) (string, error) {
	return "", errors.New("not needed")
}

func (s *stubBackend) SetModel(_ context.Context, id, modelID string) (string, error) {
	return modelID, s.record("model %s %s", id, modelID)
}

func (s *stubBackend) ListModels(context.Context) ([]string, error) {
	return []string{"gpt-4", "gpt-3.5-turbo"}, nil
}

// =============================================================================
// HARNESS
// =============================================================================

func newTestModel(t *testing.T) (Model, *stubBackend) {
	t.Helper()
	sb := &stubBackend{convs: []model.Conversation{
		{ID: "1", Name: "Recetas", ModelID: "gpt-4", ContextEnabled: true},
		{ID: "2", Name: "Viajes", ModelID: "gpt-3.5-turbo"},
	}}
	bridge := NewBridge()
	ctl := controller.New(sb, controller.Options{OnChange: bridge.OnChange})
	require.NoError(t, ctl.Load(context.Background()))

	m := New(ctl, bridge, Options{Theme: "dark", Markdown: "plain", ShowHelp: true})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, sb
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runOp executes a controller command and feeds its result back.
func runOp(t *testing.T, m Model, cmd tea.Cmd) (Model, opDoneMsg) {
	t.Helper()
	require.NotNil(t, cmd)
	done, ok := cmd().(opDoneMsg)
	require.True(t, ok, "command did not run a controller operation")
	m = update(t, m, done)
	return update(t, m, changeMsg{}), done
}

// =============================================================================
// PROMPT
// =============================================================================

func TestPrompt_EnterWhileLoadingKeepsDraft(t *testing.T) {
	m, sb := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, runes("hola"))
	m.frame.State = controller.StateLoading

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "hola", m.prompt.Value())
	assert.Empty(t, sb.called("send"))
	require.NotEmpty(t, m.toasts.Toasts())
	assert.Contains(t, m.toasts.Toasts()[0].Message, "Cargando")
}

func TestPrompt_EnterSends(t *testing.T) {
	m, sb := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusPrompt, m.focus)
	m, _ = press(t, m, runes("hola"))

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.prompt.Value(), "prompt should clear on send")

	m, done := runOp(t, m, cmd)
	require.NoError(t, done.err)
	assert.Equal(t, []string{`send 1 "hola"`}, sb.called("send"))
	require.Len(t, m.frame.Feed, 2)
	assert.Equal(t, "respuesta", m.frame.Feed[1].Text)
}

func TestPrompt_NewlineKeysDoNotSend(t *testing.T) {
	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyEnter, Alt: true},
		{Type: tea.KeyCtrlJ},
	} {
		t.Run(k.String(), func(t *testing.T) {
			m, sb := newTestModel(t)
			m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

			m, _ = press(t, m, runes("a"))
			m, cmd := press(t, m, k)
			m, _ = press(t, m, runes("b"))

			assert.Nil(t, cmd)
			assert.Equal(t, "a\nb", m.prompt.Value())
			assert.Empty(t, sb.called("send"))
		})
	}
}

func TestPrompt_BlankEnterIsIgnored(t *testing.T) {
	m, sb := newTestModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, runes("   "))

	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, sb.called("send"))
}

// =============================================================================
// RENAME
// =============================================================================

func TestRename(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		key      tea.KeyMsg
		wantCall string
	}{
		{"enter commits", "Cocina", tea.KeyMsg{Type: tea.KeyEnter}, "rename 1 Cocina"},
		{"blur commits", "Cocina", tea.KeyMsg{Type: tea.KeyTab}, "rename 1 Cocina"},
		{"trims", "  Cocina  ", tea.KeyMsg{Type: tea.KeyEnter}, "rename 1 Cocina"},
		{"esc cancels", "Cocina", tea.KeyMsg{Type: tea.KeyEsc}, ""},
		{"empty cancels", "   ", tea.KeyMsg{Type: tea.KeyEnter}, ""},
		{"unchanged cancels", "Recetas", tea.KeyMsg{Type: tea.KeyEnter}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, sb := newTestModel(t)

			m, _ = press(t, m, runes("e"))
			require.Equal(t, focusRename, m.focus)
			require.Equal(t, "1", m.renamingID)
			assert.True(t, m.frame.Sidebar[0].Editing)
			assert.Equal(t, "Recetas", m.rename.Value())

			m.rename.SetValue(tc.value)
			m, cmd := press(t, m, tc.key)

			assert.Equal(t, focusSidebar, m.focus)
			assert.Empty(t, m.renamingID)
			if tc.wantCall == "" {
				assert.Nil(t, cmd)
				assert.Empty(t, sb.called("rename"))
				assert.Equal(t, "Recetas", m.frame.Sidebar[0].Name)
				return
			}

			m, done := runOp(t, m, cmd)
			require.NoError(t, done.err)
			assert.Equal(t, []string{tc.wantCall}, sb.called("rename"))
			assert.Equal(t, "Cocina", m.frame.Sidebar[0].Name)
		})
	}
}

func TestRename_FailureKeepsNameAndToasts(t *testing.T) {
	m, sb := newTestModel(t)
	sb.fail = errors.New("boom")

	m, _ = press(t, m, runes("e"))
	m.rename.SetValue("Cocina")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, done := runOp(t, m, cmd)

	require.Error(t, done.err)
	assert.Equal(t, "Recetas", m.frame.Sidebar[0].Name)
	toasts := m.toasts.Toasts()
	require.Len(t, toasts, 1)
	assert.Contains(t, toasts[0].Message, "renombrar")
}

// =============================================================================
// DELETE / CREATE / CONTROLS
// =============================================================================

func TestDelete_RequiresConfirmation(t *testing.T) {
	m, sb := newTestModel(t)

	m, _ = press(t, m, runes("d"))
	require.Equal(t, focusConfirm, m.focus)
	assert.Contains(t, m.View(), "Recetas")

	m, cmd := press(t, m, runes("n"))
	assert.Nil(t, cmd)
	assert.Equal(t, focusSidebar, m.focus)
	assert.Empty(t, sb.called("delete"))

	m, _ = press(t, m, runes("d"))
	m, cmd = press(t, m, runes("y"))
	m, done := runOp(t, m, cmd)

	require.NoError(t, done.err)
	assert.Equal(t, []string{"delete 1"}, sb.called("delete"))
	require.Len(t, m.frame.Sidebar, 1)
	assert.Equal(t, "2", m.frame.ActiveID)
}

func TestCreate_SelectsAndFocusesPrompt(t *testing.T) {
	m, sb := newTestModel(t)

	m, cmd := press(t, m, runes("n"))
	m, done := runOp(t, m, cmd)

	require.NoError(t, done.err)
	assert.Equal(t, []string{"create Nueva Conversación"}, sb.called("create"))
	assert.Equal(t, "99", m.frame.ActiveID)
	assert.Equal(t, 0, m.sidebar.Index())
	assert.Equal(t, focusPrompt, m.focus)
}

func TestContext_TogglesActive(t *testing.T) {
	m, sb := newTestModel(t)
	require.True(t, m.frame.Header.ContextEnabled)

	m, cmd := press(t, m, runes("c"))
	m, _ = runOp(t, m, cmd)

	assert.Equal(t, []string{"context 1 false"}, sb.called("context"))
	assert.False(t, m.frame.Header.ContextEnabled)
}

func TestExport_SavesActiveTranscript(t *testing.T) {
	m, _ := newTestModel(t)
	m.opts.ExportDir = t.TempDir()

	_, cmd := press(t, m, runes("s"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(exportMsg)
	require.True(t, ok)
	assert.ErrorIs(t, msg.err, export.ErrEmptyConversation)

	require.NoError(t, m.ctl.SendMessage(context.Background(), "hola"))
	m = update(t, m, changeMsg{})

	_, cmd = press(t, m, runes("s"))
	require.NotNil(t, cmd)
	msg, ok = cmd().(exportMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.Equal(t, m.opts.ExportDir, filepath.Dir(msg.path))

	data, err := os.ReadFile(msg.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Recetas")
	assert.Contains(t, string(data), "respuesta")

	m = update(t, m, msg)
	toasts := m.toasts.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, "Guardado en "+msg.path, toasts[0].Message)
}

func TestModelPicker(t *testing.T) {
	m, sb := newTestModel(t)

	m, _ = press(t, m, runes("m"))
	require.Equal(t, focusPicker, m.focus)
	require.Len(t, m.frame.Header.Models, 2)
	// Sorted: gpt-3.5-turbo, gpt-4 (selected).
	assert.Equal(t, 1, m.pickerCursor)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = runOp(t, m, cmd)

	assert.Equal(t, []string{"model 1 gpt-3.5-turbo"}, sb.called("model"))
	sel, ok := m.frame.Header.SelectedModel()
	require.True(t, ok)
	assert.Equal(t, "gpt-3.5-turbo", sel.ID)
	assert.Equal(t, focusSidebar, m.focus)
}

func TestModelPicker_EscCancels(t *testing.T) {
	m, sb := newTestModel(t)

	m, _ = press(t, m, runes("m"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.Equal(t, focusSidebar, m.focus)
	assert.Empty(t, sb.called("model"))
}

func TestSelect_LoadsConversation(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, done := runOp(t, m, cmd)

	require.NoError(t, done.err)
	assert.Equal(t, "2", m.frame.ActiveID)
	assert.Equal(t, "Viajes", m.frame.Header.Name)
}

// =============================================================================
// PLUMBING
// =============================================================================

func TestBridge_DropsWhenFull(t *testing.T) {
	b := NewBridge()
	for i := 0; i < cap(b.ch)+10; i++ {
		b.OnChange(controller.Event{Kind: controller.EventMessages})
	}
	assert.Len(t, b.ch, cap(b.ch))

	msg := b.Wait()()
	_, ok := msg.(changeMsg)
	assert.True(t, ok)
}

func TestFoldedFilter_IgnoresAccents(t *testing.T) {
	targets := []string{"Canción de cuna", "Viajes", "Recetas"}

	ranks := foldedFilter("cancion", targets)
	require.Len(t, ranks, 1)
	assert.Equal(t, 0, ranks[0].Index)

	assert.Empty(t, foldedFilter("xyz", targets))
}

func TestView_RendersLayout(t *testing.T) {
	m, _ := newTestModel(t)
	out := m.View()

	assert.Contains(t, out, "Conversaciones")
	assert.Contains(t, out, "Recetas")
	assert.Contains(t, out, "Viajes")
	assert.Contains(t, out, "contexto: on")
}

func TestDescribeFailure(t *testing.T) {
	got := describeFailure(opDelete, errors.New("x"))
	assert.Equal(t, "No se pudo eliminar la conversación: error del servidor", got)
}
