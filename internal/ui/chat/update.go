// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flaskchat-tui/internal/api"
	"github.com/jeranaias/flaskchat-tui/internal/controller"
	"github.com/jeranaias/flaskchat-tui/internal/export"
	"github.com/jeranaias/flaskchat-tui/internal/render"
	"github.com/jeranaias/flaskchat-tui/internal/ui/components"
	"github.com/jeranaias/flaskchat-tui/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshFeed()
		return m, nil

	case changeMsg:
		cmds = append(cmds, m.refresh(), m.bridge.Wait(), m.startSpinner())
		return m, tea.Batch(cmds...)

	case opDoneMsg:
		cmd := m.handleOpDone(msg)
		return m, cmd

	case configReloadMsg:
		m.applyConfig(msg)
		cmd := tea.Batch(m.bridge.Wait(), m.toast(components.ToastKindStatus, "Configuración recargada"))
		return m, cmd

	case configErrorMsg:
		m.log.Warn("config reload failed", "err", msg.err)
		cmd := tea.Batch(m.bridge.Wait(), m.toast(components.ToastKindWarning, "Configuración no válida: "+msg.err.Error()))
		return m, cmd

	case exportMsg:
		switch {
		case errors.Is(msg.err, export.ErrEmptyConversation):
			cmd := m.toast(components.ToastKindStatus, "La conversación no tiene mensajes")
			return m, cmd
		case msg.err != nil:
			m.log.Warn("export failed", "err", msg.err)
			cmd := m.toast(components.ToastKindError, "No se pudo guardar: "+msg.err.Error())
			return m, cmd
		}
		m.log.Info("transcript saved", "path", msg.path)
		cmd := m.toast(components.ToastKindSuccess, "Guardado en "+msg.path)
		return m, cmd

	case clipboardMsg:
		if msg.err != nil {
			cmd := m.toast(components.ToastKindError, "No se pudo copiar: "+msg.err.Error())
			return m, cmd
		}
		cmd := m.toast(components.ToastKindSuccess, "Respuesta copiada")
		return m, cmd

	case spinner.TickMsg:
		if !m.frame.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			return m, components.ToastTickCmd()
		}
		m.toastTicking = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Blink, paste and filter results go to the focused widget.
	var cmd tea.Cmd
	switch m.focus {
	case focusPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case focusRename:
		m.rename, cmd = m.rename.Update(msg)
	default:
		m.sidebar, cmd = m.sidebar.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.focus {
	case focusConfirm:
		return m.handleConfirmKey(msg)
	case focusPicker:
		return m.handlePickerKey(msg)
	case focusRename:
		return m.handleRenameKey(msg)
	case focusPrompt:
		return m.handlePromptKey(msg)
	default:
		return m.handleSidebarKey(msg)
	}
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.helpOpen && (key.Matches(msg, m.keys.Cancel) || key.Matches(msg, m.keys.Help)) {
		m.helpOpen = false
		return m, nil
	}
	// While typing a filter every key belongs to the list.
	if m.sidebar.SettingFilter() {
		var cmd tea.Cmd
		m.sidebar, cmd = m.sidebar.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.helpOpen = !m.helpOpen
		return m, nil
	case key.Matches(msg, m.keys.SwitchFocus):
		cmd := m.focusPrompt()
		return m, cmd
	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.Dismiss()
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		if it.ID == m.frame.ActiveID {
			cmd := m.focusPrompt()
			return m, cmd
		}
		return m, m.selectCmd(it.ID)

	case key.Matches(msg, m.keys.Rename):
		if it, ok := m.selectedItem(); ok {
			cmd := m.startRename(it)
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if it, ok := m.selectedItem(); ok {
			m.confirmID, m.confirmName = it.ID, it.Name
			m.focus = focusConfirm
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		return m, m.createCmd()

	case key.Matches(msg, m.keys.Model):
		cmd := m.openPicker()
		return m, cmd

	case key.Matches(msg, m.keys.Context):
		if !m.frame.Header.HasActive {
			return m, nil
		}
		return m, m.toggleContextCmd(m.frame.ActiveID, !m.frame.Header.ContextEnabled)

	case key.Matches(msg, m.keys.Copy):
		if reply, ok := m.frame.LastReply(); ok {
			return m, copyCmd(reply)
		}
		cmd := m.toast(components.ToastKindStatus, "No hay respuesta que copiar")
		return m, cmd

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()
	}

	var cmd tea.Cmd
	m.sidebar, cmd = m.sidebar.Update(msg)
	return m, cmd
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Newline):
		m.prompt.InsertString("\n")
		return m, nil

	case key.Matches(msg, m.keys.Send):
		text := m.prompt.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		if !m.frame.Header.HasActive {
			cmd := m.toast(components.ToastKindWarning, "Crea una conversación primero (n)")
			return m, cmd
		}
		// The draft stays in the prompt until the history is in.
		if m.frame.State == controller.StateLoading {
			cmd := m.toast(components.ToastKindStatus, "Cargando mensajes, espera un momento")
			return m, cmd
		}
		m.prompt.Reset()
		return m, m.sendCmd(text)

	case key.Matches(msg, m.keys.SwitchFocus), key.Matches(msg, m.keys.Cancel):
		m.prompt.Blur()
		m.focus = focusSidebar
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) focusPrompt() tea.Cmd {
	m.focus = focusPrompt
	return m.prompt.Focus()
}

// =============================================================================
// INLINE RENAME
// =============================================================================

func (m *Model) startRename(it render.SidebarItem) tea.Cmd {
	m.renamingID = it.ID
	m.renamingFrom = it.Name
	m.rename.SetValue(it.Name)
	m.rename.CursorEnd()
	m.focus = focusRename
	m.refresh()
	return m.rename.Focus()
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEnter:
		cmd := m.commitRename()
		return m, cmd
	case msg.Type == tea.KeyEsc:
		m.endRename()
		m.refresh()
		return m, nil
	case msg.Type == tea.KeyTab, msg.Type == tea.KeyShiftTab,
		msg.Type == tea.KeyUp, msg.Type == tea.KeyDown:
		// Focus leaving the editor commits it.
		cmd := m.commitRename()
		return m, cmd
	}

	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

// commitRename ends the edit and issues the rename. Empty and unchanged values
// cancel without a call.
func (m *Model) commitRename() tea.Cmd {
	id, from := m.renamingID, m.renamingFrom
	name := strings.TrimSpace(m.rename.Value())
	m.endRename()
	m.refresh()

	if name == "" || name == from {
		return nil
	}
	return m.renameCmd(id, name)
}

func (m *Model) endRename() {
	m.renamingID, m.renamingFrom = "", ""
	m.rename.Blur()
	m.rename.Reset()
	if m.focus == focusRename {
		m.focus = focusSidebar
	}
}

// =============================================================================
// DELETE CONFIRMATION
// =============================================================================

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		id := m.confirmID
		m.closeConfirm()
		return m, m.deleteCmd(id)
	case key.Matches(msg, m.keys.Deny):
		m.closeConfirm()
	}
	return m, nil
}

func (m *Model) closeConfirm() {
	m.confirmID, m.confirmName = "", ""
	if m.focus == focusConfirm {
		m.focus = focusSidebar
	}
}

// =============================================================================
// MODEL PICKER
// =============================================================================

func (m *Model) openPicker() tea.Cmd {
	if !m.frame.Header.HasActive || len(m.frame.Header.Models) == 0 {
		return nil
	}
	m.pickerID = m.frame.ActiveID
	m.pickerCursor = 0
	for i, c := range m.frame.Header.Models {
		if c.Selected {
			m.pickerCursor = i
		}
	}
	m.focus = focusPicker
	return nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	choices := m.frame.Header.Models
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.pickerCursor < len(choices)-1 {
			m.pickerCursor++
		}
	case msg.Type == tea.KeyEnter:
		id := m.pickerID
		m.closePicker()
		if m.pickerCursor < len(choices) {
			return m, m.setModelCmd(id, choices[m.pickerCursor].ID)
		}
	case key.Matches(msg, m.keys.Cancel):
		m.closePicker()
	}
	return m, nil
}

func (m *Model) closePicker() {
	m.pickerID = ""
	if m.focus == focusPicker {
		m.focus = focusSidebar
	}
}

// =============================================================================
// RESULTS
// =============================================================================

// handleOpDone turns an operation outcome into a toast. Send and load
// failures already show a notice in the feed.
func (m *Model) handleOpDone(msg opDoneMsg) tea.Cmd {
	err := msg.err
	switch {
	case err == nil:
		if msg.op == opCreate {
			return m.focusPrompt()
		}
		return nil
	case errors.Is(err, controller.ErrBusy):
		return m.toast(components.ToastKindWarning, "Hay una operación en curso para esta conversación")
	case controller.IsValidation(err):
		m.log.Debug("operation rejected", "op", msg.op, "conversation_id", msg.id, "err", err)
		return nil
	case msg.op == opSend || msg.op == opSelect:
		return nil
	}
	return m.toast(components.ToastKindError, describeFailure(msg.op, err))
}

// describeFailure words a network failure for a toast.
func describeFailure(op string, err error) string {
	action := map[string]string{
		opLoad:    "cargar las conversaciones",
		opRename:  "renombrar la conversación",
		opDelete:  "eliminar la conversación",
		opCreate:  "crear la conversación",
		opContext: "cambiar el contexto",
		opModel:   "cambiar el modelo",
	}[op]
	if action == "" {
		action = op
	}

	reason := "error del servidor"
	switch {
	case api.IsUnreachable(err):
		reason = "servidor no disponible"
	case api.IsTimeout(err):
		reason = "tiempo de espera agotado"
	case api.IsNotFound(err):
		reason = "la conversación ya no existe"
	}
	return "No se pudo " + action + ": " + reason
}

func (m *Model) toast(kind components.ToastKind, text string) tea.Cmd {
	m.toasts.Add(kind, text)
	if m.toastTicking {
		return nil
	}
	m.toastTicking = true
	return components.ToastTickCmd()
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning || !m.frame.Busy() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// applyConfig swaps theme and markdown mode after a config reload.
func (m *Model) applyConfig(msg configReloadMsg) {
	ui := msg.cfg.UI
	m.opts.Theme, m.opts.Markdown, m.opts.ShowHelp = ui.Theme, ui.Markdown, ui.ShowHelp
	if ui.SidebarWidth > 0 {
		m.opts.SidebarWidth = ui.SidebarWidth
	}
	m.showHelp = ui.ShowHelp
	m.opts.ExportDir = ui.ExportDir

	m.theme = styles.NewTheme(ui.Theme)
	m.feed.SetMarkdown(render.NewMarkdown(ui.Markdown, m.theme), m.theme)
	m.sidebar.SetDelegate(sidebarDelegate{theme: m.theme})
	m.sidebar.Styles.Title = m.theme.SidebarTitle
	m.spinner.Style = m.theme.Spinner
	m.log.Info("config reloaded", "theme", ui.Theme, "markdown", ui.Markdown)

	m.layout()
	m.refreshFeed()
}
