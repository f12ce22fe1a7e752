// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flaskchat-tui/internal/controller"
	"github.com/jeranaias/flaskchat-tui/internal/render"
	"github.com/jeranaias/flaskchat-tui/internal/ui/components"
	"github.com/jeranaias/flaskchat-tui/internal/ui/styles"
	"github.com/jeranaias/flaskchat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Cargando..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), m.mainView())

	switch {
	case m.focus == focusConfirm:
		body = m.overlay(m.confirmView())
	case m.focus == focusPicker:
		body = m.overlay(m.pickerView())
	case m.helpOpen:
		body = m.overlay(m.helpView())
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusView())
}

func (m Model) sidebarView() string {
	l := m.sidebar
	l.SetDelegate(sidebarDelegate{
		theme:     m.theme,
		editingID: m.renamingID,
		editView:  m.rename.View(),
	})

	content := l.View()
	if len(m.frame.Sidebar) == 0 {
		content = m.theme.SidebarTitle.Render(l.Title) + "\n" +
			m.theme.Hint.Render("Sin conversaciones.\nPulsa n para crear una.")
	}
	return m.theme.Sidebar.
		Width(m.sidebarWidth()).
		Height(m.height - statusHeight).
		Render(content)
}

func (m Model) mainView() string {
	width := m.mainWidth()
	header := render.DrawHeader(m.frame.Header, m.theme, width)

	feed := m.viewport.View()
	if m.frame.State == controller.StateLoading && len(m.frame.Feed) == 0 {
		feed = lipgloss.Place(width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Cargando mensajes...")
	}
	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		feed = overlayBottom(feed, components.RenderToastStack(toasts, width), m.viewport.Height)
	}

	box := m.theme.InputBox
	if m.focus == focusPrompt {
		box = m.theme.InputBoxFocused
	}
	input := box.Width(width - 2).Render(m.prompt.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, feed, input)
}

func (m Model) statusView() string {
	var left string
	switch {
	case m.frame.Creating:
		left = m.spinner.View() + " creando conversación"
	case m.frame.Header.Busy:
		left = m.spinner.View() + " esperando al servidor"
	case m.frame.State == controller.StateLoading:
		left = m.spinner.View() + " cargando"
	case m.frame.State == controller.StateError:
		left = m.theme.ErrorStyle.Render(styles.StatusIndicators.Error + " error")
	default:
		left = m.theme.SuccessStyle.Render(styles.StatusIndicators.Success)
	}

	right := ""
	if m.showHelp {
		h := m.help
		h.Width = m.width - 2 - lipgloss.Width(left) - 1
		right = h.ShortHelpView(m.keys.ShortHelp())
	}

	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) overlay(dialog string) string {
	return lipgloss.Place(m.width, m.height-statusHeight, lipgloss.Center, lipgloss.Center, dialog)
}

func (m Model) confirmView() string {
	title := m.theme.DialogTitle.Render("¿Eliminar la conversación?")
	name := m.theme.HeaderTitle.Render(util.TruncateWidth(m.confirmName, 40))
	hint := m.theme.ShortcutKey.Render("y") + m.theme.ShortcutDesc.Render(" eliminar   ") +
		m.theme.ShortcutKey.Render("n") + m.theme.ShortcutDesc.Render(" cancelar")
	return m.theme.Dialog.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", name, "", hint))
}

func (m Model) pickerView() string {
	rows := []string{m.theme.SidebarTitle.Render("Modelo")}
	for i, c := range m.frame.Header.Models {
		marker := "  "
		if i == m.pickerCursor {
			marker = "> "
		}
		label := c.Label
		if c.Selected {
			label += " " + styles.StatusIndicators.Active
		}
		style := m.theme.ModelOption
		if i == m.pickerCursor {
			style = m.theme.ModelActive
		}
		rows = append(rows, style.Render(marker+label))
	}
	return m.theme.Dialog.Render(strings.Join(rows, "\n"))
}

func (m Model) helpView() string {
	h := m.help
	h.ShowAll = true
	return m.theme.Dialog.Render(h.View(m.keys))
}

// overlayBottom replaces the last lines of base with over, keeping height
// lines in total.
func overlayBottom(base, over string, height int) string {
	baseLines := strings.Split(base, "\n")
	overLines := strings.Split(over, "\n")
	for len(baseLines) < height {
		baseLines = append(baseLines, "")
	}
	if len(overLines) > len(baseLines) {
		overLines = overLines[len(overLines)-len(baseLines):]
	}
	copy(baseLines[len(baseLines)-len(overLines):], overLines)
	return strings.Join(baseLines, "\n")
}
