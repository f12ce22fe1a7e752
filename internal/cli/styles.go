// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flaskchat-tui/internal/ui/styles"
)

func init() {
	// Respects NO_COLOR, FORCE_COLOR and TTY detection.
	lipgloss.SetColorProfile(colorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command headings.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// PromptStyle is the line-mode prompt.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// UserStyle labels user messages.
	UserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.UserBubbleBorder)

	// AssistantStyle labels assistant messages.
	AssistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	// SuccessStyle reports completed operations.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	// ErrorStyle reports failures.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Rose)

	// WarningStyle marks local notices.
	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// DimStyle is for secondary information and hints.
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// SeparatorStyle is for horizontal rules.
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)

	// ActiveStyle highlights the active conversation in listings.
	ActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal rule of the given width, 70 if unset.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 70
	}
	return SeparatorStyle.Render(strings.Repeat("-", width))
}

// onOff renders a context flag.
func onOff(enabled bool) string {
	if enabled {
		return SuccessStyle.Render("on")
	}
	return DimStyle.Render("off")
}
