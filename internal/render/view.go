// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flaskchat-tui/internal/ui/styles"
	"github.com/jeranaias/flaskchat-tui/internal/util"
)

// Logo is shown in an empty feed.
const Logo = `  ___ _         _       ___ _         _
 | __| |__ _ __| |__   / __| |_  __ _| |_
 | _|| / _' (_-< / /  | (__| ' \/ _' |  _|
 |_| |_\__,_/__/_\_\   \___|_||_\__,_|\__|`

// EmptyHint is shown under the logo.
const EmptyHint = "Escribe un mensaje para empezar. Pulsa ? para ver los atajos."

// =============================================================================
// FEED
// =============================================================================

type feedKey struct {
	key   string
	width int
}

// Feed draws feed entries, caching rendered markdown per message and width.
type Feed struct {
	theme *styles.Theme

	mu    sync.Mutex
	md    Markdown
	cache map[feedKey]string
}

// NewFeed creates a feed drawer.
func NewFeed(md Markdown, theme *styles.Theme) *Feed {
	return &Feed{theme: theme, md: md, cache: make(map[feedKey]string)}
}

// SetMarkdown swaps the markdown renderer and drops cached output.
func (f *Feed) SetMarkdown(md Markdown, theme *styles.Theme) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.md = md
	f.theme = theme
	f.cache = make(map[feedKey]string)
}

// Draw renders entries into a single string width columns wide.
func (f *Feed) Draw(entries []FeedEntry, width int) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(entries) == 0 {
		return lipgloss.JoinVertical(lipgloss.Center,
			f.theme.Logo.Width(width).Render(Logo),
			"",
			f.theme.Hint.Width(width).Render(EmptyHint),
		)
	}

	// Bubble borders and margins take 8 columns.
	inner := width - 8
	if inner < 10 {
		inner = 10
	}

	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, f.entry(e, inner))
	}
	return strings.Join(blocks, "\n")
}

func (f *Feed) entry(e FeedEntry, width int) string {
	switch {
	case e.Notice:
		return f.theme.Notice.Render(Plain{}.wrap(e.Text, width))
	case e.IsUser:
		body := Plain{}.wrap(e.Text, width)
		return f.theme.RoleLabel.Render("Tú") + "\n" + f.theme.UserBubble.Render(body)
	}

	k := feedKey{key: e.Key, width: width}
	body, ok := f.cache[k]
	if !ok {
		body = RenderSafe(f.md, e.Text, width)
		if e.Key != "" {
			f.cache[k] = body
		}
	}
	return f.theme.RoleLabel.Render("Asistente") + "\n" + f.theme.AssistantBubble.Render(body)
}

// =============================================================================
// HEADER
// =============================================================================

// DrawHeader renders the conversation name, model selector and context
// switch on one line.
func DrawHeader(h Header, theme *styles.Theme, width int) string {
	if !h.HasActive {
		return theme.Header.Width(width).Render(theme.HeaderMeta.Render("Sin conversación"))
	}

	var models []string
	for _, m := range h.Models {
		if m.Selected {
			models = append(models, theme.ModelActive.Render("["+m.Label+"]"))
		} else {
			models = append(models, theme.ModelOption.Render(m.Label))
		}
	}

	sw := theme.SwitchOff.Render("contexto: off")
	if h.ContextEnabled {
		sw = theme.SwitchOn.Render("contexto: on")
	}

	right := strings.Join(models, " ") + "  " + sw
	if h.Busy {
		right = theme.SidebarBusy.Render(styles.StatusIndicators.Busy) + " " + right
	}

	// Header padding takes 2 columns.
	room := width - 2 - lipgloss.Width(right) - 2
	name := theme.HeaderTitle.Render(util.TruncateWidth(h.Name, room))
	gap := width - 2 - lipgloss.Width(name) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return theme.Header.Width(width).Render(name + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// SIDEBAR
// =============================================================================

// DrawSidebarRow renders one sidebar row width columns wide. selected is the
// cursor position, which may differ from the active conversation.
func DrawSidebarRow(it SidebarItem, theme *styles.Theme, width int, selected bool) string {
	marker := "  "
	if selected {
		marker = "> "
	}
	suffix := ""
	if it.Busy {
		suffix = " " + styles.StatusIndicators.Busy
	}

	room := width - 1 - util.StringWidth(marker) - util.StringWidth(suffix)
	name := util.TruncateWidth(it.Name, room)

	style := theme.SidebarItem
	if it.Active {
		style = theme.SidebarActive
	}
	if it.Editing {
		name = theme.SidebarEditing.Render(name)
	}
	if it.Busy {
		suffix = theme.SidebarBusy.Render(suffix)
	}
	return style.Render(marker + name + suffix)
}
