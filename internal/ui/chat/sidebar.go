// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"io"
	"sort"
	"unicode"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
	xrunes "golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/flaskchat-tui/internal/render"
	"github.com/jeranaias/flaskchat-tui/internal/ui/styles"
)

// =============================================================================
// SIDEBAR ITEMS
// =============================================================================

// convItem adapts a sidebar row to list.Item.
type convItem struct {
	render.SidebarItem
}

// FilterValue implements list.Item.
func (c convItem) FilterValue() string { return c.Name }

var _ list.Item = convItem{}

func sidebarItems(rows []render.SidebarItem) []list.Item {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = convItem{r}
	}
	return items
}

// =============================================================================
// SIDEBAR DELEGATE
// =============================================================================

// sidebarDelegate draws one conversation per line. The row being renamed
// shows the rename editor instead of the name.
type sidebarDelegate struct {
	theme     *styles.Theme
	editingID string
	editView  string
}

func (d sidebarDelegate) Height() int                             { return 1 }
func (d sidebarDelegate) Spacing() int                            { return 0 }
func (d sidebarDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d sidebarDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(convItem)
	if !ok {
		return
	}
	if d.editingID != "" && it.ID == d.editingID {
		fmt.Fprint(w, d.theme.SidebarEditing.Render("✎ ")+d.editView)
		return
	}
	fmt.Fprint(w, render.DrawSidebarRow(it.SidebarItem, d.theme, m.Width(), index == m.Index()))
}

// newSidebar creates the conversation list.
func newSidebar(theme *styles.Theme, width, height int) list.Model {
	l := list.New(nil, sidebarDelegate{theme: theme}, width, height)
	l.Title = "Conversaciones"
	l.Styles.Title = theme.SidebarTitle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.SetStatusBarItemName("conversación", "conversaciones")
	l.DisableQuitKeybindings()
	l.Filter = foldedFilter
	return l
}

// =============================================================================
// FILTER
// =============================================================================

// fold strips diacritics so "cancion" finds "Canción".
func fold(s string) string {
	t := transform.Chain(norm.NFD, xrunes.Remove(xrunes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// foldedFilter fuzzy-matches term against targets ignoring case and accents.
func foldedFilter(term string, targets []string) []list.Rank {
	folded := make([]string, len(targets))
	for i, t := range targets {
		folded[i] = fold(t)
	}

	matches := fuzzy.Find(fold(term), folded)
	sort.Stable(matches)

	ranks := make([]list.Rank, len(matches))
	for i, m := range matches {
		ranks[i] = list.Rank{Index: m.Index, MatchedIndexes: m.MatchedIndexes}
	}
	return ranks
}
