// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/flaskchat-tui/internal/ui/components"
	"github.com/jeranaias/flaskchat-tui/internal/ui/styles"
)

// Markdown modes accepted by NewMarkdown.
const (
	ModeGlamour = "glamour"
	ModeBasic   = "basic"
	ModePlain   = "plain"
)

// Markdown converts markdown source into terminal text wrapped to width.
type Markdown interface {
	Render(text string, width int) (string, error)
}

// NewMarkdown returns the renderer for mode. Unknown modes get glamour.
func NewMarkdown(mode string, theme *styles.Theme) Markdown {
	switch mode {
	case ModeBasic:
		return &BasicMarkdown{ChromaStyle: theme.ChromaStyle()}
	case ModePlain:
		return Plain{}
	default:
		return NewGlamour(theme.GlamourStyle())
	}
}

// RenderSafe renders text with md and falls back to the wrapped raw text when
// md returns an error or panics.
func RenderSafe(md Markdown, text string, width int) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = Plain{}.wrap(text, width)
		}
	}()
	if md == nil {
		return Plain{}.wrap(text, width)
	}
	rendered, err := md.Render(text, width)
	if err != nil {
		return Plain{}.wrap(text, width)
	}
	return rendered
}

// =============================================================================
// GLAMOUR
// =============================================================================

// GlamourMarkdown renders through glamour, keeping one renderer per width.
type GlamourMarkdown struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

// NewGlamour creates a glamour renderer for a standard style name such as
// "dark" or "light".
func NewGlamour(style string) *GlamourMarkdown {
	return &GlamourMarkdown{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Render implements Markdown.
func (g *GlamourMarkdown) Render(text string, width int) (string, error) {
	r, err := g.renderer(width)
	if err != nil {
		return "", err
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("glamour render: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

func (g *GlamourMarkdown) renderer(width int) (*glamour.TermRenderer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(g.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("glamour renderer: %w", err)
	}
	g.renderers[width] = r
	return r, nil
}

// =============================================================================
// BASIC
// =============================================================================

// BasicMarkdown wraps prose, styles inline code and highlights fenced blocks
// with chroma. It is the fallback for terminals where glamour looks wrong.
type BasicMarkdown struct {
	ChromaStyle string
}

// Render implements Markdown.
func (b *BasicMarkdown) Render(text string, width int) (string, error) {
	var parts []string
	for _, seg := range components.SplitFences(text) {
		if seg.Code {
			cb := components.NewCodeBlock(seg.Language, seg.Text)
			cb.MaxWidth = width
			cb.Style = b.ChromaStyle
			parts = append(parts, cb.Render())
			continue
		}
		parts = append(parts, components.ParseInlineCode(Plain{}.wrap(seg.Text, width)))
	}
	return strings.Join(parts, "\n"), nil
}

// =============================================================================
// PLAIN
// =============================================================================

// Plain shows the source text word-wrapped.
type Plain struct{}

// Render implements Markdown.
func (p Plain) Render(text string, width int) (string, error) {
	return p.wrap(text, width), nil
}

func (Plain) wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}
