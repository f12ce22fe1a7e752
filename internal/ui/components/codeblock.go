// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable widgets for the flaskchat TUI.
package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flaskchat-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock is a fenced code block from an assistant reply.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
	// Style is a chroma style name. Empty means monokai.
	Style string
}

// NewCodeBlock creates a code block with an 80 column limit.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
	}
}

// Render highlights the code and frames it with line numbers and a language
// badge.
func (c CodeBlock) Render() string {
	code := strings.TrimRight(c.Code, "\n ")
	lines := strings.Split(highlightCode(code, c.Language, c.Style), "\n")

	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	rendered := make([]string, 0, len(lines))
	for i, line := range lines {
		rendered = append(rendered, lineNumStyle.Render(strconv.Itoa(i+1))+line)
	}

	var header string
	if c.Language != "" {
		header = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Background(styles.OverlayDim).
			Padding(0, 1).
			Bold(true).
			Render(c.Language) + "\n"
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(header + strings.Join(rendered, "\n"))
}

// =============================================================================
// MARKDOWN CODE BLOCK PARSER
// =============================================================================

// Segment is a run of either prose or fenced code.
type Segment struct {
	Code     bool
	Language string
	Text     string
}

// SplitFences splits markdown into prose and fenced code segments. An
// unclosed fence runs to the end of the text.
func SplitFences(text string) []Segment {
	var (
		segs   []Segment
		buf    []string
		inCode bool
		lang   string
	)
	flush := func(code bool) {
		if len(buf) == 0 && !code {
			return
		}
		segs = append(segs, Segment{Code: code, Language: lang, Text: strings.Join(buf, "\n")})
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				flush(true)
				lang = ""
			} else {
				flush(false)
				lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			}
			inCode = !inCode
			continue
		}
		buf = append(buf, line)
	}
	flush(inCode)
	return segs
}

// RenderInlineCode renders inline code with a subtle background.
func RenderInlineCode(code string) string {
	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.Cyan).
		Render(code)
}

// ParseInlineCode replaces `code` spans with styled inline code. An unclosed
// backtick is kept literally.
func ParseInlineCode(text string) string {
	var result, code strings.Builder
	inCode := false

	for _, r := range text {
		switch {
		case r == '`' && inCode:
			result.WriteString(RenderInlineCode(code.String()))
			code.Reset()
			inCode = false
		case r == '`':
			inCode = true
		case inCode:
			code.WriteRune(r)
		default:
			result.WriteRune(r)
		}
	}
	if inCode {
		result.WriteString("`")
		result.WriteString(code.String())
	}
	return result.String()
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode returns code with terminal256 escapes, or code unchanged when
// chroma cannot tokenise it.
func highlightCode(code, language, styleName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	if styleName == "" {
		styleName = "monokai"
	}
	style := chromaStyles.Get(styleName)

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
