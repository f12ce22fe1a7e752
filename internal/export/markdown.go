// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown. Message bodies are written as
// is, they are Markdown already.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	conv := t.Conversation
	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(t.Title()))
		fmt.Fprintf(&sb, "conversation: %s\n", escapeYAML(conv.ID))
		if conv.ModelID != "" {
			fmt.Fprintf(&sb, "model: %s\n", escapeYAML(conv.ModelID))
		}
		fmt.Fprintf(&sb, "context: %t\n", conv.ContextEnabled)
		fmt.Fprintf(&sb, "messages: %d\n", len(t.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", t.ExportedAt.Format(time.RFC3339))
		sb.WriteString("generator: flaskchat\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(t.Title()))

	if e.options.IncludeMetadata {
		sb.WriteString(e.sessionInfo(t))
	}

	for i, msg := range t.Messages {
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", roleLabel(msg), formatShortTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", roleLabel(msg))
		}
		sb.WriteString(strings.TrimSpace(msg.Text))
		sb.WriteString("\n\n")

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&sb, "\n---\n\n*Exported from flaskchat on %s*\n",
		t.ExportedAt.Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

func (e *MarkdownExporter) sessionInfo(t *Transcript) string {
	conv := t.Conversation
	var sb strings.Builder
	sb.WriteString("## Session Information\n\n")
	modelName := conv.ModelID
	if modelName == "" {
		modelName = "default"
	}
	fmt.Fprintf(&sb, "- **Model**: %s\n", modelName)
	fmt.Fprintf(&sb, "- **Context**: %s\n", onOff(conv.ContextEnabled))
	fmt.Fprintf(&sb, "- **Messages**: %d\n", len(t.Messages))
	if first, last := firstAndLast(t.Messages); !first.IsZero() {
		fmt.Fprintf(&sb, "- **Started**: %s\n", formatTimestamp(first))
		fmt.Fprintf(&sb, "- **Last Message**: %s\n", formatTimestamp(last))
	}
	sb.WriteString("\n---\n\n")
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
		"\n", " ",
	)
	return r.Replace(s)
}

// escapeYAML quotes values that contain YAML syntax.
func escapeYAML(s string) string {
	if s == "" || strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") ||
		strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(
			"\\", "\\\\",
			"\"", "\\\"",
			"\n", "\\n",
			"\r", "\\r",
		)
		return "\"" + r.Replace(s) + "\""
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
