// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page with
// embedded CSS. Message bodies go through goldmark, which drops raw HTML.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options: opts,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"es\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(t.Title()))
	sb.WriteString("    <meta name=\"generator\" content=\"flaskchat\">\n")
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(t))
	} else {
		fmt.Fprintf(&sb, "        <header class=\"header\"><h1>%s</h1></header>\n", html.EscapeString(t.Title()))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range t.Messages {
		body, err := e.renderMessage(msg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(body)
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>flaskchat</strong> on %s</p>\n",
		t.ExportedAt.Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString(script)
	sb.WriteString("</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(t *Transcript) string {
	conv := t.Conversation
	modelName := conv.ModelID
	if modelName == "" {
		modelName = "default"
	}

	var sb strings.Builder
	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(t.Title()))
	sb.WriteString("            <div class=\"metadata\">\n")
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Model:</strong> %s</span>\n", html.EscapeString(modelName))
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Context:</strong> %s</span>\n", onOff(conv.ContextEnabled))
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(t.Messages))
	if first, _ := firstAndLast(t.Messages); !first.IsZero() {
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Started:</strong> %s</span>\n", formatTimestamp(first))
	}
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg model.Message) (string, error) {
	var body bytes.Buffer
	if err := e.md.Convert([]byte(msg.Text), &body); err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "            <div class=\"message %s-message\">\n", msg.Role())
	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg)))
	if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "                    <time class=\"timestamp\" datetime=\"%s\">%s</time>\n",
			msg.CreatedAt.Format(time.RFC3339), formatShortTimestamp(msg.CreatedAt))
	}
	sb.WriteString("                </div>\n")
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.Write(body.Bytes())
	sb.WriteString("                </div>\n")
	sb.WriteString("            </div>\n")
	return sb.String(), nil
}

// =============================================================================
// EMBEDDED CSS AND SCRIPT
// =============================================================================

const css = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-code: #16161e;
            --text-primary: #c0caf5;
            --text-muted: #737aa2;
            --border: #3b4261;
            --user-accent: #7dcfff;
            --assistant-accent: #bb9af7;
        }

        .light-theme {
            --bg-primary: #f5f5f7;
            --bg-secondary: #ffffff;
            --bg-code: #eef0f4;
            --text-primary: #1f2335;
            --text-muted: #6b7089;
            --border: #d5d8e0;
            --user-accent: #0f7ea8;
            --assistant-accent: #7c3aed;
        }

        body {
            font-family: var(--font-sans);
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
            padding: 24px;
        }

        .container { max-width: 900px; margin: 0 auto; }

        .header, .conversation, .footer {
            background: var(--bg-secondary);
            border: 1px solid var(--border);
            border-radius: 8px;
            padding: 24px;
            margin-bottom: 16px;
        }

        .metadata { display: flex; flex-wrap: wrap; gap: 16px; margin-top: 8px; color: var(--text-muted); }

        .theme-toggle {
            margin-left: auto;
            background: none;
            border: 1px solid var(--border);
            color: var(--text-muted);
            border-radius: 4px;
            padding: 2px 8px;
            cursor: pointer;
        }

        .message { padding: 16px; border-left: 3px solid var(--border); margin-bottom: 16px; }
        .user-message { border-left-color: var(--user-accent); }
        .assistant-message { border-left-color: var(--assistant-accent); }

        .message-header { display: flex; justify-content: space-between; margin-bottom: 8px; }
        .role-label { font-weight: 600; }
        .user-message .role-label { color: var(--user-accent); }
        .assistant-message .role-label { color: var(--assistant-accent); }
        .timestamp { color: var(--text-muted); font-size: 0.85em; }

        .message-content p { margin-bottom: 8px; }
        .message-content ul, .message-content ol { margin: 0 0 8px 24px; }
        .message-content code { font-family: var(--font-mono); background: var(--bg-code); padding: 1px 4px; border-radius: 3px; }
        .message-content pre { background: var(--bg-code); padding: 12px; border-radius: 6px; overflow-x: auto; margin-bottom: 8px; }
        .message-content pre code { padding: 0; }
        .message-content table { border-collapse: collapse; margin-bottom: 8px; }
        .message-content th, .message-content td { border: 1px solid var(--border); padding: 4px 8px; }

        .footer { text-align: center; color: var(--text-muted); font-size: 0.9em; }

        @media print {
            .theme-toggle { display: none; }
            .message { page-break-inside: avoid; }
        }

        @media (max-width: 768px) {
            body { padding: 10px; }
            .header, .conversation, .footer, .message { padding: 16px; }
        }
    </style>
`

const script = `    <script>
        function toggleTheme() {
            const body = document.body;
            const next = body.classList.contains('dark-theme') ? 'light' : 'dark';
            body.classList.remove('dark-theme', 'light-theme');
            body.classList.add(next + '-theme');
            localStorage.setItem('theme', next);
        }

        document.addEventListener('DOMContentLoaded', function() {
            const saved = localStorage.getItem('theme');
            if (saved) {
                document.body.classList.remove('dark-theme', 'light-theme');
                document.body.classList.add(saved + '-theme');
            }
        });
    </script>
`
