// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a conversation transcript to disk.
//
// # Key Types
//
//   - Transcript: a conversation and its loaded history
//   - Exporter: turns a Transcript into bytes of one format
//   - Options: output directory and what to include
//
// # Supported Formats
//
//   - Markdown: YAML frontmatter plus one heading per message
//   - JSON: the backend's field names, suitable for re-import
//   - HTML: standalone page, message bodies rendered from Markdown
//
// # Usage
//
//	t := export.NewTranscript(conv, messages)
//	exp, err := export.ForFormat("md", nil)
//	path, err := export.ExportToFile(t, exp, nil)
package export
