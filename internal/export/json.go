// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// jsonFormatVersion is bumped when the document layout changes.
const jsonFormatVersion = 1

// JSONExporter exports conversations to JSON. Conversations and messages
// keep the backend's field names so a file can be replayed against the API.
// Options do not filter JSON output.
type JSONExporter struct {
	options *Options
}

type jsonDocument struct {
	Version      int                `json:"version"`
	ExportedAt   time.Time          `json:"exported_at"`
	Generator    string             `json:"generator"`
	Conversation model.Conversation `json:"conversation"`
	Messages     []model.Message    `json:"messages"`
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a transcript to indented JSON.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(jsonDocument{
		Version:      jsonFormatVersion,
		ExportedAt:   t.ExportedAt,
		Generator:    "flaskchat",
		Conversation: t.Conversation,
		Messages:     t.Messages,
	}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
