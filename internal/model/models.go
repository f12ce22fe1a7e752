// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FallbackModels is used when the backend model list cannot be fetched.
var FallbackModels = []string{"gpt-3.5-turbo", "gpt-4"}

// ModelOption is an entry of the model selector.
type ModelOption struct {
	ID    string
	Label string
}

// NewModelOptions builds sorted selector options from raw model ids.
// Blank and duplicate ids are dropped. Sorting is case-insensitive using
// Spanish collation and labels are upper-cased.
func NewModelOptions(ids []string) []ModelOption {
	seen := make(map[string]bool, len(ids))
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		clean = append(clean, id)
	}

	col := collate.New(language.Spanish, collate.IgnoreCase)
	sort.SliceStable(clean, func(i, j int) bool {
		return col.CompareString(clean[i], clean[j]) < 0
	})

	upper := cases.Upper(language.Spanish)
	opts := make([]ModelOption, len(clean))
	for i, id := range clean {
		opts[i] = ModelOption{ID: id, Label: upper.String(id)}
	}
	return opts
}

// IndexOfModel returns the position of id in opts, or -1.
func IndexOfModel(opts []ModelOption, id string) int {
	for i, o := range opts {
		if o.ID == id {
			return i
		}
	}
	return -1
}
