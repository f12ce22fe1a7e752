// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render projects controller snapshots into frames for display.
//
// Build is a pure function of a controller.Snapshot: it never touches the
// stores. Markdown is rendered through the Markdown interface; a renderer that
// fails or panics degrades to the raw text.
//
// # Usage
//
//	md := render.NewMarkdown("glamour", theme)
//	frame := render.Build(ctl.Snapshot(), render.Options{Width: 80})
//	feed := render.NewFeed(md, theme).Draw(frame.Feed, 80)
package render
