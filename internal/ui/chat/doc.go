// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat screen of the flaskchat TUI.
//
// The screen maps key gestures to controller operations:
//
//	Sidebar (focused)     Prompt (focused)
//	↑/↓ enter  select     enter          send
//	e          rename     alt+enter C-j  newline
//	d          delete     tab            back to sidebar
//	n          new
//	m          model
//	c          context
//	y          copy reply
//	s          save transcript (Markdown)
//	/          filter
//
// Controller operations run as tea.Cmds. Controller change events arrive
// through a Bridge and trigger a re-render from a fresh snapshot; the screen
// never writes to the stores itself.
package chat
