// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the flaskchat packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file replacement
//   - TruncateWidth / PadWidth: column-aware text fitting for the TUI
//   - Preview: single-line excerpt of a message
package util
