// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the flaskchat command tree.
//
// The root command runs the full-screen chat client. The subcommands give
// scripted and line-mode access to the same backend:
//
//	flaskchat                        Run the TUI (requires a terminal)
//	flaskchat conversations          List conversations
//	flaskchat history <id>           Print the messages of a conversation
//	flaskchat ask <id> <text...>     Send a message and print the reply
//	flaskchat new [name]             Create a conversation
//	flaskchat rename <id> <name>     Rename a conversation
//	flaskchat delete <id> [--yes]    Delete a conversation
//	flaskchat models                 List selectable models
//	flaskchat model <id> [model]     Show or change a conversation's model
//	flaskchat context <id>           Toggle history context
//	flaskchat export <id>            Write a conversation to md, json or html
//	flaskchat chat [id]              Line-mode chat
//	flaskchat serve                  Run the local development backend
//	flaskchat config show|get|set|path
//	flaskchat version
//
// Every client command goes through a controller.Controller, so the same
// busy, validation and rollback rules apply as in the TUI.
package cli
