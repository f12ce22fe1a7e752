// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ErrConfirmationRequired is returned when a destructive action cannot be
// confirmed interactively and --yes was not given.
var ErrConfirmationRequired = errors.New("confirmation required: pass --yes")

// ConfirmationOptions configures confirm.
type ConfirmationOptions struct {
	// Yes is set by --yes and skips the prompt.
	Yes bool
	// JSONMode never prompts.
	JSONMode bool
	// Interactive reports whether the prompt can be answered. Readers that
	// are not terminals still count when they are not files, so scripted
	// input works in tests.
	Interactive bool
}

// confirm asks "action? [y/N]" on out and reads the answer from in.
//
// Flow:
//  1. --yes proceeds without prompting
//  2. --json or a non-interactive stdin require --yes
//  3. otherwise the prompt decides; anything but y/yes cancels
func confirm(in io.Reader, out io.Writer, action string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode || !opts.Interactive {
		return false, ErrConfirmationRequired
	}

	fmt.Fprintf(out, "%s %s [y/N]: ", WarningStyle.Render("?"), action)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false, nil
	}
	return isYes(line), nil
}

// interactiveInput reports whether in can answer a prompt: a terminal, or
// any reader that is not a file.
func interactiveInput(in io.Reader) bool {
	if isTerminal(in) {
		return true
	}
	_, isFile := in.(interface{ Fd() uintptr })
	return !isFile
}
