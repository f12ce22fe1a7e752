// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"
)

func TestSplitFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Segment
	}{
		{
			name: "prose only",
			in:   "hello\nworld",
			want: []Segment{{Text: "hello\nworld"}},
		},
		{
			name: "code between prose",
			in:   "before\n```go\nx := 1\n```\nafter",
			want: []Segment{
				{Text: "before"},
				{Code: true, Language: "go", Text: "x := 1"},
				{Text: "after"},
			},
		},
		{
			name: "unclosed fence",
			in:   "```python\nprint(1)",
			want: []Segment{{Code: true, Language: "python", Text: "print(1)"}},
		},
		{
			name: "empty fence",
			in:   "```\n```",
			want: []Segment{{Code: true}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitFences(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("SplitFences() = %+v, want %+v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("segment %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestCodeBlock_Render(t *testing.T) {
	cb := NewCodeBlock("go", "package main\n\nfunc main() {}\n")
	out := cb.Render()

	if !strings.Contains(out, "go") {
		t.Error("rendered block should carry the language badge")
	}
	if !strings.Contains(out, "3") {
		t.Error("rendered block should number its lines")
	}
	if !strings.Contains(out, "main") {
		t.Error("rendered block lost the code")
	}
}

func TestParseInlineCode(t *testing.T) {
	if got := ParseInlineCode("no code here"); got != "no code here" {
		t.Errorf("ParseInlineCode(plain) = %q", got)
	}
	if got := ParseInlineCode("open `tick"); got != "open `tick" {
		t.Errorf("ParseInlineCode(unclosed) = %q", got)
	}
	if got := ParseInlineCode("run `ls` now"); !strings.Contains(got, "ls") || strings.Contains(got, "`") {
		t.Errorf("ParseInlineCode(span) = %q", got)
	}
}

func TestToastManager(t *testing.T) {
	now := time.Now()
	m := NewToastManager()
	m.now = func() time.Time { return now }

	m.AddStatus("one")
	m.AddError("two")
	m.AddSuccess("three")
	m.AddStatus("four")

	toasts := m.Toasts()
	if len(toasts) != 3 {
		t.Fatalf("len = %d, want 3 (capped)", len(toasts))
	}
	if toasts[0].Message != "four" {
		t.Errorf("newest = %q, want four", toasts[0].Message)
	}

	// Status toasts expire first; the error toast lives longer.
	now = now.Add(DefaultToastDuration)
	if !m.Tick() {
		t.Fatal("Tick() = false, error toast should remain")
	}
	if got := m.Toasts(); len(got) != 1 || got[0].Kind != ToastKindError {
		t.Errorf("after tick = %+v, want only the error toast", got)
	}

	m.Dismiss()
	if m.Tick() {
		t.Error("Tick() = true after dismissing the last toast")
	}
}

func TestRenderToastStack(t *testing.T) {
	if RenderToastStack(nil, 80) != "" {
		t.Error("empty stack should render nothing")
	}
	out := RenderToastStack([]Toast{{Message: "saved", Kind: ToastKindSuccess}}, 80)
	if !strings.Contains(out, "saved") {
		t.Errorf("stack = %q", out)
	}
}
