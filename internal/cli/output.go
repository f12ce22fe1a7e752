// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/flaskchat-tui/internal/model"
	"github.com/jeranaias/flaskchat-tui/internal/render"
	"github.com/jeranaias/flaskchat-tui/internal/util"
)

// =============================================================================
// JSON OUTPUT
// =============================================================================

// JSONResponse is the envelope printed under --json.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// conversationData is the JSON shape of a conversation.
type conversationData struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Model   string `json:"model,omitempty"`
	Context bool   `json:"context"`
	Active  bool   `json:"active,omitempty"`
}

func toConversationData(c model.Conversation, activeID string) conversationData {
	return conversationData{
		ID:      c.ID,
		Name:    c.DisplayName(),
		Model:   c.ModelID,
		Context: c.ContextEnabled,
		Active:  c.ID == activeID,
	}
}

// messageData is the JSON shape of a message.
type messageData struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
	Notice    bool   `json:"notice,omitempty"`
}

func toMessageData(m model.Message) messageData {
	d := messageData{Role: m.Role().String(), Text: m.Text, Notice: m.Synthetic}
	if !m.CreatedAt.IsZero() {
		d.CreatedAt = m.CreatedAt.Format(time.RFC3339)
	}
	return d
}

// =============================================================================
// TEXT OUTPUT
// =============================================================================

// printConversations writes one row per conversation.
func printConversations(w io.Writer, convs []model.Conversation, activeID string) {
	if len(convs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No conversations yet. Create one with 'flaskchat new'."))
		return
	}

	idWidth := 2
	for _, c := range convs {
		idWidth = max(idWidth, util.StringWidth(c.ID))
	}
	fmt.Fprintln(w, TitleStyle.Render(
		util.PadWidth("ID", idWidth)+"  "+util.PadWidth("MODEL", 16)+"  "+util.PadWidth("CTX", 4)+"NAME"))
	for _, c := range convs {
		modelID := c.ModelID
		if modelID == "" {
			modelID = "-"
		}
		flag := DimStyle.Render(util.PadWidth("off", 4))
		if c.ContextEnabled {
			flag = SuccessStyle.Render(util.PadWidth("on", 4))
		}
		name := util.TruncateWidth(c.DisplayName(), 60)
		if c.ID == activeID {
			name = ActiveStyle.Render(name)
		}
		fmt.Fprintf(w, "%s  %s  %s%s\n", util.PadWidth(c.ID, idWidth), util.PadWidth(modelID, 16), flag, name)
	}
}

// printMessage writes one message with a role label. Assistant replies are
// rendered as markdown.
func (s *session) printMessage(m model.Message) {
	switch {
	case m.Synthetic:
		fmt.Fprintln(s.out, WarningStyle.Render("! "+m.Text))
	case m.IsUser:
		fmt.Fprintln(s.out, UserStyle.Render(model.RoleUser.DisplayName()+":"))
		fmt.Fprintln(s.out, m.Text)
	default:
		fmt.Fprintln(s.out, AssistantStyle.Render(model.RoleAssistant.DisplayName()+":"))
		fmt.Fprintln(s.out, strings.TrimRight(render.RenderSafe(s.md, m.Text, s.width), "\n"))
	}
}

// printReply writes an assistant reply without a label.
func (s *session) printReply(text string) {
	fmt.Fprintln(s.out, strings.TrimRight(render.RenderSafe(s.md, text, s.width), "\n"))
}

// success prints a confirmation line.
func (s *session) success(format string, args ...any) {
	fmt.Fprintln(s.out, SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

// emit prints data as JSON under --json, or runs text otherwise.
func (s *session) emit(command string, data any, text func()) error {
	if s.jsonOut {
		return NewJSONResponse(command, data).Print(s.out)
	}
	text()
	return nil
}
