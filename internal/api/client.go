// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the FlaskChat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Op      string
	Message string
	Status  int
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeNotFound
	ErrTypeInvalidResponse
)

// String returns the name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeStatus:
		return "status"
	case ErrTypeNotFound:
		return "not_found"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL is the address the Flask development server listens on.
const DefaultBaseURL = "http://127.0.0.1:5000"

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL (default: http://127.0.0.1:5000)
	BaseURL string

	// Timeout for each request (default: 30s). Sends wait on a model reply,
	// so keep this generous.
	Timeout time.Duration

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: DefaultBaseURL,
		Timeout: 30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the FlaskChat API.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ListConversations returns all conversations in the order the backend sends them.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var dtos []conversationDTO
	if err := c.do(ctx, "list conversations", http.MethodGet, "/api/historial", nil, &dtos); err != nil {
		return nil, err
	}

	convs := make([]model.Conversation, 0, len(dtos))
	for _, d := range dtos {
		if d.ID == "" {
			continue
		}
		convs = append(convs, d.toModel())
	}
	return convs, nil
}

// CreateConversation creates a conversation. An empty name lets the backend
// choose its default.
func (c *Client) CreateConversation(ctx context.Context, name string) (model.Conversation, error) {
	var dto conversationDTO
	if err := c.do(ctx, "create conversation", http.MethodPost, "/api/chat", createRequest{Nombre: name}, &dto); err != nil {
		return model.Conversation{}, err
	}
	if dto.ID == "" {
		return model.Conversation{}, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Op:      "create conversation",
			Message: "response carries no id",
		}
	}
	conv := dto.toModel()
	if conv.Name == "" {
		conv.Name = name
	}
	return conv, nil
}

// RenameConversation renames a conversation and returns the name the backend
// confirmed.
func (c *Client) RenameConversation(ctx context.Context, id, name string) (string, error) {
	var resp renameResponse
	path := "/api/cambiar_nombre_conversacion/" + url.PathEscape(id)
	if err := c.do(ctx, "rename conversation", http.MethodPut, path, renameRequest{Nombre: name}, &resp); err != nil {
		return "", err
	}
	switch {
	case resp.NuevoNombre != "":
		return resp.NuevoNombre, nil
	case resp.Nombre != "":
		return resp.Nombre, nil
	default:
		return name, nil
	}
}

// DeleteConversation deletes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	path := "/api/eliminar_conversacion/" + url.PathEscape(id)
	return c.do(ctx, "delete conversation", http.MethodDelete, path, nil, nil)
}

// =============================================================================
// MESSAGES
// =============================================================================

// GetMessages returns the message history of a conversation.
// Entries whose text is not a JSON string are skipped.
func (c *Client) GetMessages(ctx context.Context, id string) ([]model.Message, error) {
	var dtos []messageDTO
	if err := c.do(ctx, "get messages", http.MethodGet, "/api/chat/"+url.PathEscape(id), nil, &dtos); err != nil {
		return nil, err
	}

	msgs := make([]model.Message, 0, len(dtos))
	for _, d := range dtos {
		var text string
		if err := json.Unmarshal(d.Mensaje, &text); err != nil {
			continue
		}
		var m model.Message
		if d.EsUsuario {
			m = model.NewUserMessage(id, text)
		} else {
			m = model.NewAssistantMessage(id, text)
		}
		if ts := parseTimestamp(d.FechaCreacion); !ts.IsZero() {
			m.CreatedAt = ts
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// SendMessage posts the raw text and returns the assistant reply.
func (c *Client) SendMessage(ctx context.Context, id, text string) (string, error) {
	var resp sendResponse
	if err := c.do(ctx, "send message", http.MethodPost, "/api/chat/"+url.PathEscape(id), sendRequest{Mensaje: text}, &resp); err != nil {
		return "", err
	}
	return resp.Respuesta, nil
}

// =============================================================================
// CONTEXT AND MODEL
// =============================================================================

// ToggleContext asks the backend to set the context flag and returns the
// value the backend reports. The backend toggles on its side, so the returned
// value is the authoritative one. When the response omits it, enabled is
// assumed.
func (c *Client) ToggleContext(ctx context.Context, id string, enabled bool) (bool, error) {
	var resp contextResponse
	path := "/api/contexto/" + url.PathEscape(id)
	if err := c.do(ctx, "toggle context", http.MethodPost, path, contextRequest{ContextoActivo: enabled}, &resp); err != nil {
		return false, err
	}
	if resp.Contexto == nil {
		return enabled, nil
	}
	return bool(*resp.Contexto), nil
}

// GetContext returns the context flag of a conversation.
func (c *Client) GetContext(ctx context.Context, id string) (bool, error) {
	var resp contextResponse
	if err := c.do(ctx, "get context", http.MethodGet, "/api/contexto/"+url.PathEscape(id), nil, &resp); err != nil {
		return false, err
	}
	if resp.Contexto == nil {
		return false, &ClientError{Type: ErrTypeInvalidResponse, Op: "get context", Message: "response carries no contexto"}
	}
	return bool(*resp.Contexto), nil
}

// GetModel returns the model selected for a conversation.
func (c *Client) GetModel(ctx context.Context, id string) (string, error) {
	var resp modelResponse
	if err := c.do(ctx, "get model", http.MethodGet, "/api/modelo/"+url.PathEscape(id), nil, &resp); err != nil {
		return "", err
	}
	return resp.Modelo, nil
}

// SetModel selects the model of a conversation and returns the confirmed value.
func (c *Client) SetModel(ctx context.Context, id, modelID string) (string, error) {
	var resp modelResponse
	path := "/api/modelo/" + url.PathEscape(id)
	if err := c.do(ctx, "set model", http.MethodPut, path, modelRequest{Modelo: modelID}, &resp); err != nil {
		return "", err
	}
	if resp.Modelo == "" {
		return modelID, nil
	}
	return resp.Modelo, nil
}

// ListModels returns the model ids the backend offers.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var resp modelsResponse
	if err := c.do(ctx, "list models", http.MethodGet, "/api/models", nil, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		if m != "" {
			ids = append(ids, string(m))
		}
	}
	return ids, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do issues one JSON request. in is marshaled when non-nil, out is decoded
// when non-nil. Any non-2xx status is an error.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Op: op, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Op: op, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
			return &ClientError{Type: ErrTypeTimeout, Op: op, Message: "request timed out", Cause: err}
		}
		return &ClientError{Type: ErrTypeConnection, Op: op, Message: "backend unreachable", Cause: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Op: op, Message: "failed to decode response", Cause: err}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	typ := ErrTypeStatus
	if resp.StatusCode == http.StatusNotFound {
		typ = ErrTypeNotFound
	}

	msg := "unexpected status " + resp.Status
	var eb errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb); err == nil {
		switch {
		case eb.Error != "":
			msg = fmt.Sprintf("%s (%d)", eb.Error, resp.StatusCode)
		case eb.Mensaje != "":
			msg = fmt.Sprintf("%s (%d)", eb.Mensaje, resp.StatusCode)
		}
	}
	return &ClientError{Type: typ, Op: op, Message: msg, Status: resp.StatusCode}
}

func isNetTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// drainAndClose lets the transport reuse the connection.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errorTypeOf(err) == ErrTypeTimeout
}

// IsNotFound checks if the backend answered 404.
func IsNotFound(err error) bool {
	return errorTypeOf(err) == ErrTypeNotFound
}

// IsUnreachable checks if the backend could not be contacted at all.
func IsUnreachable(err error) bool {
	return errorTypeOf(err) == ErrTypeConnection
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Status
	}
	return 0
}

func errorTypeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}
