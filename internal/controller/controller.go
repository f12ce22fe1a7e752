// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller implements the conversation synchronization logic.
package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/jeranaias/flaskchat-tui/internal/model"
	"github.com/jeranaias/flaskchat-tui/internal/store"
)

// Notices shown in the feed when a backend call fails.
const (
	LoadErrorText = "Error loading messages. Please try again."
	SendErrorText = "Error sending the message. Please try again."
)

// createKey reserves the in-flight slot for conversation creation, which has
// no conversation id yet.
const createKey = "\x00create"

// =============================================================================
// BACKEND
// =============================================================================

// Backend is the subset of the FlaskChat API the controller needs.
// *api.Client implements it.
type Backend interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	CreateConversation(ctx context.Context, name string) (model.Conversation, error)
	RenameConversation(ctx context.Context, id, name string) (string, error)
	DeleteConversation(ctx context.Context, id string) error
	GetMessages(ctx context.Context, id string) ([]model.Message, error)
	SendMessage(ctx context.Context, id, text string) (string, error)
	ToggleContext(ctx context.Context, id string, enabled bool) (bool, error)
	GetModel(ctx context.Context, id string) (string, error)
	SetModel(ctx context.Context, id, modelID string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// =============================================================================
// STATE
// =============================================================================

// State is the selection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EventKind tells listeners which part of the state changed.
type EventKind int

const (
	EventConversations EventKind = iota
	EventMessages
	EventState
	EventControls
	EventBusy
	EventModels
)

// Event is delivered to Options.OnChange after every state change.
type Event struct {
	Kind           EventKind
	ConversationID string
	Err            error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller.
type Options struct {
	// Logger receives operation outcomes. Defaults to a discarding logger.
	Logger *slog.Logger

	// DefaultName is sent when creating a conversation.
	DefaultName string

	// FallbackModels is offered when the backend model list is unavailable.
	FallbackModels []string

	// OnChange is called after each change. It must not block and must not
	// call back into mutating Controller methods.
	OnChange func(Event)
}

// Controller reconciles the local stores with the backend.
// All methods are safe for concurrent use.
type Controller struct {
	backend Backend
	convs   *store.ConversationStore
	msgs    *store.MessageStore
	log     *slog.Logger
	opts    Options

	mu       sync.Mutex
	state    State
	lastErr  error
	loadGen  uint64
	inflight map[string]string
	pending  map[string]model.Controls
	ctlGen   map[string]uint64
	models   []model.ModelOption
}

// New creates a Controller with empty stores.
func New(backend Backend, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.DefaultName == "" {
		opts.DefaultName = model.DefaultConversationName
	}
	if len(opts.FallbackModels) == 0 {
		opts.FallbackModels = model.FallbackModels
	}
	return &Controller{
		backend:  backend,
		convs:    store.NewConversationStore(),
		msgs:     store.NewMessageStore(),
		log:      opts.Logger.With("component", "controller"),
		opts:     opts,
		inflight: make(map[string]string),
		pending:  make(map[string]model.Controls),
		ctlGen:   make(map[string]uint64),
		models:   model.NewModelOptions(opts.FallbackModels),
	}
}

// Conversations exposes the conversation store for reading.
func (c *Controller) Conversations() *store.ConversationStore {
	return c.convs
}

// Messages exposes the message store for reading.
func (c *Controller) Messages() *store.MessageStore {
	return c.msgs
}

// State returns the selection state and the error that caused StateError.
func (c *Controller) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

// Models returns the selectable models, sorted for display.
func (c *Controller) Models() []model.ModelOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ModelOption, len(c.models))
	copy(out, c.models)
	return out
}

// Busy reports whether a mutating call for id is in flight.
func (c *Controller) Busy(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

// Creating reports whether a conversation is being created.
func (c *Controller) Creating() bool {
	return c.Busy(createKey)
}

// Controls returns the control values to display for id: the pending
// optimistic value while a call is in flight, otherwise the confirmed one.
func (c *Controller) Controls(id string) model.Controls {
	c.mu.Lock()
	ctl, ok := c.pending[id]
	c.mu.Unlock()
	if ok {
		return ctl
	}
	conv, _ := c.convs.Get(id)
	return conv.Controls()
}

// =============================================================================
// INITIAL LOAD
// =============================================================================

// Load fetches the conversation list and the model list, then selects the
// first conversation when none is active. A list failure keeps the prior
// list and enters StateError.
func (c *Controller) Load(ctx context.Context) error {
	list, err := c.backend.ListConversations(ctx)
	if err != nil {
		c.log.Error("list conversations failed", "op", "load", "err", err)
		c.setState(StateError, err)
		return networkErr("load conversations", "", err)
	}
	c.convs.Replace(list)
	c.log.Info("conversations loaded", "op", "load", "count", len(list))
	c.notify(Event{Kind: EventConversations})

	c.LoadModels(ctx)

	active := c.convs.ActiveID()
	if active == "" {
		if len(list) == 0 {
			c.msgs.Clear()
			c.setState(StateIdle, nil)
			c.notify(Event{Kind: EventMessages})
			return nil
		}
		return c.SelectConversation(ctx, list[0].ID)
	}
	if c.msgs.OwnerID() != active {
		return c.load(ctx, active)
	}
	return nil
}

// LoadModels refreshes the selectable models, falling back to the configured
// list when the backend has none or fails.
func (c *Controller) LoadModels(ctx context.Context) {
	ids, err := c.backend.ListModels(ctx)
	if err != nil || len(ids) == 0 {
		if err != nil {
			c.log.Warn("list models failed, using fallback", "op", "models", "err", err)
		}
		ids = c.opts.FallbackModels
	}
	opts := model.NewModelOptions(ids)

	c.mu.Lock()
	c.models = opts
	c.mu.Unlock()
	c.notify(Event{Kind: EventModels})
}

// =============================================================================
// SELECTION
// =============================================================================

// SelectConversation makes id active and loads its history. Selecting the
// already active conversation is a no-op.
func (c *Controller) SelectConversation(ctx context.Context, id string) error {
	if id == c.convs.ActiveID() {
		return nil
	}
	if !c.convs.SetActive(id) {
		return ErrUnknownConversation
	}
	c.notify(Event{Kind: EventConversations, ConversationID: id})
	return c.load(ctx, id)
}

// load resets the message log to id and fetches its history. Results that
// arrive after a newer load started are dropped.
func (c *Controller) load(ctx context.Context, id string) error {
	c.mu.Lock()
	c.loadGen++
	gen := c.loadGen
	c.state = StateLoading
	c.lastErr = nil
	c.msgs.Reset(id)
	c.mu.Unlock()
	c.notify(Event{Kind: EventState, ConversationID: id})
	c.notify(Event{Kind: EventMessages, ConversationID: id})

	msgs, err := c.backend.GetMessages(ctx, id)

	c.mu.Lock()
	if gen != c.loadGen {
		c.mu.Unlock()
		c.log.Debug("discarding stale history", "op", "select", "conversation_id", id)
		return nil
	}
	if err != nil {
		c.msgs.Append(model.NewSyntheticError(id, LoadErrorText))
		c.state = StateError
		c.lastErr = err
		c.mu.Unlock()
		c.log.Error("load messages failed", "op", "select", "conversation_id", id, "err", err)
		c.notify(Event{Kind: EventMessages, ConversationID: id})
		c.notify(Event{Kind: EventState, ConversationID: id, Err: err})
		return networkErr("load messages", id, err)
	}
	if !c.msgs.ReplaceAll(id, msgs) {
		c.mu.Unlock()
		c.log.Debug("discarding stale history", "op", "select", "conversation_id", id)
		return nil
	}
	c.state = StateReady
	c.mu.Unlock()
	c.log.Debug("messages loaded", "op", "select", "conversation_id", id, "count", len(msgs))
	c.notify(Event{Kind: EventMessages, ConversationID: id})
	c.notify(Event{Kind: EventState, ConversationID: id})

	c.refreshModel(ctx, id)
	return nil
}

// refreshModel pulls the conversation's model from the backend. Failures are
// logged only; the list value stays. The answer is dropped when a control
// change started after the request went out.
func (c *Controller) refreshModel(ctx context.Context, id string) {
	c.mu.Lock()
	_, busy := c.inflight[id]
	gen := c.ctlGen[id]
	c.mu.Unlock()
	if busy {
		return
	}

	modelID, err := c.backend.GetModel(ctx, id)
	if err != nil {
		c.log.Warn("get model failed", "op", "select", "conversation_id", id, "err", err)
		return
	}

	c.mu.Lock()
	_, busy = c.inflight[id]
	if busy || gen != c.ctlGen[id] {
		c.mu.Unlock()
		c.log.Debug("discarding stale model", "op", "select", "conversation_id", id, "model", modelID)
		return
	}
	conv, ok := c.convs.Get(id)
	if !ok || modelID == "" || conv.ModelID == modelID {
		c.mu.Unlock()
		return
	}
	ctl := conv.Controls()
	ctl.ModelID = modelID
	c.convs.UpdateControls(id, ctl)
	c.mu.Unlock()
	c.notify(Event{Kind: EventControls, ConversationID: id})
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage appends text to the active conversation and posts it. The user
// message stays in the log even when the call fails; a synthetic error notice
// follows it instead of the reply. While the active history is still loading
// it returns ErrBusy without a backend call.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	id := c.convs.ActiveID()
	if id == "" {
		return ErrNoActiveConversation
	}
	if !c.acquire(id, "send") {
		return ErrBusy
	}
	defer c.release(id)

	// A history load in flight would replace the log and drop the message.
	c.mu.Lock()
	if c.state == StateLoading || c.msgs.OwnerID() != id {
		c.mu.Unlock()
		c.log.Debug("rejecting send while history loads", "op", "send", "conversation_id", id)
		return ErrBusy
	}
	c.msgs.Append(model.NewUserMessage(id, text))
	c.mu.Unlock()
	c.notify(Event{Kind: EventMessages, ConversationID: id})

	reply, err := c.backend.SendMessage(ctx, id, text)
	if err != nil {
		c.log.Error("send failed", "op", "send", "conversation_id", id, "err", err)
		c.appendLive(model.NewSyntheticError(id, SendErrorText))
		c.notify(Event{Kind: EventMessages, ConversationID: id, Err: err})
		return networkErr("send message", id, err)
	}

	if !c.appendLive(model.NewAssistantMessage(id, reply)) {
		c.log.Debug("reply arrived after switch", "op", "send", "conversation_id", id)
	}
	c.log.Info("message sent", "op", "send", "conversation_id", id)
	c.notify(Event{Kind: EventMessages, ConversationID: id})
	return nil
}

// =============================================================================
// RENAME / DELETE / CREATE
// =============================================================================

// RenameConversation renames id. Empty and unchanged names are rejected
// without a backend call. On failure the store keeps the prior name.
func (c *Controller) RenameConversation(ctx context.Context, id, newName string) error {
	conv, ok := c.convs.Get(id)
	if !ok {
		return ErrUnknownConversation
	}
	name := strings.TrimSpace(newName)
	if name == "" {
		return ErrEmptyName
	}
	if name == conv.Name {
		return ErrUnchangedName
	}
	if !c.acquire(id, "rename") {
		return ErrBusy
	}
	defer c.release(id)

	confirmed, err := c.backend.RenameConversation(ctx, id, name)
	if err != nil {
		c.log.Error("rename failed", "op", "rename", "conversation_id", id, "err", err)
		c.notify(Event{Kind: EventConversations, ConversationID: id, Err: err})
		return networkErr("rename conversation", id, err)
	}

	if conv, ok = c.convs.Get(id); ok {
		conv.Name = confirmed
		c.convs.Upsert(conv)
	}
	c.log.Info("conversation renamed", "op", "rename", "conversation_id", id)
	c.notify(Event{Kind: EventConversations, ConversationID: id})
	return nil
}

// DeleteConversation deletes id. Confirmation is the caller's job. When the
// active conversation is deleted, the next one is loaded, or the feed is
// cleared if none remains.
func (c *Controller) DeleteConversation(ctx context.Context, id string) error {
	if _, ok := c.convs.Get(id); !ok {
		return ErrUnknownConversation
	}
	if !c.acquire(id, "delete") {
		return ErrBusy
	}

	err := c.backend.DeleteConversation(ctx, id)
	c.release(id)
	if err != nil {
		c.log.Error("delete failed", "op", "delete", "conversation_id", id, "err", err)
		c.notify(Event{Kind: EventConversations, ConversationID: id, Err: err})
		return networkErr("delete conversation", id, err)
	}

	prevActive := c.convs.ActiveID()
	newActive := c.convs.Remove(id)
	c.mu.Lock()
	delete(c.pending, id)
	delete(c.ctlGen, id)
	c.mu.Unlock()
	c.log.Info("conversation deleted", "op", "delete", "conversation_id", id)
	c.notify(Event{Kind: EventConversations, ConversationID: id})

	switch {
	case newActive == "":
		c.mu.Lock()
		c.loadGen++
		c.state = StateIdle
		c.lastErr = nil
		c.msgs.Clear()
		c.mu.Unlock()
		c.notify(Event{Kind: EventMessages})
		c.notify(Event{Kind: EventState})
		return nil
	case newActive != prevActive:
		return c.load(ctx, newActive)
	default:
		return nil
	}
}

// CreateConversation creates a conversation with the default name and
// selects it.
func (c *Controller) CreateConversation(ctx context.Context) (model.Conversation, error) {
	if !c.acquire(createKey, "create") {
		return model.Conversation{}, ErrBusy
	}

	conv, err := c.backend.CreateConversation(ctx, c.opts.DefaultName)
	c.release(createKey)
	if err != nil {
		c.log.Error("create failed", "op", "create", "err", err)
		c.notify(Event{Kind: EventConversations, Err: err})
		return model.Conversation{}, networkErr("create conversation", "", err)
	}
	if conv.Name == "" {
		conv.Name = c.opts.DefaultName
	}

	c.convs.Upsert(conv)
	c.log.Info("conversation created", "op", "create", "conversation_id", conv.ID)
	c.notify(Event{Kind: EventConversations, ConversationID: conv.ID})
	return conv, c.SelectConversation(ctx, conv.ID)
}

// =============================================================================
// CONTROLS
// =============================================================================

// ToggleContext sets the context flag of id. The control shows enabled while
// the call is in flight and reverts on failure. The value the backend
// reports is the one kept.
func (c *Controller) ToggleContext(ctx context.Context, id string, enabled bool) error {
	conv, ok := c.convs.Get(id)
	if !ok {
		return ErrUnknownConversation
	}
	if !c.acquire(id, "context") {
		return ErrBusy
	}
	defer c.release(id)

	optimistic := conv.Controls()
	optimistic.ContextEnabled = enabled
	c.setPending(id, optimistic)

	confirmed, err := c.backend.ToggleContext(ctx, id, enabled)
	c.clearPending(id)
	if err != nil {
		c.log.Error("toggle context failed", "op", "context", "conversation_id", id, "err", err)
		c.notify(Event{Kind: EventControls, ConversationID: id, Err: err})
		return networkErr("toggle context", id, err)
	}

	if conv, ok = c.convs.Get(id); ok {
		ctl := conv.Controls()
		ctl.ContextEnabled = confirmed
		c.convs.UpdateControls(id, ctl)
	}
	c.log.Info("context toggled", "op", "context", "conversation_id", id, "enabled", confirmed)
	c.notify(Event{Kind: EventControls, ConversationID: id})
	return nil
}

// SetModel selects modelID for id. The selector shows the new model while the
// call is in flight and reverts on failure.
func (c *Controller) SetModel(ctx context.Context, id, modelID string) error {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return ErrEmptyModel
	}
	conv, ok := c.convs.Get(id)
	if !ok {
		return ErrUnknownConversation
	}
	if conv.ModelID == modelID {
		return nil
	}
	if !c.acquire(id, "model") {
		return ErrBusy
	}
	defer c.release(id)

	optimistic := conv.Controls()
	optimistic.ModelID = modelID
	c.setPending(id, optimistic)

	confirmed, err := c.backend.SetModel(ctx, id, modelID)
	c.clearPending(id)
	if err != nil {
		c.log.Error("set model failed", "op", "model", "conversation_id", id, "model", modelID, "err", err)
		c.notify(Event{Kind: EventControls, ConversationID: id, Err: err})
		return networkErr("set model", id, err)
	}

	if conv, ok = c.convs.Get(id); ok {
		ctl := conv.Controls()
		ctl.ModelID = confirmed
		c.convs.UpdateControls(id, ctl)
	}
	c.log.Info("model changed", "op", "model", "conversation_id", id, "model", confirmed)
	c.notify(Event{Kind: EventControls, ConversationID: id})
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// acquire reserves the in-flight slot of key. Mutating calls for the same
// conversation never overlap.
func (c *Controller) acquire(key, op string) bool {
	c.mu.Lock()
	if holder, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		c.log.Debug("rejecting overlapping call", "op", op, "conversation_id", key, "holder", holder)
		return false
	}
	c.inflight[key] = op
	c.mu.Unlock()
	c.notify(Event{Kind: EventBusy, ConversationID: key})
	return true
}

func (c *Controller) release(key string) {
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	c.notify(Event{Kind: EventBusy, ConversationID: key})
}

// setPending shows ctl for id until clearPending and marks the controls of
// id as changed for any refresh already in flight.
func (c *Controller) setPending(id string, ctl model.Controls) {
	c.mu.Lock()
	c.pending[id] = ctl
	c.ctlGen[id]++
	c.mu.Unlock()
	c.notify(Event{Kind: EventControls, ConversationID: id})
}

func (c *Controller) clearPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// appendLive appends msg unless its conversation is no longer shown or its
// history is being reloaded. A reload already carries what the backend stored.
func (c *Controller) appendLive(msg model.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateLoading {
		return false
	}
	return c.msgs.Append(msg)
}

func (c *Controller) setState(s State, err error) {
	c.mu.Lock()
	c.state = s
	c.lastErr = err
	c.mu.Unlock()
	c.notify(Event{Kind: EventState, Err: err})
}

func (c *Controller) notify(ev Event) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(ev)
	}
}
