// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/flaskchat-tui/internal/model"
	"github.com/jeranaias/flaskchat-tui/internal/ollama"
	"github.com/jeranaias/flaskchat-tui/internal/storage"
)

// ============================================================================
// WIRE TYPES
// ============================================================================

type conversationJSON struct {
	ID            int64  `json:"id"`
	Nombre        string `json:"nombre"`
	Contexto      bool   `json:"contexto"`
	Modelo        string `json:"modelo"`
	FechaCreacion string `json:"fecha_creacion"`
}

func toConversationJSON(c storage.Conversation) conversationJSON {
	return conversationJSON{
		ID:            c.ID,
		Nombre:        c.Name,
		Contexto:      c.Context,
		Modelo:        c.Model,
		FechaCreacion: formatTime(c.CreatedAt),
	}
}

type messageJSON struct {
	Mensaje       string `json:"mensaje"`
	EsUsuario     bool   `json:"es_usuario"`
	FechaCreacion string `json:"fecha_creacion"`
}

type nameRequest struct {
	Nombre *string `json:"nombre"`
}

type sendRequest struct {
	Mensaje string `json:"mensaje"`
}

type modelRequest struct {
	Modelo string `json:"modelo"`
}

type modelEntry struct {
	ID string `json:"id"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ============================================================================
// CONVERSATIONS
// ============================================================================

// handleHistory handles GET /api/historial.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	convs, err := s.db.ListConversations(r.Context())
	if err != nil {
		s.internalError(w, r, "list conversations", err)
		return
	}
	out := make([]conversationJSON, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversationJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreate handles POST /api/chat.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	name := model.DefaultConversationName
	if req.Nombre != nil && strings.TrimSpace(*req.Nombre) != "" {
		name = strings.TrimSpace(*req.Nombre)
	}

	conv, err := s.db.CreateConversation(r.Context(), name)
	if err != nil {
		s.internalError(w, r, "create conversation", err)
		return
	}
	s.log.Info("conversation created", "conversation_id", conv.ID)
	writeJSON(w, http.StatusCreated, toConversationJSON(conv))
}

// handleRename handles PUT /api/cambiar_nombre_conversacion/{id}.
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if req.Nombre == nil || strings.TrimSpace(*req.Nombre) == "" {
		writeError(w, http.StatusBadRequest, "Nombre vacío")
		return
	}
	name := strings.TrimSpace(*req.Nombre)

	if err := s.db.RenameConversation(r.Context(), id, name); err != nil {
		s.storeError(w, r, "rename conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"mensaje":      "Nombre actualizado correctamente",
		"nuevo_nombre": name,
	})
}

// handleDelete handles DELETE /api/eliminar_conversacion/{id}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteConversation(r.Context(), id); err != nil {
		s.storeError(w, r, "delete conversation", err)
		return
	}
	s.log.Info("conversation deleted", "conversation_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": "Conversación eliminada correctamente"})
}

// ============================================================================
// MESSAGES
// ============================================================================

// handleMessages handles GET /api/chat/{id}.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	if _, err := s.db.GetConversation(r.Context(), id); err != nil {
		s.storeError(w, r, "get messages", err)
		return
	}
	msgs, err := s.db.Messages(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "get messages", err)
		return
	}
	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON{
			Mensaje:       m.Text,
			EsUsuario:     m.IsUser,
			FechaCreacion: formatTime(m.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSend handles POST /api/chat/{id}. Both the user message and the reply
// are stored only once the responder has answered.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if strings.TrimSpace(req.Mensaje) == "" {
		writeError(w, http.StatusBadRequest, "Mensaje vacío")
		return
	}

	ctx := r.Context()
	conv, err := s.db.GetConversation(ctx, id)
	if err != nil {
		s.storeError(w, r, "send message", err)
		return
	}

	var history []storage.Message
	if conv.Context {
		if history, err = s.db.Messages(ctx, id); err != nil {
			s.internalError(w, r, "send message", err)
			return
		}
	}

	replyCtx, cancel := context.WithTimeout(ctx, s.opts.ReplyTimeout)
	defer cancel()
	start := time.Now()
	prompt := s.buildPrompt(replyCtx, conv, history, req.Mensaje)
	reply, err := s.responder.Respond(replyCtx, conv.Model, prompt)
	if err != nil {
		s.log.Error("responder failed", "conversation_id", id, "model", conv.Model, "err", err)
		writeError(w, http.StatusInternalServerError, "Error al obtener respuesta: "+err.Error())
		return
	}
	s.log.Debug("reply generated",
		"conversation_id", id,
		"model", conv.Model,
		"prompt_messages", len(prompt),
		"prompt_tokens", EstimateTokens(prompt),
		"duration", time.Since(start),
	)

	if err := s.db.AppendExchange(ctx, id, req.Mensaje, reply); err != nil {
		s.storeError(w, r, "send message", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"respuesta": reply})
}

// buildPrompt builds the responder prompt for conv. History that does not fit
// the token limit is summarized by the responder; when that fails the prompt
// falls back to the newest history that fits.
func (s *Server) buildPrompt(ctx context.Context, conv storage.Conversation, history []storage.Message, text string) []ollama.Message {
	prompt, dropped := splitPrompt(history, text, conv.Context, s.opts.ContextTokenLimit)
	if len(dropped) == 0 {
		return prompt
	}
	summary, err := Summarize(ctx, s.responder, conv.Model, dropped)
	if err != nil {
		s.log.Warn("history summary failed, trimming instead", "conversation_id", conv.ID, "dropped", len(dropped), "err", err)
		return prompt
	}
	s.log.Debug("history summarized", "conversation_id", conv.ID, "dropped", len(dropped))
	return withSummary(prompt, summary, s.opts.ContextTokenLimit)
}

// ============================================================================
// CONTEXT AND MODEL
// ============================================================================

// handleGetContext handles GET /api/contexto/{id}.
func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	conv, err := s.db.GetConversation(r.Context(), id)
	if err != nil {
		s.storeError(w, r, "get context", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"contexto": conv.Context})
}

// handleToggleContext handles POST /api/contexto/{id}. The flag is flipped;
// the request body is ignored.
func (s *Server) handleToggleContext(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	enabled, err := s.db.ToggleContext(r.Context(), id)
	if err != nil {
		s.storeError(w, r, "toggle context", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":  "Contexto actualizado",
		"contexto": enabled,
	})
}

// handleGetModel handles GET /api/modelo/{id}.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	conv, err := s.db.GetConversation(r.Context(), id)
	if err != nil {
		s.storeError(w, r, "get model", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"modelo": conv.Model})
}

// handleSetModel handles PUT /api/modelo/{id}.
func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req modelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if !slices.Contains(s.opts.AllowedModels, req.Modelo) {
		writeError(w, http.StatusBadRequest,
			"Modelo no válido. Modelos permitidos: "+strings.Join(s.opts.AllowedModels, ", "))
		return
	}
	if err := s.db.SetModel(r.Context(), id, req.Modelo); err != nil {
		s.storeError(w, r, "set model", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"mensaje": "Modelo actualizado correctamente",
		"modelo":  req.Modelo,
	})
}

// handleModels handles GET /api/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	out := make([]modelEntry, 0, len(s.opts.AllowedModels))
	for _, m := range s.opts.AllowedModels {
		out = append(out, modelEntry{ID: m})
	}
	writeJSON(w, http.StatusOK, map[string][]modelEntry{"models": out})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.Ping(r.Context()); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status":    status,
		"responder": s.responder.Name(),
	})
}

// ============================================================================
// ERROR HELPERS
// ============================================================================

// conversationID parses the {id} path parameter. Ids that are not integers
// name no conversation.
func conversationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "Conversación no encontrada")
		return 0, false
	}
	return id, true
}

func badBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Cuerpo de la solicitud demasiado grande")
		return
	}
	writeError(w, http.StatusBadRequest, "JSON no válido")
}

// storeError maps storage errors to responses.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Conversación no encontrada")
	case errors.Is(err, storage.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "Nombre vacío")
	default:
		s.internalError(w, r, op, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.Error("request failed", "op", op, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "Error interno del servidor")
}
