// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the FlaskChat backend.
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jeranaias/flaskchat-tui/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// flexID accepts a JSON string or number and keeps it as a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// flexBool accepts true/false as well as 0/1 (sqlite rows serialized as ints).
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = n != 0
	return nil
}

type conversationDTO struct {
	ID       flexID    `json:"id"`
	Nombre   string    `json:"nombre"`
	Modelo   string    `json:"modelo"`
	Contexto *flexBool `json:"contexto"`
}

// toModel converts the wire shape. A missing contexto takes the backend's
// column default, which is on.
func (d conversationDTO) toModel() model.Conversation {
	ctxOn := true
	if d.Contexto != nil {
		ctxOn = bool(*d.Contexto)
	}
	return model.Conversation{
		ID:             string(d.ID),
		Name:           d.Nombre,
		ModelID:        d.Modelo,
		ContextEnabled: ctxOn,
	}
}

// messageDTO keeps the text raw so entries whose text is not a string can be
// skipped instead of failing the whole history.
type messageDTO struct {
	Mensaje       json.RawMessage `json:"mensaje"`
	EsUsuario     flexBool        `json:"es_usuario"`
	FechaCreacion string          `json:"fecha_creacion"`
}

// timeLayouts lists the timestamp formats the backend is known to emit.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC1123,
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type sendRequest struct {
	Mensaje string `json:"mensaje"`
}

type sendResponse struct {
	Respuesta string `json:"respuesta"`
}

type createRequest struct {
	Nombre string `json:"nombre,omitempty"`
}

type renameRequest struct {
	Nombre string `json:"nombre"`
}

type renameResponse struct {
	Mensaje     string `json:"mensaje"`
	NuevoNombre string `json:"nuevo_nombre"`
	Nombre      string `json:"nombre"`
}

type contextRequest struct {
	ContextoActivo bool `json:"contexto_activo"`
}

type contextResponse struct {
	Contexto *flexBool `json:"contexto"`
}

type modelRequest struct {
	Modelo string `json:"modelo"`
}

type modelResponse struct {
	Modelo string `json:"modelo"`
}

// modelItem accepts either {"id": "..."} or a bare string.
type modelItem string

func (m *modelItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = modelItem(s)
		return nil
	}
	var obj struct {
		ID flexID `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*m = modelItem(obj.ID)
	return nil
}

type modelsResponse struct {
	Models []modelItem `json:"models"`
}

// errorBody is the backend's error shape.
type errorBody struct {
	Error   string `json:"error"`
	Mensaje string `json:"mensaje"`
}
