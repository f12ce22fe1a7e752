// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the FlaskChat HTTP API on top of package storage.
//
// It is the backend started by `flaskchat serve`: a drop-in for the hosted
// FlaskChat service, used for local development and for end-to-end tests of
// the client.
//
// # Endpoints
//
//   - GET    /api/historial                      - List conversations, newest first
//   - POST   /api/chat                           - Create a conversation
//   - GET    /api/chat/{id}                      - Message history
//   - POST   /api/chat/{id}                      - Send a message, returns the reply
//   - PUT    /api/cambiar_nombre_conversacion/{id} - Rename
//   - DELETE /api/eliminar_conversacion/{id}     - Delete with its messages
//   - GET    /api/contexto/{id}                  - Read the context flag
//   - POST   /api/contexto/{id}                  - Toggle the context flag
//   - GET    /api/modelo/{id}                    - Read the model
//   - PUT    /api/modelo/{id}                    - Set the model
//   - GET    /api/models                         - Selectable models
//   - GET    /health                             - Health check
//
// Errors are JSON objects of the form {"error": "..."}.
//
// # Replies
//
// Replies come from a Responder. OllamaResponder asks a local Ollama server;
// EchoResponder answers without a model so the stack runs anywhere.
package server
