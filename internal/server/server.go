// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeranaias/flaskchat-tui/internal/config"
	"github.com/jeranaias/flaskchat-tui/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize caps JSON request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// DefaultReplyTimeout bounds one responder call.
	DefaultReplyTimeout = 2 * time.Minute

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 10 * time.Second
)

// ============================================================================
// OPTIONS
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr string

	// AllowedModels are the models PUT /api/modelo accepts and /api/models
	// lists.
	AllowedModels []string

	// ContextTokenLimit trims the history sent to the responder. 0 disables
	// trimming.
	ContextTokenLimit int

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// ReplyTimeout bounds one responder call (default DefaultReplyTimeout).
	ReplyTimeout time.Duration
}

// OptionsFromConfig maps the [server] config section.
func OptionsFromConfig(cfg config.ServerConfig) Options {
	return Options{
		Addr:              cfg.Addr,
		AllowedModels:     append([]string(nil), cfg.AllowedModels...),
		ContextTokenLimit: cfg.ContextTokenLimit,
		RateLimit:         cfg.RateLimit,
		RateBurst:         cfg.RateBurst,
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server serves the FlaskChat API.
type Server struct {
	opts      Options
	db        *storage.DB
	responder Responder
	log       *slog.Logger
	router    chi.Router
}

// New creates a Server. A nil responder answers with EchoResponder; a nil
// logger discards logs.
func New(db *storage.DB, responder Responder, opts Options, logger *slog.Logger) *Server {
	if responder == nil {
		responder = EchoResponder{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.ReplyTimeout == 0 {
		opts.ReplyTimeout = DefaultReplyTimeout
	}

	s := &Server{
		opts:      opts,
		db:        db,
		responder: responder,
		log:       logger,
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	var limiter *RateLimiter
	if s.opts.RateLimit > 0 {
		limiter = NewRateLimiter(s.opts.RateLimit, s.opts.RateBurst)
	}

	r.Use(
		middleware.RequestID,
		RecoveryMiddleware(s.log),
		LoggingMiddleware(s.log),
		RateLimitMiddleware(limiter, s.log),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Recurso no encontrado")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Método no permitido")
	})

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/historial", s.handleHistory)
		r.Post("/chat", s.handleCreate)
		r.Get("/chat/{id}", s.handleMessages)
		r.Post("/chat/{id}", s.handleSend)
		r.Put("/cambiar_nombre_conversacion/{id}", s.handleRename)
		r.Delete("/eliminar_conversacion/{id}", s.handleDelete)
		r.Get("/contexto/{id}", s.handleGetContext)
		r.Post("/contexto/{id}", s.handleToggleContext)
		r.Get("/modelo/{id}", s.handleGetModel)
		r.Put("/modelo/{id}", s.handleSetModel)
		r.Get("/models", s.handleModels)
	})

	s.router = r
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe listens on Options.Addr and serves until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.opts.ReplyTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server started", "addr", ln.Addr().String(), "responder", s.responder.Name())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
