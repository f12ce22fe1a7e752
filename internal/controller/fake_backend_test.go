// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller implements the conversation synchronization logic.
package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/flaskchat-tui/internal/api"
)

// =============================================================================
// FAKE FLASKCHAT BACKEND
// =============================================================================

type fakeConv struct {
	ID       int    `json:"id"`
	Nombre   string `json:"nombre"`
	Modelo   string `json:"modelo"`
	Contexto bool   `json:"contexto"`
}

type fakeMsg struct {
	Mensaje   string `json:"mensaje"`
	EsUsuario bool   `json:"es_usuario"`
}

// gate holds a request until released. entered is closed once the request
// reached the handler.
type gate struct {
	entered chan struct{}
	release chan struct{}

	// held answers with the reply computed before the hold.
	held bool
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

// fakeBackend is an in-memory FlaskChat server.
type fakeBackend struct {
	t *testing.T

	mu     sync.Mutex
	convs  []fakeConv
	msgs   map[int][]fakeMsg
	nextID int
	reply  string
	models []any
	fail   map[string]int
	gates  map[string]*gate
	calls  map[string]int
}

func newFakeBackend(t *testing.T, convs ...fakeConv) *fakeBackend {
	f := &fakeBackend{
		t:      t,
		convs:  convs,
		msgs:   make(map[int][]fakeMsg),
		nextID: 100,
		reply:  "hi",
		models: []any{map[string]string{"id": "gpt-4"}, "gpt-3.5-turbo"},
		fail:   make(map[string]int),
		gates:  make(map[string]*gate),
		calls:  make(map[string]int),
	}
	return f
}

// failOn makes every request matching pattern answer status.
func (f *fakeBackend) failOn(pattern string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[pattern] = status
}

// gateOn holds the next request to path until the returned gate is released.
func (f *fakeBackend) gateOn(path string) *gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := newGate()
	f.gates[path] = g
	return g
}

// holdReplyOn answers the next request to path from the state at arrival,
// but only once the returned gate is released.
func (f *fakeBackend) holdReplyOn(path string) *gate {
	g := f.gateOn(path)
	g.held = true
	return g
}

func (f *fakeBackend) callCount(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pattern]
}

func (f *fakeBackend) setMessages(id int, msgs ...fakeMsg) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[id] = msgs
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/historial", f.wrap(f.list))
	mux.HandleFunc("POST /api/chat", f.wrap(f.create))
	mux.HandleFunc("GET /api/chat/{id}", f.wrap(f.history))
	mux.HandleFunc("POST /api/chat/{id}", f.wrap(f.send))
	mux.HandleFunc("PUT /api/cambiar_nombre_conversacion/{id}", f.wrap(f.rename))
	mux.HandleFunc("DELETE /api/eliminar_conversacion/{id}", f.wrap(f.remove))
	mux.HandleFunc("POST /api/contexto/{id}", f.wrap(f.toggle))
	mux.HandleFunc("GET /api/modelo/{id}", f.wrap(f.getModel))
	mux.HandleFunc("PUT /api/modelo/{id}", f.wrap(f.setModel))
	mux.HandleFunc("GET /api/models", f.wrap(f.listModels))
	return mux
}

func (f *fakeBackend) wrap(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Pattern]++
		status := f.fail[r.Pattern]
		g := f.gates[r.URL.Path]
		delete(f.gates, r.URL.Path)
		f.mu.Unlock()

		if g != nil && g.held && status == 0 {
			rec := httptest.NewRecorder()
			h(rec, r)
			close(g.entered)
			<-g.release
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			w.Write(rec.Body.Bytes())
			return
		}
		if g != nil {
			close(g.entered)
			<-g.release
		}
		if status != 0 {
			reply(w, status, map[string]string{"error": "forced failure"})
			return
		}
		h(w, r)
	}
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) find(r *http.Request) int {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return -1
	}
	for i, c := range f.convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeBackend) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reply(w, http.StatusOK, f.convs)
}

func (f *fakeBackend) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nombre string `json:"nombre"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := fakeConv{ID: f.nextID, Nombre: body.Nombre, Modelo: "gpt-3.5-turbo", Contexto: true}
	f.convs = append([]fakeConv{c}, f.convs...)
	reply(w, http.StatusCreated, map[string]any{"id": c.ID, "nombre": c.Nombre})
}

func (f *fakeBackend) history(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r)
	if i < 0 {
		reply(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	msgs := f.msgs[f.convs[i].ID]
	if msgs == nil {
		msgs = []fakeMsg{}
	}
	reply(w, http.StatusOK, msgs)
}

func (f *fakeBackend) send(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mensaje string `json:"mensaje"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r)
	if i < 0 {
		reply(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	id := f.convs[i].ID
	f.msgs[id] = append(f.msgs[id], fakeMsg{body.Mensaje, true}, fakeMsg{f.reply, false})
	reply(w, http.StatusOK, map[string]string{"respuesta": f.reply})
}

func (f *fakeBackend) rename(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nombre string `json:"nombre"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r)
	if i < 0 {
		reply(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	f.convs[i].Nombre = body.Nombre
	reply(w, http.StatusOK, map[string]string{"mensaje": "ok", "nuevo_nombre": body.Nombre})
}

func (f *fakeBackend) remove(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r)
	if i < 0 {
		reply(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	f.convs = append(f.convs[:i], f.convs[i+1:]...)
	reply(w, http.StatusOK, map[string]string{"mensaje": "eliminada"})
}

func (f *fakeBackend) toggle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r)
	if i < 0 {
		reply(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	f.convs[i].Contexto = !f.convs[i].Contexto
	reply(w, http.StatusOK, map[string]bool{"contexto": f.convs[i].Contexto})
}

func (f *fakeBackend) getModel(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r)
	if i < 0 {
		reply(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	reply(w, http.StatusOK, map[string]string{"modelo": f.convs[i].Modelo})
}

func (f *fakeBackend) setModel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Modelo string `json:"modelo"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.Modelo != "gpt-3.5-turbo" && body.Modelo != "gpt-4" {
		reply(w, http.StatusBadRequest, map[string]string{"error": "Modelo no válido"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r)
	if i < 0 {
		reply(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	f.convs[i].Modelo = body.Modelo
	reply(w, http.StatusOK, map[string]string{"mensaje": "ok", "modelo": body.Modelo})
}

func (f *fakeBackend) listModels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reply(w, http.StatusOK, map[string]any{"models": f.models})
}

// =============================================================================
// HARNESS
// =============================================================================

// eventLog records controller events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// newHarness starts the fake backend and a controller wired to it.
func newHarness(t *testing.T, convs ...fakeConv) (*fakeBackend, *Controller, *eventLog) {
	t.Helper()
	fb := newFakeBackend(t, convs...)
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	events := &eventLog{}
	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	ctl := New(client, Options{OnChange: events.record})
	return fb, ctl, events
}

// waitEntered fails the test if g is not reached in time.
func waitEntered(t *testing.T, g *gate) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the backend")
	}
}
