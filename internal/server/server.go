// Package server streams recording and replay progress over WebSocket and
// serves the latest run report.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/autoui/internal/replay"
	"github.com/GriffinCanCode/autoui/internal/session"
	"github.com/GriffinCanCode/autoui/internal/trace"
)

// Event is one message pushed to watchers.
type Event struct {
	Type  string    `json:"type"`
	Time  time.Time `json:"time"`
	RunID string    `json:"run_id,omitempty"`
	Data  any       `json:"data,omitempty"`
}

// Request is a message sent by a watcher.
type Request struct {
	Type string `json:"type"`
}

type ActionData struct {
	Index  int            `json:"index"`
	Action session.Action `json:"action"`
}

type StopData struct {
	Cause session.StopCause `json:"cause"`
	Total int               `json:"total"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

type client struct {
	send chan Event
	rl   rateLimiter
}

// Hub fans recorder and replay events out to every connected watcher. It
// implements recorder.Observer and replay.Observer.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*websocket.Conn]*client
	runID  string
	report *replay.Report
	now    func() time.Time
}

func New() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]*client), now: time.Now}
}

// SetRunID tags subsequent events.
func (h *Hub) SetRunID(id string) {
	h.mu.Lock()
	h.runID = id
	h.mu.Unlock()
}

// Handler returns the HTTP handler.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("GET /api/report", h.handleReport)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

// ListenAndServe serves the hub on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("watch server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	h.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("watch server shutdown error", "error", err)
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	c := &client{send: make(chan Event, SendBuffer)}
	h.mu.Lock()
	h.conns[conn] = c
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := trace.Logger(ctx)
	log.Info("watcher connected", "remote", r.RemoteAddr)

	go h.readLoop(ctx, cancel, conn, c)

	for {
		select {
		case <-ctx.Done():
			log.Debug("watcher disconnected", "remote", r.RemoteAddr)
			return
		case ev, ok := <-c.send:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				log.Debug("websocket write error", "error", err)
				return
			}
		}
	}
}

// readLoop answers watcher requests until the connection closes.
func (h *Hub) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	defer cancel()
	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		if !c.rl.allow() {
			trace.Logger(ctx).Warn("watcher rate limit exceeded")
			h.enqueue(c, h.event(EventError, "rate limit exceeded"))
			continue
		}
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		switch req.Type {
		case "ping":
			h.enqueue(c, h.event(EventPong, nil))
		case "report":
			h.mu.RLock()
			rep := h.report
			h.mu.RUnlock()
			h.enqueue(c, h.event(EventReport, rep))
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

func (h *Hub) event(typ string, data any) Event {
	h.mu.RLock()
	id := h.runID
	h.mu.RUnlock()
	return Event{Type: typ, Time: h.now().UTC(), RunID: id, Data: data}
}

func (h *Hub) enqueue(c *client, ev Event) {
	select {
	case c.send <- ev:
	default:
		slog.Debug("watcher queue full, dropping event", "type", ev.Type)
	}
}

// Broadcast queues ev for every watcher without blocking.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		h.enqueue(c, ev)
	}
}

// Watchers returns the number of connected watchers.
func (h *Hub) Watchers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) ActionRecorded(index int, a session.Action) {
	h.Broadcast(h.event(EventActionRecorded, ActionData{Index: index, Action: a}))
}

func (h *Hub) RecordingStopped(cause session.StopCause, total int) {
	h.Broadcast(h.event(EventRecordingStopped, StopData{Cause: cause, Total: total}))
}

func (h *Hub) StepCompleted(r replay.StepResult) {
	h.Broadcast(h.event(EventStepCompleted, r))
}

func (h *Hub) RunFinished(r *replay.Report) {
	h.mu.Lock()
	h.report = r
	h.mu.Unlock()
	h.Broadcast(h.event(EventRunFinished, r.Summary))
}

func (h *Hub) handleReport(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	rep := h.report
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if rep == nil {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no report yet"})
		return
	}
	_ = json.NewEncoder(w).Encode(rep)
}

func (h *Hub) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
