package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gamewatch/gamewatch/internal/alert"
	"github.com/gamewatch/gamewatch/internal/capture"
	"github.com/gamewatch/gamewatch/internal/monitor"
	"github.com/gamewatch/gamewatch/internal/trace"
)

// Status is the full dashboard snapshot served over REST and WebSocket.
type Status struct {
	Paused  bool                     `json:"paused"`
	Sources []monitor.SourceSnapshot `json:"sources"`
	Alerts  []alert.PairSnapshot     `json:"alerts"`
	Capture capture.Snapshot         `json:"capture"`
}

// statusMessage and alertMessage are the WebSocket frame types.
type statusMessage struct {
	Type   string `json:"type"`
	Status Status `json:"status"`
}

type alertMessage struct {
	Type  string      `json:"type"`
	Event alert.Event `json:"event"`
}

type feedbackRequest struct {
	Accepted bool `json:"accepted"`
}

// Server exposes the monitor's state and control surface.
type Server struct {
	mon      *monitor.Monitor
	pipeline *alert.Pipeline
	stats    *capture.Stats

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// New creates the dashboard server.
func New(mon *monitor.Monitor, pipeline *alert.Pipeline, stats *capture.Stats) *Server {
	return &Server{
		mon:      mon,
		pipeline: pipeline,
		stats:    stats,
		conns:    make(map[*websocket.Conn]struct{}),
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(trace.Middleware)
	r.Use(corsMiddleware)

	r.Get("/ws", s.handleWebSocket)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/sources/{source}/frame", s.handleFrame)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/alerts/{alert}/feedback", s.handleFeedback)
		r.Post("/stats/reset", s.handleStatsReset)
	})
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) status() Status {
	return Status{
		Paused:  s.pipeline.Paused(),
		Sources: s.mon.Snapshot(),
		Alerts:  s.pipeline.Snapshot(),
		Capture: s.stats.Snapshot(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.status())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "source")
	frame, ok := s.mon.Frame(sourceID)
	if !ok {
		http.Error(w, "no frame captured for source", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := frame.EncodePNG(w); err != nil {
		trace.Logger(r.Context()).Warn("frame encode failed", "source", sourceID, "error", err)
	}
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Pause()
	writeJSON(w, map[string]string{"status": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Resume()
	writeJSON(w, map[string]string{"status": "resumed"})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	alertName := chi.URLParam(r, "alert")
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid feedback body", http.StatusBadRequest)
		return
	}
	if err := s.mon.RecordFeedback(alertName, req.Accepted); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	trace.Logger(r.Context()).Info("feedback recorded", "alert", alertName, "accepted", req.Accepted)
	writeJSON(w, map[string]string{"status": "recorded"})
}

func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	s.mon.ResetStats()
	writeJSON(w, map[string]string{"status": "reset"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	if err := s.pushStatus(ctx, conn); err != nil {
		return
	}
	ticker := time.NewTicker(StatusPushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pushStatus(ctx, conn); err != nil {
				log.Debug("websocket write error", "error", err)
				return
			}
		}
	}
}

func (s *Server) pushStatus(ctx context.Context, conn *websocket.Conn) error {
	wctx, cancel := context.WithTimeout(ctx, WSWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, statusMessage{Type: "status", Status: s.status()})
}

// Broadcast pushes a fired alert to every connected client. Wired as (part
// of) the alert pipeline's emit callback.
func (s *Server) Broadcast(e alert.Event) {
	msg := alertMessage{Type: "alert", Event: e}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), WSWriteTimeout)
			defer cancel()
			_ = wsjson.Write(ctx, c, msg)
		}(conn)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
