package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/canmon/internal/logging"
	"github.com/muurk/canmon/internal/protocol"
	"github.com/muurk/canmon/internal/stats"
)

// Config holds the server configuration
type Config struct {
	Listen            string        // Address to listen on, e.g. ":8080"
	ReadHeaderTimeout time.Duration // 0 = 5s
}

// Sources are the monitor components the server exposes
type Sources struct {
	Stats   *stats.Aggregator
	History *stats.History
	Metrics http.Handler // Optional Prometheus handler
}

// Server serves the live feed and read-only monitor views
type Server struct {
	config  *Config
	sources Sources
	hub     *Hub
	mux     *http.ServeMux

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

// New creates a new Server instance
func New(config *Config, sources Sources) *Server {
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = 5 * time.Second
	}

	s := &Server{
		config:  config,
		sources: sources,
		hub:     NewHub(),
		mux:     http.NewServeMux(),
	}

	s.mux.Handle("/ws", s.hub)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/history", s.handleHistory)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if sources.Metrics != nil {
		s.mux.Handle("/metrics", sources.Metrics)
	}
	return s
}

// Handler returns the server's request router
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}

	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	logging.Info("HTTP server listening",
		zap.String("addr", listener.Addr().String()),
	)

	go func() {
		defer close(done)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the listening address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down HTTP server...")

	// Hijacked WebSocket connections are not tracked by http.Server
	s.hub.Close()

	s.mu.Lock()
	httpServer, done := s.httpServer, s.done
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	<-done
	return nil
}

// GetActiveConnections returns the number of live-feed clients
func (s *Server) GetActiveConnections() int {
	return s.hub.Len()
}

// OnPacket is a no-op; the live feed carries frames and errors only
func (s *Server) OnPacket(*protocol.Packet) {}

// OnFrame broadcasts a decoded frame to live-feed clients
func (s *Server) OnFrame(cf protocol.ClassifiedFrame) {
	s.broadcast(NewFrameMessage(cf))
}

// OnError broadcasts a dropped packet attempt to live-feed clients
func (s *Server) OnError(err error) {
	s.broadcast(NewErrorMessage(err))
}

func (s *Server) broadcast(v interface{}) {
	if s.hub.Len() == 0 {
		return
	}
	msg, err := json.Marshal(v)
	if err != nil {
		logging.Error("Failed to encode live-feed event", zap.Error(err))
		return
	}
	s.hub.Broadcast(msg)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.sources.Stats == nil {
		writeError(w, r, http.StatusServiceUnavailable, "statistics not available")
		return
	}
	writeJSON(w, r, http.StatusOK, s.sources.Stats.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.sources.History == nil {
		writeError(w, r, http.StatusServiceUnavailable, "history not available")
		return
	}

	var frames []protocol.ClassifiedFrame
	if v := r.URL.Query().Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		frames = s.sources.History.Last(n)
	} else {
		frames = s.sources.History.Recent()
	}

	out := make([]FrameMessage, 0, len(frames))
	for _, cf := range frames {
		out = append(out, NewFrameMessage(cf))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"live_clients": s.hub.Len(),
	})
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write response", zap.String("path", r.URL.Path), zap.Error(err))
	}
	logging.LogHTTPRequest(r.Method, r.URL.Path, r.RemoteAddr, status)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}
