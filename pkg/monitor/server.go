package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/geartap/pkg/jsontime"
	"github.com/haivivi/geartap/pkg/tap"
)

// clientBuffer is the per-client frame queue. A client that cannot
// keep up loses frames instead of stalling the ingest path.
const clientBuffer = 64

// Config configures a monitor server.
type Config struct {
	// Stats supplies the snapshot served on /api/stats and pushed on
	// the feed. Required; typically Pipeline.Stats wrapped in a closure.
	Stats func() tap.Stats

	// StatsEvery is how often a stats frame is pushed to connected
	// clients. Default 1s.
	StatsEvery time.Duration
}

// Server broadcasts data and stats frames to WebSocket clients.
type Server struct {
	stats      func() tap.Stats
	statsEvery time.Duration
	upgrader   websocket.Upgrader
	srv        *http.Server

	mu      sync.Mutex
	clients map[chan Frame]struct{}
	ln      net.Listener

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewServer creates a monitor server. Call Start to begin serving.
func NewServer(cfg Config) *Server {
	if cfg.StatsEvery <= 0 {
		cfg.StatsEvery = time.Second
	}
	s := &Server{
		stats:      cfg.Stats,
		statsEvery: cfg.StatsEvery,
		clients:    make(map[chan Frame]struct{}),
		closeCh:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWS)
	s.srv = &http.Server{Handler: mux}

	return s
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	if s.stats == nil {
		return fmt.Errorf("monitor: stats func is required")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("monitor: listen %s: %w", addr, err)
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("monitor: serve failed", "error", err)
		}
	}()

	s.wg.Add(1)
	go s.statsLoop()

	slog.Info("monitor: listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Feed broadcasts received bytes to all clients. It is meant to be
// wired as the pipeline's feed hook and never blocks.
func (s *Server) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	s.broadcast(Frame{Type: FrameData, Data: p, At: jsontime.NowMilli()})
}

// Close stops the server and disconnects all clients.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.srv.Close()
	})
	s.wg.Wait()
	return nil
}

func (s *Server) statsLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.statsEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			if !s.hasClients() {
				continue
			}
			st := s.stats()
			s.broadcast(Frame{Type: FrameStats, Stats: &st, At: jsontime.NowMilli()})
		}
	}
}

func (s *Server) hasClients() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients) > 0
}

func (s *Server) broadcast(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- f:
		default: // slow client: drop the frame
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.stats()); err != nil {
		slog.Debug("monitor: write stats failed", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	frames := make(chan Frame, clientBuffer)
	s.mu.Lock()
	s.clients[frames] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	slog.Info("monitor: client connected", "remote", ws.RemoteAddr().String(), "clients", n)

	defer func() {
		s.mu.Lock()
		delete(s.clients, frames)
		s.mu.Unlock()
		slog.Info("monitor: client disconnected", "remote", ws.RemoteAddr().String())
	}()

	// Drain reads so close frames and pings are processed; the feed
	// is one-way.
	readErr := make(chan struct{})
	go func() {
		defer close(readErr)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-s.closeCh:
			return
		case <-readErr:
			return
		case f := <-frames:
			if err := ws.WriteJSON(f); err != nil {
				return
			}
		}
	}
}
