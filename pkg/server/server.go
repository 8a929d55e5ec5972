package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"faucetui/pkg/metrics"
	"faucetui/pkg/watcher"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	watcher *watcher.Watcher
	version string
	log     *zap.Logger
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	mux     *http.ServeMux
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Version string             `json:"version"`
	Targets []watcher.Snapshot `json:"targets"`
}

func NewServer(w *watcher.Watcher, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		watcher: w,
		version: version,
		log:     log.Named("server"),
		clients: make(map[*websocket.Conn]bool),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Handler exposes the routes for embedding and tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on port until ctx is cancelled. It returns once the server
// and its watcher subscription are released.
func (s *Server) Start(ctx context.Context, port int) error {
	sub := s.watcher.Subscribe()
	forwarding := make(chan struct{})
	go func() {
		defer close(forwarding)
		s.listenToWatcher(sub)
	}()
	defer func() {
		s.watcher.Unsubscribe(sub)
		<-forwarding
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("API server listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen")
	}
	return nil
}

func (s *Server) status() StatusResponse {
	return StatusResponse{Version: s.version, Targets: s.watcher.GetSnapshots()}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.status())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	// The initial state is written under the lock so a concurrent broadcast
	// cannot interleave with it.
	s.mu.Lock()
	s.clients[conn] = true
	metrics.WebsocketClients.Inc()
	err = conn.WriteJSON(watcher.Event{Type: "initial", Data: s.status()})
	s.mu.Unlock()

	defer s.drop(conn)
	if err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[conn] {
		delete(s.clients, conn)
		metrics.WebsocketClients.Dec()
	}
}

// listenToWatcher forwards events from sub until it is closed.
func (s *Server) listenToWatcher(sub watcher.Subscriber) {
	for event := range sub {
		s.broadcast(event)
	}
}

func (s *Server) broadcast(event watcher.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		if err := client.WriteJSON(event); err != nil {
			_ = client.Close()
			delete(s.clients, client)
			metrics.WebsocketClients.Dec()
		}
	}
}
