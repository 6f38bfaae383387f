package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
)

// Server pushes refreshed fixture payloads to websocket subscribers.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	server   *http.Server
	logger   log.Logger
}

// NewServer creates a websocket server. An empty allowedOrigins accepts any
// origin.
func NewServer(allowedOrigins []string, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{
		hub:    NewHub(),
		logger: log.With(logger, "component", "websocket"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	go s.hub.Run()
	return s
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Handler returns the websocket routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/fixtures", s.handleFixtures)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start listens on port until Shutdown.
func (s *Server) Start(port string) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	level.Info(s.logger).Log("msg", "websocket server listening", "port", port)
	return s.server.ListenAndServe()
}

func (s *Server) handleFixtures(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		level.Warn(s.logger).Log("msg", "failed to upgrade connection", "err", err)
		return
	}

	client := &Client{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: log.With(s.logger, "remote", r.RemoteAddr),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
	})
}

// Broadcast sends an encoded payload to every subscriber.
func (s *Server) Broadcast(data []byte) {
	s.hub.Broadcast(data)
}

// ClientCount returns the number of connected subscribers.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// Shutdown stops the hub and the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
