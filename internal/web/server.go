package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

const readHeaderTimeout = 5 * time.Second

// SnapshotSource provides the state to report.
type SnapshotSource interface {
	Snapshot() alarm.Snapshot
}

// Server serves /status.json, /metrics and /healthz.
type Server struct {
	httpServer   *http.Server
	source       SnapshotSource
	destinations []string
}

// New creates a Server reading state from source. metrics may be nil.
func New(addr string, source SnapshotSource, metrics http.Handler, destinations []string) *Server {
	s := &Server{source: source, destinations: destinations}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status.json", s.handleJSON)
	mux.HandleFunc("GET /healthz", handleHealth)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Handler returns the routing handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(FormatJSON(s.source.Snapshot(), s.destinations))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
