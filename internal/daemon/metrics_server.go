package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"archivist/internal/logging"
)

// metricsServer exposes Prometheus metrics and a liveness endpoint. A nil
// server is valid and does nothing.
type metricsServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
	done     chan struct{}
}

func newMetricsServer(bind string, d *Daemon, logger *slog.Logger) *metricsServer {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil
	}
	srv := &metricsServer{bind: bind, logger: logger, daemon: d}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", srv.handleHealth)
	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *metricsServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	s.listener = listener
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", logging.Error(err))
		}
	}()

	s.logger.Info("metrics server listening",
		logging.String(logging.FieldEventType, "metrics_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *metricsServer) stop() {
	if s == nil || s.listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	<-s.done
	s.listener = nil
}

// Addr returns the bound address, or "" when not listening.
func (s *metricsServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type healthPayload struct {
	Running    bool           `json:"running"`
	Dispatcher bool           `json:"dispatcher"`
	Encoder    string         `json:"encoder"`
	Assets     map[string]int `json:"assets"`
	LastError  string         `json:"last_error,omitempty"`
}

func (s *metricsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summary := s.daemon.workflow.Status(r.Context())
	payload := healthPayload{
		Running:    s.daemon.Running(),
		Dispatcher: summary.Running,
		Encoder:    string(s.daemon.encoder.Selected.Kind),
		Assets:     make(map[string]int, len(summary.AssetStats)),
		LastError:  summary.LastError,
	}
	for status, n := range summary.AssetStats {
		payload.Assets[string(status)] = n
	}
	code := http.StatusOK
	if !payload.Running {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode health response", logging.Error(err))
	}
}
