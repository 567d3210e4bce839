package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"walldo/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Server exposes a registry on /metrics
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger logger.Logger
}

// Listen binds addr and prepares the /metrics handler. Call Serve to start
// answering requests.
func Listen(addr string, m *Metrics, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: log,
	}, nil
}

// Addr returns the address the server is bound to
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve answers requests until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context) error {
	logger.LogComponentStart(s.logger, "metrics", map[string]interface{}{"addr": s.Addr()})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}
	logger.LogComponentStop(s.logger, "metrics", ctx.Err().Error())
	return nil
}
