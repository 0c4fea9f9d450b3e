package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/contabot/contabot/pkg/logger"
)

// Server wraps the HTTP listener with graceful shutdown.
type Server struct {
	deps *Deps
	http *http.Server
}

func New(deps *Deps) (*Server, error) {
	router, err := NewRouter(deps)
	if err != nil {
		return nil, err
	}
	cfg := deps.Config.Server
	return &Server{
		deps: deps,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}, nil
}

// Run serves until the context is canceled, then drains in-flight
// requests within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	log := s.deps.Log
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.deps.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if s.deps.Store != nil {
		if err := s.deps.Store.Close(logger.ContextWithLogger(context.Background(), log)); err != nil {
			log.Warn("vector store close failed", "error", err)
		}
	}
	return <-errCh
}
