package api

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZertGraf/userboard/internal/api/handler"
	"github.com/ZertGraf/userboard/internal/api/middleware"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"net"
	"net/http"
	"time"
)

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type HTTPServer struct {
	server *http.Server
	config *ServerConfig
	logger *logger.Logger
}

// HealthFunc reports whether the service dependencies are usable.
type HealthFunc func(ctx context.Context) error

func NewHTTPServer(config *ServerConfig,
	pageHandler *handler.PageHandler,
	stateHandler *handler.StateHandler,
	health HealthFunc,
	logger *logger.Logger) *HTTPServer {

	router := NewRouter(pageHandler, stateHandler, health, logger)

	server := &http.Server{
		Addr:         net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		config: config,
		logger: logger.Component("http"),
	}
}

// Start binds the listener synchronously so a busy port fails startup, then
// serves in the background.
func (s *HTTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed", "error", err)
		}
	}()

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("server shutdown failed", "error", err)
		return err
	}

	s.logger.Info("http server stopped")
	return nil
}

func NewRouter(
	pageHandler *handler.PageHandler,
	stateHandler *handler.StateHandler,
	health HealthFunc,
	logger *logger.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger.Component("http/access")))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Security())
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			if err := health(r.Context()); err != nil {
				logger.Warn("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				if _, err := w.Write([]byte(`{"status":"unhealthy"}`)); err != nil {
					logger.Warn("failed to write health response", "error", err)
				}
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})

	r.Mount("/api", stateHandler.Routes())
	r.Mount("/", pageHandler.Routes())

	return r
}
