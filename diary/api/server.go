// Package api exposes the diary generator over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/intern-diary/diary/config"
	"github.com/ZanzyTHEbar/intern-diary/diary/generation/harness"
	ports "github.com/ZanzyTHEbar/intern-diary/diary/generation/harness/ports"
)

// Generator is the core the HTTP layer calls into.
type Generator interface {
	Generate(ctx context.Context, req harness.Request) (*harness.Result, error)
	Healthcheck() ports.CacheStats
	ClearCache(ctx context.Context) int
}

// Server wraps a Gin router plus the generator behind it.
type Server struct {
	Router     *gin.Engine
	Generator  Generator
	HTTPServer *http.Server

	cfg        config.ServerConfig
	guardrails *harness.Guardrails
	logger     zerolog.Logger
}

// NewServer wires middleware and routes and returns an instance.
func NewServer(cfg config.ServerConfig, generator Generator, logger zerolog.Logger) *Server {
	router := gin.New()
	router.Use(requestID(), requestLogger(logger), recovery(logger))
	if cfg.CORSEnabled {
		router.Use(corsMiddleware())
	}

	s := &Server{
		Router:     router,
		Generator:  generator,
		cfg:        cfg,
		guardrails: harness.NewGuardrails(),
		logger:     logger,
	}
	s.setupRoutes()

	readHeaderTimeout := cfg.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 10 * time.Second
	}
	s.HTTPServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the root handler, gzip-wrapped when enabled.
func (s *Server) Handler() http.Handler {
	if s.cfg.GzipEnabled {
		return gzhttp.GzipHandler(s.Router)
	}
	return s.Router
}

// Run serves on cfg.Addr and blocks until the server is shut down.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and blocks until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("🌐 diary API listening")
	if err := s.HTTPServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTPServer.Shutdown(ctx)
}
