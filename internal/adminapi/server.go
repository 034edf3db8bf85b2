// Package adminapi is the optional read-only HTTP status surface
// (cmd/iresolve-admin): health, process stats, and cache/root-hint
// introspection for an otherwise-headless resolver process, grounded on
// jroosing-HydraDNS's internal/api package (gin.Engine wrapped in an
// http.Server with explicit timeouts, a slog request-logging middleware).
package adminapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blazskufca/iresolve/internal/adminapi/middleware"
)

// Server wraps a gin.Engine in an http.Server with sane timeouts, the way
// jroosing-HydraDNS's api.Server does.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
}

// New builds a Server listening on addr. logger may be nil.
func New(addr string, logger *slog.Logger, h *Handlers) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.SlogRequestLogger(logger))

	engine.GET("/health", h.Health)
	engine.GET("/stats", h.Stats)
	engine.GET("/roothints", h.RootHints)
	engine.GET("/lookup", h.Lookup)

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
