// Package server wires the echo HTTP server: middleware, health surface
// and the v1 API routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vectorsmith/vectorsmith/ai"
	"github.com/vectorsmith/vectorsmith/internal/metrics"
	"github.com/vectorsmith/vectorsmith/internal/profile"
	apiv1 "github.com/vectorsmith/vectorsmith/server/router/api/v1"
	"github.com/vectorsmith/vectorsmith/store"
)

type Server struct {
	echo    *echo.Echo
	Profile *profile.Profile
	Store   *store.Store
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, embedding ai.EmbeddingService) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		Profile: profile,
		Store:   store,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowCredentials: false,
	}))

	exporter := metrics.NewExporter(metrics.DefaultConfig())
	e.Use(exporter.Middleware())
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	e.GET("/", s.root)
	e.GET("/health", s.health)

	apiService := apiv1.NewAPIV1Service(profile, store, embedding)
	apiService.Register(e)

	// The default collection must exist before the first write lands.
	if err := store.EnsureDefaultCollection(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins serving in a background goroutine. It returns immediately;
// serve errors other than a clean close are logged.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echo.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server and closes the store connection.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server stopped")
}

type rootResponse struct {
	Message string `json:"message"`
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, rootResponse{
		Message: fmt.Sprintf("Vectorsmith %s is running!", s.Profile.Version),
	})
}

type healthResponse struct {
	Status      string `json:"status"`
	Qdrant      string `json:"qdrant"`
	Collections int    `json:"collections"`
}

func (s *Server) health(c echo.Context) error {
	names, err := s.Store.ListCollections(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, healthResponse{
		Status:      "healthy",
		Qdrant:      "connected",
		Collections: len(names),
	})
}
