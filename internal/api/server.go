package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/proxnode/internal/api/middleware"
	"github.com/tphakala/proxnode/internal/buildinfo"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/node"
	"github.com/tphakala/proxnode/internal/timeutil"
)

// StatusSource publishes the node status. *node.Controller implements it.
type StatusSource interface {
	Status() *node.Status
}

// Server is the status API. It only reads published status and never
// touches the registry directly.
type Server struct {
	echo   *echo.Echo
	config Config
	source StatusSource
	build  *buildinfo.Context
	clock  timeutil.Clock
	log    logger.Logger

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		if h != nil && s.config.Metrics {
			s.echo.GET("/metrics", echo.WrapHandler(h))
		}
	}
}

// WithClock replaces the wall clock used for uptime.
func WithClock(c timeutil.Clock) ServerOption {
	return func(s *Server) {
		s.clock = c
	}
}

// New creates the server and registers its routes.
func New(cfg Config, source StatusSource, build *buildinfo.Context, opts ...ServerOption) (*Server, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("api config: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("api: status source is required")
	}

	s := &Server{
		echo:   echo.New(),
		config: cfg,
		source: source,
		build:  build,
		clock:  timeutil.RealClock{},
		log:    GetLogger(),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = cfg.ReadTimeout
	s.echo.Server.WriteTimeout = cfg.WriteTimeout
	s.echo.Server.IdleTimeout = cfg.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()
	for _, opt := range opts {
		opt(s)
	}
	s.startTime = s.clock.Now()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(s.log, mw.SkipPaths("/metrics", "/api/v1/health")))
	s.echo.Use(mw.NewCORS(s.config.AllowedOrigins))
	s.echo.Use(mw.NewBodyLimit())
	s.echo.Use(mw.NewSecureHeaders())
}

func (s *Server) setupRoutes() {
	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.health)
	v1.GET("/status", s.status)
	v1.GET("/devices", s.devices)
}

// health always answers 200 while the process serves requests.
func (s *Server) health(c echo.Context) error {
	uptime := s.clock.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.build.Version(),
		"build_date":     s.build.BuildDate(),
		"uptime":         uptime.Round(time.Second).String(),
		"uptime_seconds": uptime.Seconds(),
	})
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.source.Status())
}

// devices returns the device snapshot, nearest first. ?limit=N truncates it.
func (s *Server) devices(c echo.Context) error {
	devs := s.source.Status().Devices

	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		devs = devs[:min(n, len(devs))]
	}
	return c.JSON(http.StatusOK, map[string]any{
		"count":   len(devs),
		"devices": devs,
	})
}

// Run serves until ctx is cancelled, then shuts down within
// ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status API listening", logger.String("address", s.config.Address()))
		errCh <- s.echo.Start(s.config.Address())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status API shutdown: %w", err)
	}
	<-errCh
	s.log.Info("status API stopped")
	return nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the bound address once Run is listening, or "".
func (s *Server) Addr() string {
	if a := s.echo.ListenerAddr(); a != nil {
		return a.String()
	}
	return ""
}
