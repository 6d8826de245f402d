// Package server wires the review engine, its HTTP API and the reminder runner.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/wordloop/internal/profile"
	"github.com/hrygo/wordloop/server/internal/observability"
	"github.com/hrygo/wordloop/server/middleware"
	apiv1 "github.com/hrygo/wordloop/server/router/api/v1"
	"github.com/hrygo/wordloop/server/router/rss"
	"github.com/hrygo/wordloop/server/runner/reminder"
	"github.com/hrygo/wordloop/server/service/review"
	"github.com/hrygo/wordloop/store"
)

type Server struct {
	Profile       *profile.Profile
	Store         *store.Store
	ReviewService review.Service

	echoServer        *echo.Echo
	runnerCancelFuncs []context.CancelFunc
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	config, err := review.ConfigFromProfile(profile)
	if err != nil {
		return nil, errors.Wrap(err, "invalid engine configuration")
	}

	s := &Server{
		Profile:       profile,
		Store:         store,
		ReviewService: review.NewService(store, config),
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(middleware.RequestContext(slog.Default()))
	echoServer.Use(middleware.NewRateLimiter(profile.RateLimitPerSecond, profile.RateLimitBurst).Middleware(middleware.LearnerKey))
	s.echoServer = echoServer

	// Register healthz endpoint.
	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiv1.NewAPIV1Service(profile, s.ReviewService, observability.GlobalMetrics()).RegisterRoutes(echoServer)
	rss.NewRSSService(profile, s.ReviewService).RegisterRoutes(echoServer)

	return s, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	var address, network string
	if len(s.Profile.UNIXSock) == 0 {
		address = fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
		network = "tcp"
	} else {
		address = s.Profile.UNIXSock
		network = "unix"
	}
	listener, err := net.Listen(network, address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	if err := s.StartBackgroundRunners(ctx); err != nil {
		return err
	}
	slog.Info("wordloop server started", "network", network, "address", address, "mode", s.Profile.Mode)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	// Cancel all background runners
	for _, cancelFunc := range s.runnerCancelFuncs {
		if cancelFunc != nil {
			cancelFunc()
		}
	}

	// Shutdown echo server.
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	// Close database connection.
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("wordloop stopped properly")
}

// StartBackgroundRunners starts the reminder runner when enabled.
func (s *Server) StartBackgroundRunners(ctx context.Context) error {
	if !s.Profile.ReminderEnabled {
		return nil
	}

	dispatcher, err := NewDispatcher(ctx, s.Profile)
	if err != nil {
		return err
	}
	runner := reminder.NewRunner(s.Store, s.ReviewService, dispatcher, s.Profile.ReminderCron, s.ReviewService.Location())

	runnerCtx, cancel := context.WithCancel(ctx)
	s.runnerCancelFuncs = append(s.runnerCancelFuncs, cancel)
	go func() {
		if err := runner.Run(runnerCtx); err != nil {
			slog.Error("reminder runner failed", "error", err)
		}
	}()
	return nil
}
