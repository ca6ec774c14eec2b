package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/narrator/internal/listing"
	"github.com/mohammad-safakhou/narrator/internal/narration"
	"github.com/mohammad-safakhou/narrator/internal/search"
	"github.com/mohammad-safakhou/narrator/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Narrator produces narrations for article URLs.
type Narrator interface {
	Narrate(ctx context.Context, req narration.Request) (narration.Result, error)
}

// Lister serves the headline listing.
type Lister interface {
	Get(ctx context.Context, forceRefresh bool) (listing.Result, error)
	Search(ctx context.Context, query string, limit int) ([]search.Hit, error)
	Meta(ctx context.Context) (*models.ListingMeta, error)
}

// Server is the HTTP surface over the listing and narration services.
type Server struct {
	echo      *echo.Echo
	narrator  Narrator
	lister    Lister
	logger    *log.Logger
	gatherer  prometheus.Gatherer
	scheduler *Scheduler
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithScheduler starts sched alongside the HTTP listener.
func WithScheduler(sched *Scheduler) Option {
	return func(s *Server) { s.scheduler = sched }
}

func New(narrator Narrator, lister Lister, opts ...Option) *Server {
	s := &Server{
		narrator: narrator,
		lister:   lister,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	api.GET("/news", s.getNews)
	api.GET("/news/meta", s.getNewsMeta)
	api.POST("/narrations", s.createNarration)

	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if s.scheduler != nil {
		s.scheduler.Start(ctx)
		defer s.scheduler.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
