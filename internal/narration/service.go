package narration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/narrator/config"
	"github.com/mohammad-safakhou/narrator/internal/cache"
	"github.com/mohammad-safakhou/narrator/internal/crew"
	"github.com/mohammad-safakhou/narrator/internal/sources"
	"github.com/mohammad-safakhou/narrator/internal/telemetry"
	"github.com/mohammad-safakhou/narrator/models"
	"github.com/mohammad-safakhou/narrator/provider"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidURL is returned for anything but an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid article url")

// DefaultRunTimeout bounds one shared fetch, pipeline and store.
const DefaultRunTimeout = 5 * time.Minute

const DefaultStyle = "a warm village storyteller speaking to listeners gathered around a fire"

// Request asks for the narration of one article. Fingerprint is optional; when set it
// replaces the fetched content as the cache key input, so a hit needs no fetch.
type Request struct {
	URL         string `json:"url"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Result is the narration returned to callers.
type Result struct {
	NarrationText string `json:"narration_text"`
	Title         string `json:"title"`
	Cached        bool   `json:"cached"`
}

// Service turns articles into narratives, caching each result by url and content.
type Service struct {
	collector    sources.Collector
	cache        *cache.NarrationCache
	gen          provider.Generator
	style        string
	contentChars int

	logger     *log.Logger
	crewLogger *log.Logger
	metrics    *telemetry.Metrics
	group      singleflight.Group
	runTimeout time.Duration
}

type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCrewLogger sets the logger handed to each pipeline crew.
func WithCrewLogger(l *log.Logger) Option {
	return func(s *Service) { s.crewLogger = l }
}

// WithRunTimeout bounds a shared narration run independently of its callers.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(collector sources.Collector, narrations *cache.NarrationCache, gen provider.Generator, cfg config.NarrationConfig, opts ...Option) *Service {
	s := &Service{
		collector:    collector,
		cache:        narrations,
		gen:          gen,
		style:        cfg.Style,
		contentChars: cfg.ContentChars,
		logger:       log.New(io.Discard, "", 0),
		runTimeout:   DefaultRunTimeout,
	}
	if strings.TrimSpace(s.style) == "" {
		s.style = DefaultStyle
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Narrate returns the cached narration for the article or runs the pipeline.
// The URL is canonicalised first so tracking parameters do not split the cache.
// Concurrent identical requests share a single run, detached from any one
// caller's cancellation and bounded by the run timeout.
func (s *Service) Narrate(ctx context.Context, req Request) (Result, error) {
	canonical, err := sources.CanonicalURL(req.URL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidURL, req.URL)
	}
	req.URL = canonical

	flightKey := "url:" + req.URL
	if req.Fingerprint != "" {
		flightKey = cache.DeriveNarrationKey(req.URL, req.Fingerprint)
	}
	ch := s.group.DoChan(flightKey, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)
		defer cancel()
		return s.narrate(rctx, req)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (s *Service) narrate(ctx context.Context, req Request) (Result, error) {
	if req.Fingerprint != "" {
		if res, ok := s.lookup(ctx, req.URL, req.Fingerprint); ok {
			return res, nil
		}
	}

	article, err := s.collector.FetchArticleContent(ctx, req.URL)
	if err != nil {
		s.logger.Printf("fetch %s failed: %v", req.URL, err)
		return Result{}, err
	}

	keyInput := req.Fingerprint
	if keyInput == "" {
		keyInput = article.Content
		if res, ok := s.lookup(ctx, req.URL, keyInput); ok {
			return res, nil
		}
	}

	text, err := s.runPipeline(ctx, article)
	s.metrics.PipelineRun(err)
	if err != nil {
		s.logger.Printf("pipeline for %s failed: %v", req.URL, err)
		return Result{}, err
	}

	title := article.Title
	if text != "" {
		entry := s.cache.NewEntry(req.URL, keyInput, title, text)
		if err := s.cache.Store(ctx, entry); err != nil {
			s.logger.Printf("store narration %s: %v", entry.Key, err)
		}
	}
	return Result{NarrationText: text, Title: title, Cached: false}, nil
}

// lookup treats cache errors as misses.
func (s *Service) lookup(ctx context.Context, url, keyInput string) (Result, bool) {
	entry, err := s.cache.Lookup(ctx, url, keyInput)
	switch {
	case err != nil:
		s.logger.Printf("narration cache lookup %s: %v", url, err)
		s.metrics.CacheLookup("narration", "error")
		return Result{}, false
	case entry == nil:
		s.metrics.CacheLookup("narration", "miss")
		return Result{}, false
	}
	s.metrics.CacheLookup("narration", "hit")
	return Result{NarrationText: entry.NarrationText, Title: entry.Title, Cached: true}, true
}

func (s *Service) runPipeline(ctx context.Context, article models.ArticleContent) (string, error) {
	tasks := buildPipeline(s.gen, article, s.style, s.contentChars)
	opts := []crew.Option{
		crew.WithObserver(func(ev crew.TaskEvent) {
			s.metrics.TaskDuration(ev.Name, ev.Duration)
		}),
	}
	if s.crewLogger != nil {
		opts = append(opts, crew.WithLogger(s.crewLogger))
	}
	start := time.Now()
	out, err := crew.New(tasks, opts...).Kickoff(ctx)
	if err == nil {
		s.logger.Printf("narrated %s in %s", article.URL, time.Since(start).Round(time.Millisecond))
	}
	return out, err
}

// Cleanup evicts narrations older than horizon.
func (s *Service) Cleanup(ctx context.Context, horizon time.Duration) (int, error) {
	n, err := s.cache.Cleanup(ctx, horizon)
	if err != nil {
		return n, err
	}
	s.logger.Printf("cleanup removed %d narrations older than %s", n, horizon)
	return n, nil
}
