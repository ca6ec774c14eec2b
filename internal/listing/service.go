package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mohammad-safakhou/narrator/internal/cache"
	"github.com/mohammad-safakhou/narrator/internal/search"
	"github.com/mohammad-safakhou/narrator/internal/sources"
	"github.com/mohammad-safakhou/narrator/internal/telemetry"
	"github.com/mohammad-safakhou/narrator/models"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// ErrNoListing means a refresh failed and no cached listing exists to fall back on.
var ErrNoListing = errors.New("no listing available")

// Result is what callers see. Articles is never nil on success, so an empty
// scrape is distinguishable from a failure.
type Result struct {
	Articles  []models.ArticleRecord `json:"articles"`
	Source    string                 `json:"source"`
	ScrapedAt time.Time              `json:"scraped_at"`
	FromCache bool                   `json:"from_cache"`
	IsStale   bool                   `json:"is_stale,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Service serves the headline listing from cache and refreshes it from the collector.
type Service struct {
	collector sources.Collector
	cache     *cache.ListingCache
	index     *search.Index
	logger    *log.Logger
	metrics   *telemetry.Metrics

	group          singleflight.Group
	guard          *semaphore.Weighted
	refreshTimeout time.Duration
}

// DefaultRefreshTimeout bounds one shared scrape-and-store.
const DefaultRefreshTimeout = 2 * time.Minute

type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRefreshTimeout bounds a shared refresh independently of its callers.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

// WithIndex enables Search over the latest listing.
func WithIndex(idx *search.Index) Option {
	return func(s *Service) { s.index = idx }
}

func NewService(collector sources.Collector, listings *cache.ListingCache, opts ...Option) *Service {
	s := &Service{
		collector: collector,
		cache:     listings,
		logger:    log.New(io.Discard, "", 0),
		guard:     semaphore.NewWeighted(1),

		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func fromEntry(e *models.ListingEntry) Result {
	articles := e.Articles
	if articles == nil {
		articles = []models.ArticleRecord{}
	}
	return Result{Articles: articles, Source: e.Source, ScrapedAt: e.ScrapedAt, FromCache: true}
}

// Get returns the cached listing while it is fresh, refreshing otherwise.
// When a refresh fails the newest cached listing is served marked stale.
func (s *Service) Get(ctx context.Context, forceRefresh bool) (Result, error) {
	if !forceRefresh {
		entry, err := s.cache.Get(ctx, false)
		switch {
		case err != nil:
			s.logger.Printf("listing cache read: %v", err)
			s.metrics.CacheLookup("listing", "error")
		case entry != nil:
			s.metrics.CacheLookup("listing", "hit")
			s.syncIndex(entry, false)
			return fromEntry(entry), nil
		default:
			s.metrics.CacheLookup("listing", "miss")
		}
	}

	entry, refreshErr := s.Refresh(ctx)
	if refreshErr == nil {
		res := fromEntry(&entry)
		res.FromCache = false
		return res, nil
	}

	stale, err := s.cache.Get(ctx, true)
	if err != nil {
		s.logger.Printf("listing fallback read: %v", err)
	}
	if stale == nil {
		s.metrics.ListingRefresh("failure")
		return Result{}, fmt.Errorf("%w: %w", ErrNoListing, refreshErr)
	}
	s.metrics.ListingRefresh("stale_fallback")
	s.logger.Printf("serving stale listing from %s: %v", stale.LastWriteTime.Format(time.RFC3339), refreshErr)
	s.syncIndex(stale, false)
	res := fromEntry(stale)
	res.IsStale = true
	res.Error = refreshErr.Error()
	return res, nil
}

// Refresh scrapes the listing and replaces the cached entry. Concurrent callers
// share one scrape. The scrape runs detached from every caller's cancellation,
// bounded by the refresh timeout; a caller whose ctx ends stops waiting but the
// others still receive the result.
func (s *Service) Refresh(ctx context.Context) (models.ListingEntry, error) {
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()
		return s.refresh(rctx)
	})
	select {
	case <-ctx.Done():
		return models.ListingEntry{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return models.ListingEntry{}, r.Err
		}
		return r.Val.(models.ListingEntry), nil
	}
}

func (s *Service) refresh(ctx context.Context) (models.ListingEntry, error) {
	if err := s.guard.Acquire(ctx, 1); err != nil {
		return models.ListingEntry{}, err
	}
	defer s.guard.Release(1)

	listing, err := s.collector.FetchListing(ctx)
	if err != nil {
		s.logger.Printf("listing refresh failed: %v", err)
		return models.ListingEntry{}, err
	}
	if listing.Articles == nil {
		listing.Articles = []models.ArticleRecord{}
	}

	entry, err := s.cache.Put(ctx, listing)
	if err != nil {
		// the scrape is still good; serve it even though it was not persisted
		s.logger.Printf("listing cache write: %v", err)
	}
	s.metrics.ListingRefresh("success")
	s.syncIndex(&entry, true)
	s.logger.Printf("listing refreshed: %d articles from %s", len(entry.Articles), entry.Source)
	return entry, nil
}

// syncIndex rebuilds the search index when forced or when it is still empty.
func (s *Service) syncIndex(e *models.ListingEntry, force bool) {
	if s.index == nil {
		return
	}
	if !force && s.index.Len() > 0 {
		return
	}
	if err := s.index.Replace(e.Articles); err != nil {
		s.logger.Printf("search index rebuild: %v", err)
	}
}

// Search queries the latest listing, loading it first when needed.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]search.Hit, error) {
	if s.index == nil {
		return nil, errors.New("search not enabled")
	}
	if s.index.Len() == 0 {
		if _, err := s.Get(ctx, false); err != nil {
			return nil, err
		}
	}
	return s.index.Search(query, limit)
}

// Meta returns the last successful refresh record, or nil if none was written.
func (s *Service) Meta(ctx context.Context) (*models.ListingMeta, error) {
	return s.cache.Meta(ctx)
}
