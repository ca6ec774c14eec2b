package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mohammad-safakhou/narrator/internal/storage"
	"github.com/mohammad-safakhou/narrator/models"
)

// DefaultListingMaxAge is used when no max age is configured.
const DefaultListingMaxAge = 24 * time.Hour

// ListingCache keeps the latest listing for one source, replaced wholesale on Put.
type ListingCache struct {
	store  storage.Store
	source string
	maxAge time.Duration
	opts   options
}

func NewListingCache(st storage.Store, source string, maxAge time.Duration, opts ...Option) *ListingCache {
	if maxAge <= 0 {
		maxAge = DefaultListingMaxAge
	}
	return &ListingCache{store: st, source: source, maxAge: maxAge, opts: buildOptions(opts)}
}

func (c *ListingCache) entryKey() string { return "listing/" + c.source }
func (c *ListingCache) metaKey() string  { return "meta/listing-" + c.source }

// MaxAge returns the freshness window.
func (c *ListingCache) MaxAge() time.Duration { return c.maxAge }

// Get returns the stored entry. Unless allowExpired is set, an expired entry is
// reported as absent.
func (c *ListingCache) Get(ctx context.Context, allowExpired bool) (*models.ListingEntry, error) {
	b, err := c.store.Get(ctx, c.entryKey())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &IOError{Op: "read", Key: c.entryKey(), Err: err}
	}
	var entry models.ListingEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, &IOError{Op: "decode", Key: c.entryKey(), Err: err}
	}
	if !allowExpired && entry.Expired(c.opts.now(), c.maxAge) {
		return nil, nil
	}
	return &entry, nil
}

// Put replaces the stored entry with listing and records the refresh metadata.
func (c *ListingCache) Put(ctx context.Context, listing models.Listing) (models.ListingEntry, error) {
	now := c.opts.now().UTC()
	entry := models.ListingEntry{
		Source:        c.source,
		ScrapedAt:     listing.ScrapedAt,
		Articles:      listing.Articles,
		LastWriteTime: now,
	}
	if entry.Articles == nil {
		entry.Articles = []models.ArticleRecord{}
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return entry, &IOError{Op: "encode", Key: c.entryKey(), Err: err}
	}
	if err := c.store.Put(ctx, c.entryKey(), b); err != nil {
		return entry, &IOError{Op: "write", Key: c.entryKey(), Err: err}
	}

	meta, err := json.Marshal(models.ListingMeta{Source: c.source, LastRefresh: now, ArticleCount: len(entry.Articles)})
	if err != nil {
		return entry, &IOError{Op: "encode", Key: c.metaKey(), Err: err}
	}
	if err := c.store.Put(ctx, c.metaKey(), meta); err != nil {
		return entry, &IOError{Op: "write", Key: c.metaKey(), Err: err}
	}
	return entry, nil
}

// Meta returns the last refresh record, or nil if none was written.
func (c *ListingCache) Meta(ctx context.Context) (*models.ListingMeta, error) {
	b, err := c.store.Get(ctx, c.metaKey())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &IOError{Op: "read", Key: c.metaKey(), Err: err}
	}
	var meta models.ListingMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, &IOError{Op: "decode", Key: c.metaKey(), Err: err}
	}
	return &meta, nil
}
