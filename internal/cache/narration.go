package cache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mohammad-safakhou/narrator/internal/storage"
	"github.com/mohammad-safakhou/narrator/models"
)

// FingerprintChars is how much of the content participates in the key.
const FingerprintChars = 500

const narrationPrefix = "narration/"

// Fingerprint returns the first FingerprintChars characters of content.
func Fingerprint(content string) string {
	n := 0
	for i := range content {
		if n == FingerprintChars {
			return content[:i]
		}
		n++
	}
	return content
}

// DeriveNarrationKey hashes url and the content fingerprint into a stable key.
func DeriveNarrationKey(url, content string) string {
	sum := xxhash.Sum64String(url + "|" + Fingerprint(content))
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], sum)
	return hex.EncodeToString(b[:])
}

// NarrationCache stores pipeline results keyed by (url, fingerprint).
type NarrationCache struct {
	store storage.Store
	opts  options
}

func NewNarrationCache(st storage.Store, opts ...Option) *NarrationCache {
	return &NarrationCache{store: st, opts: buildOptions(opts)}
}

// NewEntry builds an entry for url and content with the derived key.
func (c *NarrationCache) NewEntry(url, content, title, narration string) models.NarrationEntry {
	return models.NarrationEntry{
		Key:           DeriveNarrationKey(url, content),
		SourceURL:     url,
		Fingerprint:   Fingerprint(content),
		Title:         title,
		NarrationText: narration,
		CreatedAt:     c.opts.now().UTC(),
	}
}

// Lookup returns the entry for (url, content) or nil when absent.
// An entry whose stored url or fingerprint differs is a hash collision and a miss.
func (c *NarrationCache) Lookup(ctx context.Context, url, content string) (*models.NarrationEntry, error) {
	key := DeriveNarrationKey(url, content)
	entry, err := c.read(ctx, key)
	if err != nil || entry == nil {
		return nil, err
	}
	if entry.SourceURL != url || entry.Fingerprint != Fingerprint(content) {
		return nil, nil
	}
	return entry, nil
}

func (c *NarrationCache) read(ctx context.Context, key string) (*models.NarrationEntry, error) {
	b, err := c.store.Get(ctx, narrationPrefix+key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &IOError{Op: "read", Key: key, Err: err}
	}
	var entry models.NarrationEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, &IOError{Op: "decode", Key: key, Err: err}
	}
	return &entry, nil
}

// Store writes entry at entry.Key, replacing anything already there.
func (c *NarrationCache) Store(ctx context.Context, entry models.NarrationEntry) error {
	if entry.Key == "" {
		return &IOError{Op: "write", Err: errors.New("entry has no key")}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.opts.now().UTC()
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return &IOError{Op: "encode", Key: entry.Key, Err: err}
	}
	if err := c.store.Put(ctx, narrationPrefix+entry.Key, b); err != nil {
		return &IOError{Op: "write", Key: entry.Key, Err: err}
	}
	return nil
}

// Cleanup removes entries created more than horizon ago and returns how many went.
// Entries that fail to decode are removed too.
func (c *NarrationCache) Cleanup(ctx context.Context, horizon time.Duration) (int, error) {
	keys, err := c.store.Keys(ctx, narrationPrefix)
	if err != nil {
		return 0, &IOError{Op: "list", Key: narrationPrefix, Err: err}
	}
	cutoff := c.opts.now().Add(-horizon)
	removed := 0
	for _, k := range keys {
		key := k[len(narrationPrefix):]
		entry, err := c.read(ctx, key)
		if err != nil {
			var ioErr *IOError
			if errors.As(err, &ioErr) && ioErr.Op == "read" {
				continue
			}
		} else if entry == nil || !entry.CreatedAt.Before(cutoff) {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil {
			return removed, &IOError{Op: "delete", Key: key, Err: err}
		}
		removed++
	}
	return removed, nil
}
