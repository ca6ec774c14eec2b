package models

import (
	"time"
)

// ArticleRecord is one headline produced by the source collector.
type ArticleRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Category    string    `json:"category"`
	Summary     string    `json:"summary,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Listing is the result of a single scrape of the headline sources.
type Listing struct {
	Source    string          `json:"source"`
	ScrapedAt time.Time       `json:"scraped_at"`
	Articles  []ArticleRecord `json:"articles"`
}

// ArticleContent is the readable body of one article page.
type ArticleContent struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NarrationEntry is a persisted pipeline result, keyed by (url, fingerprint).
type NarrationEntry struct {
	Key           string    `json:"key"`
	SourceURL     string    `json:"source_url"`
	Fingerprint   string    `json:"fingerprint"`
	Title         string    `json:"title"`
	NarrationText string    `json:"narration_text"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListingEntry is the persisted form of the latest listing.
type ListingEntry struct {
	Source        string          `json:"source"`
	ScrapedAt     time.Time       `json:"scraped_at"`
	Articles      []ArticleRecord `json:"articles"`
	LastWriteTime time.Time       `json:"last_write_time"`
}

// Expired reports whether the entry is older than maxAge at now.
func (e ListingEntry) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.LastWriteTime) > maxAge
}

// ListingMeta records the last successful refresh for a source.
type ListingMeta struct {
	Source       string    `json:"source"`
	LastRefresh  time.Time `json:"last_refresh"`
	ArticleCount int       `json:"article_count"`
}
