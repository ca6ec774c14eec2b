package search

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/mohammad-safakhou/narrator/models"
)

// Hit is one ranked search result.
type Hit struct {
	Article models.ArticleRecord `json:"article"`
	Score   float64              `json:"score"`
	Rank    int                  `json:"rank"`
}

type doc struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

// Index is an in-memory full-text index over the current listing.
// Replace swaps the whole corpus so it always mirrors one scrape.
type Index struct {
	mu       sync.RWMutex
	index    bleve.Index
	articles map[string]models.ArticleRecord
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx, articles: map[string]models.ArticleRecord{}}, nil
}

// Replace rebuilds the index from articles.
func (x *Index) Replace(articles []models.ArticleRecord) error {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	batch := idx.NewBatch()
	byID := make(map[string]models.ArticleRecord, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
		if err := batch.Index(a.ID, doc{Title: a.Title, Summary: a.Summary, Category: a.Category}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index %s: %w", a.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("index batch: %w", err)
	}

	x.mu.Lock()
	old := x.index
	x.index = idx
	x.articles = byID
	x.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Len returns the number of indexed articles.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.articles)
}

// Search returns up to k hits for q. Queries bleve cannot parse as query
// strings are retried as plain match queries.
func (x *Index) Search(q string, k int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if k <= 0 {
		k = 20
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.index == nil {
		return nil, errors.New("search index closed")
	}

	res, err := x.index.Search(bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), k, 0, false))
	if err != nil {
		res, err = x.index.Search(bleve.NewSearchRequestOptions(bleve.NewMatchQuery(q), k, 0, false))
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", q, err)
		}
	}
	out := make([]Hit, 0, len(res.Hits))
	for i, h := range res.Hits {
		a, ok := x.articles[h.ID]
		if !ok {
			continue
		}
		out = append(out, Hit{Article: a, Score: h.Score, Rank: i + 1})
	}
	return out, nil
}

func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.index == nil {
		return nil
	}
	err := x.index.Close()
	x.index = nil
	return err
}
