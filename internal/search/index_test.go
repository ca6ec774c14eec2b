package search

import (
	"testing"

	"github.com/mohammad-safakhou/narrator/models"
)

func TestIndexSearch(t *testing.T) {
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	err = idx.Replace([]models.ArticleRecord{
		{ID: "1", Title: "Flood waters rise in the valley", Category: "world"},
		{ID: "2", Title: "New telescope spots distant galaxy", Summary: "astronomers cheer", Category: "science"},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 docs, got %d", idx.Len())
	}

	hits, err := idx.Search("galaxy", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Article.ID != "2" || hits[0].Rank != 1 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestIndexReplaceDropsOldArticles(t *testing.T) {
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	_ = idx.Replace([]models.ArticleRecord{{ID: "1", Title: "Flood waters rise"}})
	_ = idx.Replace([]models.ArticleRecord{{ID: "2", Title: "Harvest festival returns"}})

	hits, err := idx.Search("flood", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected old article gone, got %+v", hits)
	}
}

func TestIndexEmptyQuery(t *testing.T) {
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	hits, err := idx.Search("   ", 10)
	if err != nil || hits != nil {
		t.Fatalf("expected no hits and no error, got %v %v", hits, err)
	}
}

func TestIndexMalformedQueryFallsBack(t *testing.T) {
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()
	_ = idx.Replace([]models.ArticleRecord{{ID: "1", Title: "Flood waters rise"}})

	if _, err := idx.Search("flood AND (", 10); err != nil {
		t.Fatalf("expected fallback match query, got %v", err)
	}
}
