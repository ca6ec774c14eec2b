package sources

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/narrator/models"
)

// Collector fetches raw article content and headline listings.
type Collector interface {
	FetchArticleContent(ctx context.Context, url string) (models.ArticleContent, error)
	FetchListing(ctx context.Context) (models.Listing, error)
}

// FetchError reports that content or a listing could not be retrieved.
type FetchError struct {
	URL    string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }
