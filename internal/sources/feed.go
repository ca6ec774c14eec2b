package sources

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/mohammad-safakhou/narrator/config"
	"github.com/mohammad-safakhou/narrator/models"
)

const summaryChars = 300

// ArticleID derives a stable identifier from an article link.
func ArticleID(link string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String()
}

func feedArticles(feed *gofeed.Feed, f config.FeedConfig, scrapedAt time.Time) []models.ArticleRecord {
	category := f.Category
	if category == "" {
		category = f.Name
	}
	out := make([]models.ArticleRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		link, err := CanonicalURL(item.Link)
		title := strings.TrimSpace(item.Title)
		if err != nil || title == "" {
			continue
		}
		pub := scrapedAt
		if item.PublishedParsed != nil {
			pub = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			pub = item.UpdatedParsed.UTC()
		}
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		out = append(out, models.ArticleRecord{
			ID:          ArticleID(link),
			Title:       title,
			URL:         link,
			Category:    category,
			Summary:     truncate(PlainText(desc), summaryChars),
			ImageURL:    itemImage(item),
			PublishedAt: pub,
			ScrapedAt:   scrapedAt,
		})
	}
	return out
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// dedupeAndSort keeps the first record per URL and orders newest first.
func dedupeAndSort(in []models.ArticleRecord) []models.ArticleRecord {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.ArticleRecord, 0, len(in))
	for _, a := range in {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

// truncate shortens s to n characters, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	if n <= 3 {
		return TruncateRunes(s, n)
	}
	return TruncateRunes(s, n-3) + "..."
}
