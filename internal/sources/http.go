package sources

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"github.com/mohammad-safakhou/narrator/config"
	"github.com/mohammad-safakhou/narrator/models"
)

const (
	DefaultArticleTimeout = 15 * time.Second
	DefaultListingTimeout = 10 * time.Second
	DefaultMaxChars       = 20000
	maxBodyBytes          = 5 << 20
)

// Renderer returns the HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// HTTPCollector fetches article pages over HTTP (or a headless renderer) and
// builds the listing from RSS/Atom feeds.
type HTTPCollector struct {
	source         string
	feeds          []config.FeedConfig
	client         *http.Client
	renderer       Renderer
	userAgent      string
	articleTimeout time.Duration
	listingTimeout time.Duration
	maxChars       int
	logger         *log.Logger
	now            func() time.Time
}

// NewHTTPCollector builds a collector from configuration.
func NewHTTPCollector(cfg config.SourcesConfig, logger *log.Logger) *HTTPCollector {
	c := &HTTPCollector{
		source:         cfg.Name,
		feeds:          cfg.Feeds,
		client:         &http.Client{},
		userAgent:      cfg.UserAgent,
		articleTimeout: cfg.ArticleTimeout,
		listingTimeout: cfg.ListingTimeout,
		maxChars:       cfg.MaxChars,
		logger:         logger,
		now:            time.Now,
	}
	if c.articleTimeout <= 0 {
		c.articleTimeout = DefaultArticleTimeout
	}
	if c.listingTimeout <= 0 {
		c.listingTimeout = DefaultListingTimeout
	}
	if c.maxChars <= 0 {
		c.maxChars = DefaultMaxChars
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	if cfg.Renderer == "chromedp" {
		c.renderer = &ChromedpRenderer{UserAgent: cfg.UserAgent}
	}
	return c
}

// FetchArticleContent downloads url and extracts its readable text.
func (c *HTTPCollector) FetchArticleContent(ctx context.Context, url string) (models.ArticleContent, error) {
	pageURL, err := nurl.Parse(url)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return models.ArticleContent{}, &FetchError{URL: url, Reason: "invalid url", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.articleTimeout)
	defer cancel()

	html, err := c.fetchHTML(ctx, url)
	if err != nil {
		return models.ArticleContent{}, err
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return models.ArticleContent{}, &FetchError{URL: url, Reason: "extract content", Err: err}
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return models.ArticleContent{}, &FetchError{URL: url, Reason: "no readable content"}
	}
	text = TruncateRunes(text, c.maxChars)
	return models.ArticleContent{
		URL:       url,
		Title:     strings.TrimSpace(article.Title),
		Content:   text,
		FetchedAt: c.now().UTC(),
	}, nil
}

func (c *HTTPCollector) fetchHTML(ctx context.Context, url string) (string, error) {
	if c.renderer != nil {
		html, err := c.renderer.Render(ctx, url)
		if err != nil {
			return "", &FetchError{URL: url, Reason: "render page", Err: err}
		}
		return html, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Reason: "build request", Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{URL: url, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{URL: url, Reason: "read body", Err: err}
	}
	return string(b), nil
}

// FetchListing parses every configured feed. Feeds that fail are logged and skipped;
// the call fails only when no feed could be read.
func (c *HTTPCollector) FetchListing(ctx context.Context) (models.Listing, error) {
	if len(c.feeds) == 0 {
		return models.Listing{}, &FetchError{URL: c.source, Reason: "no feeds configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.listingTimeout)
	defer cancel()

	scrapedAt := c.now().UTC()
	parser := gofeed.NewParser()
	parser.Client = c.client
	if c.userAgent != "" {
		parser.UserAgent = c.userAgent
	}

	var (
		articles []models.ArticleRecord
		lastErr  error
		okFeeds  int
	)
	for _, f := range c.feeds {
		feed, err := parser.ParseURLWithContext(f.URL, ctx)
		if err != nil {
			c.logger.Printf("feed %s (%s) failed: %v", f.Name, f.URL, err)
			lastErr = err
			continue
		}
		okFeeds++
		articles = append(articles, feedArticles(feed, f, scrapedAt)...)
	}
	if okFeeds == 0 {
		return models.Listing{}, &FetchError{URL: c.source, Reason: "all feeds failed", Err: lastErr}
	}

	return models.Listing{
		Source:    c.source,
		ScrapedAt: scrapedAt,
		Articles:  dedupeAndSort(articles),
	}, nil
}

var _ Collector = (*HTTPCollector)(nil)
