package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/narrator/internal/narration"
	"github.com/mohammad-safakhou/narrator/internal/search"
)

const defaultSearchLimit = 20

type searchResponse struct {
	Query string       `json:"query"`
	Hits  []search.Hit `json:"hits"`
}

// getNews returns the listing, or search hits when q is set.
// Query: refresh=true forces a scrape; limit caps search hits.
func (s *Server) getNews(c echo.Context) error {
	ctx := c.Request().Context()
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		limit := defaultSearchLimit
		if raw := c.QueryParam("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
			}
			limit = n
		}
		hits, err := s.lister.Search(ctx, q, limit)
		if err != nil {
			return err
		}
		if hits == nil {
			hits = []search.Hit{}
		}
		return c.JSON(http.StatusOK, searchResponse{Query: q, Hits: hits})
	}

	force := false
	if raw := c.QueryParam("refresh"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "refresh must be a boolean")
		}
		force = b
	}
	res, err := s.lister.Get(ctx, force)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) getNewsMeta(c echo.Context) error {
	meta, err := s.lister.Meta(c.Request().Context())
	if err != nil {
		return err
	}
	if meta == nil {
		return echo.NewHTTPError(http.StatusNotFound, "listing has never been refreshed")
	}
	return c.JSON(http.StatusOK, meta)
}

func (s *Server) createNarration(c echo.Context) error {
	var req narration.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}
	res, err := s.narrator.Narrate(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
