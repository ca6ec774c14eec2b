package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/narrator/internal/crew"
	"github.com/mohammad-safakhou/narrator/internal/listing"
	"github.com/mohammad-safakhou/narrator/internal/narration"
	"github.com/mohammad-safakhou/narrator/internal/sources"
	"github.com/mohammad-safakhou/narrator/provider"
)

// Error kinds reported to clients.
const (
	KindInvalidRequest = "invalid_request"
	KindSourceFetch    = "source_fetch"
	KindGeneration     = "generation"
	KindPipelineTask   = "pipeline_task"
	KindNoListing      = "no_listing"
	KindInternal       = "internal"
)

// ErrorDescriptor is the body of every failed response.
type ErrorDescriptor struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error ErrorDescriptor `json:"error"`
}

// describe maps a service error onto a status code and descriptor.
func describe(err error) (int, ErrorDescriptor) {
	var (
		httpErr *echo.HTTPError
		fetch   *sources.FetchError
		gen     *provider.GenerationError
		task    *crew.TaskError
	)
	switch {
	case errors.As(err, &httpErr):
		kind := KindInternal
		if httpErr.Code < 500 {
			kind = KindInvalidRequest
		}
		return httpErr.Code, ErrorDescriptor{Kind: kind, Message: fmt.Sprint(httpErr.Message)}
	case errors.Is(err, narration.ErrInvalidURL):
		return http.StatusBadRequest, ErrorDescriptor{Kind: KindInvalidRequest, Message: err.Error()}
	case errors.Is(err, listing.ErrNoListing):
		return http.StatusServiceUnavailable, ErrorDescriptor{Kind: KindNoListing, Message: err.Error()}
	case errors.As(err, &fetch):
		return http.StatusBadGateway, ErrorDescriptor{Kind: KindSourceFetch, Message: err.Error()}
	case errors.As(err, &gen):
		code := http.StatusBadGateway
		if gen.Timeout() {
			code = http.StatusGatewayTimeout
		}
		return code, ErrorDescriptor{Kind: KindGeneration, Message: err.Error()}
	case errors.As(err, &task):
		return http.StatusInternalServerError, ErrorDescriptor{Kind: KindPipelineTask, Message: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorDescriptor{Kind: KindInternal, Message: err.Error()}
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	code, desc := describe(err)
	req := c.Request()
	s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
	if !c.Response().Committed {
		_ = c.JSON(code, errorResponse{Error: desc})
	}
}
