package rest

import (
	"context"
	"net/http"
	"strconv"

	"search-engine/domain"

	"github.com/labstack/echo/v4"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Searcher runs a combined web and news search.
type Searcher interface {
	Search(ctx context.Context, q string, limit, offset int) (domain.SearchResponse, error)
}

// SearchHandler serves GET /search.
type SearchHandler struct {
	searcher Searcher
}

func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

func (h *SearchHandler) Handle(c echo.Context) error {
	q := c.QueryParam("q")
	limit := clampLimit(parseIntParam(c.QueryParam("limit"), defaultLimit))
	offset := parseIntParam(c.QueryParam("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	resp, err := h.searcher.Search(c.Request().Context(), q, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, resp)
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
