package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context using
// DefaultLimit and MaxLimit.
func FromContext(c echo.Context) Params {
	return FromContextWithLimits(c, DefaultLimit, MaxLimit)
}

// FromContextWithLimits extracts pagination parameters, applying def when no
// limit is given and clamping to max.
func FromContextWithLimits(c echo.Context, def, max int) Params {
	limit, _ := strconv.Atoi(c.QueryParam("_count"))
	if limit <= 0 {
		limit, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}

	offset, _ := strconv.Atoi(c.QueryParam("_offset"))
	if offset <= 0 {
		offset, _ = strconv.Atoi(c.QueryParam("offset"))
	}
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// Slice returns the page of items selected by p.
func Slice[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) || p.Limit <= 0 {
		end = len(items)
	}
	return items[p.Offset:end]
}

// Response wraps a paginated API response.
type Response[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewResponse pages items with p and wraps the result.
func NewResponse[T any](items []T, p Params) *Response[T] {
	return &Response[T]{
		Data:    Slice(items, p),
		Total:   len(items),
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(len(items)),
	}
}
