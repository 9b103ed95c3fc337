package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a validated page request. Out of range values fall back to the
// defaults instead of failing the request.
type Params struct {
	Page  int
	Limit int
}

// Parse reads ?page= and ?limit= from the query string.
func Parse(c *gin.Context) Params {
	p := Params{Page: DefaultPage, Limit: DefaultLimit}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = min(v, MaxLimit)
	}
	return p
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// List is one page of a collection plus enough to render a pager.
type List[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func NewList[T any](items []T, total int64, p Params) List[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return List[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
