package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Paging defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page selects a window of a listing.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ParsePage reads page and limit, accepting pageSize and the bracketed
// pagination[...] forms. Missing or malformed values take the defaults;
// limit is capped at MaxLimit.
func ParsePage(values url.Values) Page {
	p := Page{Page: DefaultPage, Limit: DefaultLimit}

	if raw, ok := first(values, "page", "pagination[page]"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
			p.Page = n
		}
	}
	if raw, ok := first(values, "limit", "pageSize", "pagination[pageSize]", "pagination[limit]"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
			p.Limit = min(n, MaxLimit)
		}
	}
	return p
}

// Offset is the number of items before this page.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
