package query

import (
	"net/url"
	"strings"

	"github.com/verbetes/verbete-server/internal/domain"
)

// Shape selects which relations of an article are loaded.
type Shape uint8

// Relations.
const (
	WithTags Shape = 1 << iota
	WithCategories
	WithAuthors

	ShapeNone Shape = 0
	ShapeFull       = WithTags | WithCategories | WithAuthors
)

// Has reports whether every relation in r is selected.
func (s Shape) Has(r Shape) bool {
	return s&r == r
}

// ParseShape reads the populate parameter. Absent, "*" or "true" select
// every relation; otherwise a comma list of relation names. Unknown names
// are ignored.
func ParseShape(values url.Values) Shape {
	raw, ok := first(values, "populate")
	if !ok {
		return ShapeFull
	}

	var s Shape
	for _, name := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "*", "true", "all":
			return ShapeFull
		case "tags":
			s |= WithTags
		case "categories":
			s |= WithCategories
		case "authors":
			s |= WithAuthors
		}
	}
	return s
}

// Apply returns a copy of a with unselected relations cleared.
func (s Shape) Apply(a *domain.Article) *domain.Article {
	c := a.Clone()
	if c == nil {
		return nil
	}
	if !s.Has(WithTags) {
		c.Tags = nil
	}
	if !s.Has(WithCategories) {
		c.Categories = nil
	}
	if !s.Has(WithAuthors) {
		c.Authors = nil
	}
	return c
}
