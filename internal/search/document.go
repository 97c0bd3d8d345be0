// Package search provides full-text search over published articles using
// Bleve. Titles and bodies are indexed accent-folded so "memorias" finds
// "Memórias".
package search

import (
	"strconv"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/normalize"
	"github.com/verbetes/verbete-server/internal/slug"
)

// Document is the indexed form of an article.
type Document struct {
	ID          string // article id, decimal
	Type        domain.VerbeteType
	Title       string
	Body        string
	Tags        []string // slugs
	Categories  []string // slugs
	PublishedAt int64    // Unix millis
}

// FromArticle builds the index document for a.
func FromArticle(a *domain.Article) *Document {
	doc := &Document{
		ID:          strconv.FormatInt(a.ID, 10),
		Type:        a.VerbeteType,
		Title:       a.Title,
		Body:        normalize.Text(a.ContentHTML),
		PublishedAt: a.PublishedAt.UnixMilli(),
	}
	for _, t := range a.Tags {
		doc.Tags = append(doc.Tags, t.Slug)
	}
	for _, c := range a.Categories {
		doc.Categories = append(doc.Categories, c.Slug)
	}
	return doc
}

// ToMap converts the document to the field names of the index mapping.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"type":         string(d.Type),
		"title":        slug.Fold(d.Title),
		"display":      d.Title,
		"body":         slug.Fold(d.Body),
		"published_at": d.PublishedAt,
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if len(d.Categories) > 0 {
		m["categories"] = d.Categories
	}
	return m
}
