package domain

import (
	"maps"
	"slices"
	"time"
)

// Article is the published, read-only projection of an approved submission.
// Front-ends only ever read articles.
type Article struct {
	ID           int64             `json:"id"`
	DocumentID   string            `json:"document_id"`
	SubmissionID int64             `json:"submission_id"`
	VerbeteType  VerbeteType       `json:"verbete_type"`
	Title        string            `json:"title"`
	Slug         string            `json:"slug"`
	ContentHTML  string            `json:"content_html"`
	Fields       map[string]string `json:"fields"`
	Tags         []Tag             `json:"tags"`
	Categories   []Category        `json:"categories"`
	Authors      []Author          `json:"authors"`
	PublishedAt  time.Time         `json:"published_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// HasCategory reports whether the article is filed under category id.
func (a *Article) HasCategory(id int64) bool {
	return slices.ContainsFunc(a.Categories, func(c Category) bool { return c.ID == id })
}

// HasAnyTag reports whether the article carries at least one of ids.
func (a *Article) HasAnyTag(ids []int64) bool {
	for _, t := range a.Tags {
		if slices.Contains(ids, t.ID) {
			return true
		}
	}
	return false
}

// TagIDs returns the ids of the article's tags.
func (a *Article) TagIDs() []int64 {
	ids := make([]int64, len(a.Tags))
	for i, t := range a.Tags {
		ids[i] = t.ID
	}
	return ids
}

// CategoryIDs returns the ids of the article's categories.
func (a *Article) CategoryIDs() []int64 {
	ids := make([]int64, len(a.Categories))
	for i, c := range a.Categories {
		ids[i] = c.ID
	}
	return ids
}

// Clone returns a deep copy.
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	c := *a
	c.Fields = maps.Clone(a.Fields)
	c.Tags = slices.Clone(a.Tags)
	c.Categories = slices.Clone(a.Categories)
	c.Authors = slices.Clone(a.Authors)
	return &c
}

// Author is the public byline of a published article.
type Author struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}
