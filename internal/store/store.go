// Package store defines the persistence contracts of the verbete server.
// Two backends implement them: sqlite (the default) and kv, an embedded
// badger store for single-binary deployments.
package store

import (
	"context"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/query"
)

// SubmissionRepository persists submissions and their status history.
// Every method returns copies; callers never alias stored state.
type SubmissionRepository interface {
	// CreateSubmission inserts s and assigns s.ID.
	CreateSubmission(ctx context.Context, s *domain.Submission) error
	GetSubmission(ctx context.Context, id int64) (*domain.Submission, error)
	GetSubmissionByDocumentID(ctx context.Context, documentID string) (*domain.Submission, error)
	// ListSubmissionsByOwner returns the owner's submissions, most
	// recently updated first.
	ListSubmissionsByOwner(ctx context.Context, ownerID string) ([]*domain.Submission, error)
	// ListSubmissionsByStatus returns submissions in status, oldest
	// submission first.
	ListSubmissionsByStatus(ctx context.Context, status domain.Status) ([]*domain.Submission, error)
	// UpdateSubmission replaces the editable fields of a draft. Status,
	// SubmittedAt and ArticleID are left as stored. Returns ErrStaleState
	// if the stored record is no longer a draft. Concurrent updates of a
	// draft resolve last-write-wins.
	UpdateSubmission(ctx context.Context, s *domain.Submission) error
	// TransitionSubmission writes s only if the stored status is still
	// from, and appends change to the history in the same transaction.
	// When article is non-nil it is upserted by submission and s.ArticleID
	// is set to its id. Returns ErrStaleState if the status moved.
	TransitionSubmission(ctx context.Context, s *domain.Submission, from domain.Status, change *domain.StatusChange, article *domain.Article) error
	DeleteSubmission(ctx context.Context, id int64) error
	// ListStatusChanges returns the history of a submission, oldest first.
	ListStatusChanges(ctx context.Context, submissionID int64) ([]domain.StatusChange, error)
}

// ArticleRepository reads the published projection.
type ArticleRepository interface {
	// ListArticles returns the page of articles matching f, newest
	// publication first, and the total number of matches.
	ListArticles(ctx context.Context, f query.Filter, p query.Page, shape query.Shape) ([]*domain.Article, int, error)
	GetArticle(ctx context.Context, id int64, shape query.Shape) (*domain.Article, error)
	GetArticleByDocumentID(ctx context.Context, documentID string, shape query.Shape) (*domain.Article, error)
	// GetArticlesByIDs returns the articles that exist among ids, in the
	// order given.
	GetArticlesByIDs(ctx context.Context, ids []int64, shape query.Shape) ([]*domain.Article, error)
	// ArticleSlugTaken reports whether slug belongs to an article of a
	// submission other than submissionID.
	ArticleSlugTaken(ctx context.Context, slug string, submissionID int64) (bool, error)
}

// TaxonomyRepository persists tags, categories and author bylines.
type TaxonomyRepository interface {
	// CreateTag assigns t.ID. Returns ErrAlreadyExists on a duplicate slug.
	CreateTag(ctx context.Context, t *domain.Tag) error
	ListTags(ctx context.Context) ([]domain.Tag, error)
	// TagsByIDs returns the tags that exist among ids, ordered by id.
	TagsByIDs(ctx context.Context, ids []int64) ([]domain.Tag, error)
	// CreateCategory assigns c.ID. Returns ErrAlreadyExists on a duplicate slug.
	CreateCategory(ctx context.Context, c *domain.Category) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	// CategoriesByIDs returns the categories that exist among ids, ordered by id.
	CategoriesByIDs(ctx context.Context, ids []int64) ([]domain.Category, error)
	// FindOrCreateAuthor returns the byline of userID, creating it with
	// name on first use.
	FindOrCreateAuthor(ctx context.Context, userID, name string) (*domain.Author, error)
}

// ContentKind names a record type carrying HTML body content.
type ContentKind string

// Content kinds.
const (
	ContentSubmission ContentKind = "submission"
	ContentArticle    ContentKind = "article"
)

// ContentItem is one stored HTML body. Source is the text the HTML was
// derived from; for articles it is the HTML itself.
type ContentItem struct {
	Kind   ContentKind
	ID     int64
	Source string
	HTML   string
}

// ContentRepository gives batch maintenance access to stored bodies.
type ContentRepository interface {
	ListContent(ctx context.Context) ([]ContentItem, error)
	// SetContentHTML rewrites a single body if its source still equals
	// source, the value ListContent reported. Returns ErrNotFound if the
	// record is gone and ErrStaleState if the source changed since.
	SetContentHTML(ctx context.Context, kind ContentKind, id int64, source, html string) error
}

// Store is everything a backend provides.
type Store interface {
	SubmissionRepository
	ArticleRepository
	TaxonomyRepository
	ContentRepository
	Close() error
}
