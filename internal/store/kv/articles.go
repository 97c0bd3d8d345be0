package kv

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/query"
	"github.com/verbetes/verbete-server/internal/store"
)

// ListArticles scans every article, filters in memory, and pages the
// result newest first.
func (s *Store) ListArticles(ctx context.Context, f query.Filter, p query.Page, shape query.Shape) ([]*domain.Article, int, error) {
	var (
		page  []*domain.Article
		total int
	)
	err := s.view(ctx, func(txn *badger.Txn) error {
		var matches []*articleRecord
		err := s.articles.each(txn, func(rec *articleRecord) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if f.Matches(refsOnly(rec)) {
				matches = append(matches, rec)
			}
			return true, nil
		})
		if err != nil {
			return err
		}

		slices.SortFunc(matches, func(a, b *articleRecord) int {
			if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})

		total = len(matches)
		start := min(p.Offset(), total)
		end := min(start+p.Limit, total)

		page = make([]*domain.Article, 0, end-start)
		for _, rec := range matches[start:end] {
			a, err := s.hydrate(txn, rec, shape)
			if err != nil {
				return err
			}
			page = append(page, a)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page, total, nil
}

// GetArticle retrieves an article by ID.
func (s *Store) GetArticle(ctx context.Context, id int64, shape query.Shape) (*domain.Article, error) {
	var a *domain.Article
	err := s.view(ctx, func(txn *badger.Txn) error {
		rec, err := s.articles.get(txn, id)
		if err != nil {
			return err
		}
		a, err = s.hydrate(txn, rec, shape)
		return err
	})
	return a, err
}

// GetArticleByDocumentID retrieves an article by its public document id.
func (s *Store) GetArticleByDocumentID(ctx context.Context, documentID string, shape query.Shape) (*domain.Article, error) {
	var a *domain.Article
	err := s.view(ctx, func(txn *badger.Txn) error {
		rec, err := s.articles.lookup(txn, "document", documentID)
		if err != nil {
			return err
		}
		a, err = s.hydrate(txn, rec, shape)
		return err
	})
	return a, err
}

// GetArticlesByIDs returns the existing articles among ids in the given order.
func (s *Store) GetArticlesByIDs(ctx context.Context, ids []int64, shape query.Shape) ([]*domain.Article, error) {
	articles := make([]*domain.Article, 0, len(ids))
	err := s.view(ctx, func(txn *badger.Txn) error {
		seen := make(map[int64]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			rec, err := s.articles.get(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			a, err := s.hydrate(txn, rec, shape)
			if err != nil {
				return err
			}
			articles = append(articles, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// ArticleSlugTaken reports whether slug is used by another submission's article.
func (s *Store) ArticleSlugTaken(ctx context.Context, slug string, submissionID int64) (bool, error) {
	var taken bool
	err := s.view(ctx, func(txn *badger.Txn) error {
		rec, err := s.articles.lookup(txn, "slug", slug)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		taken = rec.SubmissionID != submissionID
		return nil
	})
	return taken, err
}

// upsertArticle writes a keyed by its submission. A republished article
// keeps its id, document id and publication time.
func (s *Store) upsertArticle(txn *badger.Txn, a *domain.Article) (*articleRecord, error) {
	rec := &articleRecord{Article: *a.Clone()}
	rec.Tags, rec.Categories, rec.Authors = nil, nil, nil
	rec.TagRefs = a.TagIDs()
	rec.CategoryRefs = a.CategoryIDs()
	rec.AuthorRefs = make([]int64, len(a.Authors))
	for i, au := range a.Authors {
		rec.AuthorRefs[i] = au.ID
	}

	existing, err := s.articles.lookup(txn, "submission", strconv.FormatInt(a.SubmissionID, 10))
	switch {
	case err == nil:
		rec.ID = existing.ID
		rec.DocumentID = existing.DocumentID
		rec.PublishedAt = existing.PublishedAt
		return rec, s.articles.replace(txn, rec.ID, rec)
	case errors.Is(err, store.ErrNotFound):
		id, err := s.nextID("art")
		if err != nil {
			return nil, err
		}
		rec.ID = id
		return rec, s.articles.insert(txn, id, rec)
	default:
		return nil, err
	}
}

// refsOnly exposes a record's relation ids in article form, enough for
// filter matching.
func refsOnly(rec *articleRecord) *domain.Article {
	a := rec.Article
	a.Tags = make([]domain.Tag, len(rec.TagRefs))
	for i, id := range rec.TagRefs {
		a.Tags[i] = domain.Tag{ID: id}
	}
	a.Categories = make([]domain.Category, len(rec.CategoryRefs))
	for i, id := range rec.CategoryRefs {
		a.Categories[i] = domain.Category{ID: id}
	}
	return &a
}

// hydrate resolves the relations selected by shape. Dangling ids are skipped.
func (s *Store) hydrate(txn *badger.Txn, rec *articleRecord, shape query.Shape) (*domain.Article, error) {
	a := rec.Article.Clone()

	if shape.Has(query.WithTags) {
		a.Tags = []domain.Tag{}
		for _, id := range rec.TagRefs {
			t, err := s.tags.get(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			a.Tags = append(a.Tags, *t)
		}
		slices.SortFunc(a.Tags, func(x, y domain.Tag) int {
			return cmp.Or(cmp.Compare(x.Name, y.Name), cmp.Compare(x.ID, y.ID))
		})
	}

	if shape.Has(query.WithCategories) {
		a.Categories = []domain.Category{}
		for _, id := range rec.CategoryRefs {
			c, err := s.categories.get(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			a.Categories = append(a.Categories, *c)
		}
		slices.SortFunc(a.Categories, func(x, y domain.Category) int {
			return cmp.Or(cmp.Compare(x.Name, y.Name), cmp.Compare(x.ID, y.ID))
		})
	}

	if shape.Has(query.WithAuthors) {
		a.Authors = []domain.Author{}
		for _, id := range rec.AuthorRefs {
			au, err := s.authors.get(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			a.Authors = append(a.Authors, *au)
		}
	}
	return a, nil
}
