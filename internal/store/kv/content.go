package kv

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/store"
)

// ListContent returns every stored HTML body: submissions first, then
// articles, each in id order.
func (s *Store) ListContent(ctx context.Context) ([]store.ContentItem, error) {
	items := []store.ContentItem{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		err := s.submissions.each(txn, func(sub *domain.Submission) (bool, error) {
			items = append(items, store.ContentItem{
				Kind:   store.ContentSubmission,
				ID:     sub.ID,
				Source: sub.Content,
				HTML:   sub.ContentHTML,
			})
			return true, nil
		})
		if err != nil {
			return err
		}
		return s.articles.each(txn, func(rec *articleRecord) (bool, error) {
			items = append(items, store.ContentItem{
				Kind:   store.ContentArticle,
				ID:     rec.ID,
				Source: rec.ContentHTML,
				HTML:   rec.ContentHTML,
			})
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SetContentHTML rewrites one stored body without touching timestamps,
// provided its source still equals source.
func (s *Store) SetContentHTML(ctx context.Context, kind store.ContentKind, id int64, source, html string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		switch kind {
		case store.ContentSubmission:
			sub, err := s.submissions.get(txn, id)
			if err != nil {
				return err
			}
			if sub.Content != source {
				return store.ErrStaleState
			}
			sub.ContentHTML = html
			return s.submissions.replace(txn, id, sub)
		case store.ContentArticle:
			rec, err := s.articles.get(txn, id)
			if err != nil {
				return err
			}
			if rec.ContentHTML != source {
				return store.ErrStaleState
			}
			rec.ContentHTML = html
			return s.articles.replace(txn, id, rec)
		default:
			return store.ErrInvalidInput.WithCause(fmt.Errorf("unknown content kind %q", kind))
		}
	})
}
