package kv

import (
	"cmp"
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/store"
)

// CreateSubmission inserts a submission and assigns its ID.
func (s *Store) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	id, err := s.nextID("sub")
	if err != nil {
		return err
	}
	rec := sub.Clone()
	rec.ID = id
	if err := s.update(ctx, func(txn *badger.Txn) error {
		return s.submissions.insert(txn, id, rec)
	}); err != nil {
		return err
	}
	sub.ID = id
	return nil
}

// GetSubmission retrieves a submission by ID.
func (s *Store) GetSubmission(ctx context.Context, id int64) (*domain.Submission, error) {
	var sub *domain.Submission
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		sub, err = s.submissions.get(txn, id)
		return err
	})
	return sub, err
}

// GetSubmissionByDocumentID retrieves a submission by its public document id.
func (s *Store) GetSubmissionByDocumentID(ctx context.Context, documentID string) (*domain.Submission, error) {
	var sub *domain.Submission
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		sub, err = s.submissions.lookup(txn, "document", documentID)
		return err
	})
	return sub, err
}

// ListSubmissionsByOwner returns an owner's submissions, most recently
// updated first.
func (s *Store) ListSubmissionsByOwner(ctx context.Context, ownerID string) ([]*domain.Submission, error) {
	subs, err := s.scanSubmissions(ctx, func(sub *domain.Submission) bool { return sub.OwnerID == ownerID })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(subs, func(a, b *domain.Submission) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return subs, nil
}

// ListSubmissionsByStatus returns submissions in a status, oldest
// submission first.
func (s *Store) ListSubmissionsByStatus(ctx context.Context, status domain.Status) ([]*domain.Submission, error) {
	subs, err := s.scanSubmissions(ctx, func(sub *domain.Submission) bool { return sub.Status == status })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(subs, func(a, b *domain.Submission) int {
		switch {
		case a.SubmittedAt == nil && b.SubmittedAt != nil:
			return -1
		case a.SubmittedAt != nil && b.SubmittedAt == nil:
			return 1
		case a.SubmittedAt != nil && b.SubmittedAt != nil:
			if c := a.SubmittedAt.Compare(*b.SubmittedAt); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return subs, nil
}

func (s *Store) scanSubmissions(ctx context.Context, keep func(*domain.Submission) bool) ([]*domain.Submission, error) {
	subs := []*domain.Submission{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return s.submissions.each(txn, func(sub *domain.Submission) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if keep(sub) {
				subs = append(subs, sub)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// UpdateSubmission overwrites the editable fields of a stored draft,
// keeping its lifecycle fields.
func (s *Store) UpdateSubmission(ctx context.Context, sub *domain.Submission) error {
	edit := sub.Clone()
	return s.update(ctx, func(txn *badger.Txn) error {
		current, err := s.submissions.get(txn, edit.ID)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusDraft {
			return store.ErrStaleState
		}
		current.OwnerName = edit.OwnerName
		current.Title = edit.Title
		current.Fields = edit.Fields
		current.Content = edit.Content
		current.ContentHTML = edit.ContentHTML
		current.TagIDs = edit.TagIDs
		current.CategoryIDs = edit.CategoryIDs
		current.UpdatedAt = edit.UpdatedAt
		return s.submissions.replace(txn, current.ID, current)
	})
}

// TransitionSubmission writes sub only if its stored status is still
// from, appending change and upserting article in the same transaction.
func (s *Store) TransitionSubmission(ctx context.Context, sub *domain.Submission, from domain.Status, change *domain.StatusChange, article *domain.Article) error {
	var changeID int64
	if change != nil {
		id, err := s.nextID("hist")
		if err != nil {
			return err
		}
		changeID = id
	}

	var (
		rec       *domain.Submission
		published *articleRecord
	)
	err := s.update(ctx, func(txn *badger.Txn) error {
		current, err := s.submissions.get(txn, sub.ID)
		if err != nil {
			return err
		}
		if current.Status != from {
			return store.ErrStaleState
		}

		rec = sub.Clone()
		if article != nil {
			published, err = s.upsertArticle(txn, article)
			if err != nil {
				return err
			}
			id := published.ID
			rec.ArticleID = &id
		}

		if err := s.submissions.replace(txn, rec.ID, rec); err != nil {
			return err
		}

		if change != nil {
			c := *change
			c.ID = changeID
			c.SubmissionID = rec.ID
			if err := s.history.insert(txn, changeID, &c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if published != nil {
		article.ID = published.ID
		article.DocumentID = published.DocumentID
		article.PublishedAt = published.PublishedAt
	}
	sub.ArticleID = rec.ArticleID
	if change != nil {
		change.ID = changeID
		change.SubmissionID = sub.ID
	}
	return nil
}

// DeleteSubmission removes a submission and its history.
func (s *Store) DeleteSubmission(ctx context.Context, id int64) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if err := s.submissions.remove(txn, id); err != nil {
			return err
		}
		var stale []int64
		err := s.history.each(txn, func(c *domain.StatusChange) (bool, error) {
			if c.SubmissionID == id {
				stale = append(stale, c.ID)
			}
			return true, nil
		})
		if err != nil {
			return err
		}
		for _, cid := range stale {
			if err := s.history.remove(txn, cid); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListStatusChanges returns the history of a submission, oldest first.
func (s *Store) ListStatusChanges(ctx context.Context, submissionID int64) ([]domain.StatusChange, error) {
	changes := []domain.StatusChange{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return s.history.each(txn, func(c *domain.StatusChange) (bool, error) {
			if c.SubmissionID == submissionID {
				changes = append(changes, *c)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}
