package kv

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/store"
)

// CreateTag inserts a tag and assigns its ID.
// Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	id, err := s.nextID("tag")
	if err != nil {
		return err
	}
	rec := *t
	rec.ID = id
	if err := s.update(ctx, func(txn *badger.Txn) error {
		return s.tags.insert(txn, id, &rec)
	}); err != nil {
		return err
	}
	t.ID = id
	return nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := all(ctx, s, s.tags)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(tags, func(x, y domain.Tag) int {
		return cmp.Or(cmp.Compare(x.Name, y.Name), cmp.Compare(x.ID, y.ID))
	})
	return tags, nil
}

// TagsByIDs returns the tags that exist among ids, ordered by id.
func (s *Store) TagsByIDs(ctx context.Context, ids []int64) ([]domain.Tag, error) {
	return byIDs(ctx, s, s.tags, ids)
}

// CreateCategory inserts a category and assigns its ID.
// Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	id, err := s.nextID("cat")
	if err != nil {
		return err
	}
	rec := *c
	rec.ID = id
	if err := s.update(ctx, func(txn *badger.Txn) error {
		return s.categories.insert(txn, id, &rec)
	}); err != nil {
		return err
	}
	c.ID = id
	return nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cats, err := all(ctx, s, s.categories)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(cats, func(x, y domain.Category) int {
		return cmp.Or(cmp.Compare(x.Name, y.Name), cmp.Compare(x.ID, y.ID))
	})
	return cats, nil
}

// CategoriesByIDs returns the categories that exist among ids, ordered by id.
func (s *Store) CategoriesByIDs(ctx context.Context, ids []int64) ([]domain.Category, error) {
	return byIDs(ctx, s, s.categories, ids)
}

// FindOrCreateAuthor returns the byline of userID, creating it on first use.
func (s *Store) FindOrCreateAuthor(ctx context.Context, userID, name string) (*domain.Author, error) {
	var author *domain.Author
	err := s.update(ctx, func(txn *badger.Txn) error {
		existing, err := s.authors.lookup(txn, "user", userID)
		if err == nil {
			author = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		id, err := s.nextID("author")
		if err != nil {
			return err
		}
		author = &domain.Author{ID: id, Name: name, UserID: userID}
		return s.authors.insert(txn, id, author)
	})
	if err != nil {
		return nil, err
	}
	return author, nil
}

func all[T any](ctx context.Context, s *Store, e *entity[T]) ([]T, error) {
	items := []T{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return e.each(txn, func(v *T) (bool, error) {
			items = append(items, *v)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func byIDs[T any](ctx context.Context, s *Store, e *entity[T], ids []int64) ([]T, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	items := []T{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		for _, id := range sorted {
			v, err := e.get(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			items = append(items, *v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
