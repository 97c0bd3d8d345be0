package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/verbetes/verbete-server/internal/domain"
)

const tagColumns = `id, name, slug, created_at`

func scanTag(scanner interface{ Scan(dest ...any) error }) (domain.Tag, error) {
	var (
		t         domain.Tag
		createdAt string
	)
	if err := scanner.Scan(&t.ID, &t.Name, &t.Slug, &createdAt); err != nil {
		return t, err
	}
	var err error
	t.CreatedAt, err = parseTime(createdAt)
	return t, err
}

const categoryColumns = `id, name, slug, description, created_at`

func scanCategory(scanner interface{ Scan(dest ...any) error }) (domain.Category, error) {
	var (
		c         domain.Category
		createdAt string
	)
	if err := scanner.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &createdAt); err != nil {
		return c, err
	}
	var err error
	c.CreatedAt, err = parseTime(createdAt)
	return c, err
}

// CreateTag inserts a tag and assigns its ID.
// Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tags (name, slug, created_at) VALUES (?, ?, ?) RETURNING id`,
		t.Name, t.Slug, formatTime(t.CreatedAt),
	).Scan(&t.ID)
	return mapErr(err)
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanTag)
}

// TagsByIDs returns the tags that exist among ids, ordered by id.
func (s *Store) TagsByIDs(ctx context.Context, ids []int64) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return []domain.Tag{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id ASC`,
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanTag)
}

// CreateCategory inserts a category and assigns its ID.
// Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, slug, description, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		c.Name, c.Slug, c.Description, formatTime(c.CreatedAt),
	).Scan(&c.ID)
	return mapErr(err)
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanCategory)
}

// CategoriesByIDs returns the categories that exist among ids, ordered by id.
func (s *Store) CategoriesByIDs(ctx context.Context, ids []int64) ([]domain.Category, error) {
	if len(ids) == 0 {
		return []domain.Category{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id ASC`,
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanCategory)
}

// FindOrCreateAuthor returns the byline of userID, creating it on first use.
// An existing byline keeps its name.
func (s *Store) FindOrCreateAuthor(ctx context.Context, userID, name string) (*domain.Author, error) {
	a := domain.Author{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM authors WHERE user_id = ?`, userID).Scan(&a.ID, &a.Name)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO authors (user_id, name) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET user_id = excluded.user_id
		RETURNING id, name`, userID, name).Scan(&a.ID, &a.Name)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func scanAll[T any](rows *sql.Rows, scan func(interface{ Scan(dest ...any) error }) (T, error)) ([]T, error) {
	defer rows.Close()
	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
