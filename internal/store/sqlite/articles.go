package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/query"
)

// articleColumns is the ordered list of columns selected in article
// queries. Must match the scan order in scanArticle.
const articleColumns = `a.id, a.document_id, a.submission_id, a.verbete_type, a.title, a.slug,
	a.content_html, a.fields, a.published_at, a.updated_at`

func scanArticle(scanner interface{ Scan(dest ...any) error }) (*domain.Article, error) {
	var (
		a           domain.Article
		fields      string
		publishedAt string
		updatedAt   string
	)
	err := scanner.Scan(
		&a.ID,
		&a.DocumentID,
		&a.SubmissionID,
		&a.VerbeteType,
		&a.Title,
		&a.Slug,
		&a.ContentHTML,
		&fields,
		&publishedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.Fields, err = decodeFields(fields); err != nil {
		return nil, err
	}
	if a.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// articleWhere translates a filter into a WHERE clause over alias a.
func articleWhere(f query.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.VerbeteType != "" {
		conds = append(conds, "a.verbete_type = ?")
		args = append(args, string(f.VerbeteType))
	}
	if f.TitleContains != "" {
		conds = append(conds, `a.title_fold LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.TitleContains))+"%")
	}
	if f.CategoryID != nil {
		conds = append(conds, `EXISTS (SELECT 1 FROM article_categories ac
			WHERE ac.article_id = a.id AND ac.category_id = ?)`)
		args = append(args, *f.CategoryID)
	}
	if len(f.TagIDs) > 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM article_tags at
			WHERE at.article_id = a.id AND at.tag_id IN (`+placeholders(len(f.TagIDs))+`))`)
		args = append(args, int64Args(f.TagIDs)...)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListArticles returns a page of matching articles, newest first, and the
// total match count.
func (s *Store) ListArticles(ctx context.Context, f query.Filter, p query.Page, shape query.Shape) ([]*domain.Article, int, error) {
	where, args := articleWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles a`+where+
			` ORDER BY a.published_at DESC, a.id DESC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := []*domain.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.loadRelations(ctx, s.db, articles, shape); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// GetArticle retrieves an article by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetArticle(ctx context.Context, id int64, shape query.Shape) (*domain.Article, error) {
	return s.getArticle(ctx, `a.id = ?`, id, shape)
}

// GetArticleByDocumentID retrieves an article by its public document id.
func (s *Store) GetArticleByDocumentID(ctx context.Context, documentID string, shape query.Shape) (*domain.Article, error) {
	return s.getArticle(ctx, `a.document_id = ?`, documentID, shape)
}

func (s *Store) getArticle(ctx context.Context, cond string, arg any, shape query.Shape) (*domain.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles a WHERE `+cond, arg)
	a, err := scanArticle(row)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.loadRelations(ctx, s.db, []*domain.Article{a}, shape); err != nil {
		return nil, err
	}
	return a, nil
}

// GetArticlesByIDs returns the existing articles among ids in the given order.
func (s *Store) GetArticlesByIDs(ctx context.Context, ids []int64, shape query.Shape) ([]*domain.Article, error) {
	if len(ids) == 0 {
		return []*domain.Article{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.id IN (`+placeholders(len(ids))+`)`,
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]*domain.Article, len(ids))
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	articles := make([]*domain.Article, 0, len(byID))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			articles = append(articles, a)
			delete(byID, id)
		}
	}
	if err := s.loadRelations(ctx, s.db, articles, shape); err != nil {
		return nil, err
	}
	return articles, nil
}

// ArticleSlugTaken reports whether slug is used by another submission's article.
func (s *Store) ArticleSlugTaken(ctx context.Context, slug string, submissionID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE slug = ? AND submission_id != ?`,
		slug, submissionID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// upsertArticle writes an article keyed by submission and replaces its
// relations. It fills in the article's ID, and keeps the original
// document id and publication time on republish.
func (s *Store) upsertArticle(ctx context.Context, q queryer, a *domain.Article) error {
	fields, err := encodeJSON(orEmptyMap(a.Fields))
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	var publishedAt string
	err = q.QueryRowContext(ctx, `
		INSERT INTO articles (document_id, submission_id, verbete_type, title, title_fold, slug,
			content_html, fields, published_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(submission_id) DO UPDATE SET
			verbete_type = excluded.verbete_type,
			title = excluded.title,
			title_fold = excluded.title_fold,
			slug = excluded.slug,
			content_html = excluded.content_html,
			fields = excluded.fields,
			updated_at = excluded.updated_at
		RETURNING id, document_id, published_at`,
		a.DocumentID,
		a.SubmissionID,
		string(a.VerbeteType),
		a.Title,
		strings.ToLower(a.Title),
		a.Slug,
		a.ContentHTML,
		fields,
		formatTime(a.PublishedAt),
		formatTime(a.UpdatedAt),
	).Scan(&a.ID, &a.DocumentID, &publishedAt)
	if err != nil {
		return mapErr(err)
	}
	if a.PublishedAt, err = parseTime(publishedAt); err != nil {
		return err
	}

	for _, stmt := range []string{
		`DELETE FROM article_tags WHERE article_id = ?`,
		`DELETE FROM article_categories WHERE article_id = ?`,
		`DELETE FROM article_authors WHERE article_id = ?`,
	} {
		if _, err := q.ExecContext(ctx, stmt, a.ID); err != nil {
			return fmt.Errorf("clear article relations: %w", err)
		}
	}
	for _, t := range a.Tags {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO article_tags (article_id, tag_id) VALUES (?, ?)`, a.ID, t.ID); err != nil {
			return fmt.Errorf("link tag %d: %w", t.ID, err)
		}
	}
	for _, c := range a.Categories {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO article_categories (article_id, category_id) VALUES (?, ?)`, a.ID, c.ID); err != nil {
			return fmt.Errorf("link category %d: %w", c.ID, err)
		}
	}
	for i, au := range a.Authors {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO article_authors (article_id, author_id, position) VALUES (?, ?, ?)`, a.ID, au.ID, i); err != nil {
			return fmt.Errorf("link author %d: %w", au.ID, err)
		}
	}
	return nil
}

// loadRelations fills the relations selected by shape, one query per
// relation for the whole batch.
func (s *Store) loadRelations(ctx context.Context, q queryer, articles []*domain.Article, shape query.Shape) error {
	if len(articles) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Article, len(articles))
	ids := make([]int64, len(articles))
	for i, a := range articles {
		byID[a.ID] = a
		ids[i] = a.ID
	}
	in := placeholders(len(ids))
	args := int64Args(ids)

	if shape.Has(query.WithTags) {
		for _, a := range articles {
			a.Tags = []domain.Tag{}
		}
		rows, err := q.QueryContext(ctx, `
			SELECT at.article_id, t.id, t.name, t.slug, t.created_at
			FROM article_tags at JOIN tags t ON t.id = at.tag_id
			WHERE at.article_id IN (`+in+`)
			ORDER BY t.name ASC, t.id ASC`, args...)
		if err != nil {
			return fmt.Errorf("load tags: %w", err)
		}
		err = eachRow(rows, func() error {
			var (
				articleID int64
				t         domain.Tag
				createdAt string
			)
			if err := rows.Scan(&articleID, &t.ID, &t.Name, &t.Slug, &createdAt); err != nil {
				return err
			}
			var err error
			if t.CreatedAt, err = parseTime(createdAt); err != nil {
				return err
			}
			byID[articleID].Tags = append(byID[articleID].Tags, t)
			return nil
		})
		if err != nil {
			return err
		}
	}

	if shape.Has(query.WithCategories) {
		for _, a := range articles {
			a.Categories = []domain.Category{}
		}
		rows, err := q.QueryContext(ctx, `
			SELECT ac.article_id, c.id, c.name, c.slug, c.description, c.created_at
			FROM article_categories ac JOIN categories c ON c.id = ac.category_id
			WHERE ac.article_id IN (`+in+`)
			ORDER BY c.name ASC, c.id ASC`, args...)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		err = eachRow(rows, func() error {
			var (
				articleID int64
				c         domain.Category
				createdAt string
			)
			if err := rows.Scan(&articleID, &c.ID, &c.Name, &c.Slug, &c.Description, &createdAt); err != nil {
				return err
			}
			var err error
			if c.CreatedAt, err = parseTime(createdAt); err != nil {
				return err
			}
			byID[articleID].Categories = append(byID[articleID].Categories, c)
			return nil
		})
		if err != nil {
			return err
		}
	}

	if shape.Has(query.WithAuthors) {
		for _, a := range articles {
			a.Authors = []domain.Author{}
		}
		rows, err := q.QueryContext(ctx, `
			SELECT aa.article_id, au.id, au.name, au.user_id
			FROM article_authors aa JOIN authors au ON au.id = aa.author_id
			WHERE aa.article_id IN (`+in+`)
			ORDER BY aa.position ASC`, args...)
		if err != nil {
			return fmt.Errorf("load authors: %w", err)
		}
		err = eachRow(rows, func() error {
			var (
				articleID int64
				au        domain.Author
			)
			if err := rows.Scan(&articleID, &au.ID, &au.Name, &au.UserID); err != nil {
				return err
			}
			byID[articleID].Authors = append(byID[articleID].Authors, au)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func eachRow(rows interface {
	Next() bool
	Err() error
	Close() error
}, fn func() error) error {
	defer rows.Close()
	for rows.Next() {
		if err := fn(); err != nil {
			return err
		}
	}
	return rows.Err()
}
