package sqlite

import (
	"context"
	"fmt"

	"github.com/verbetes/verbete-server/internal/store"
)

// ListContent returns every stored HTML body: submissions first, then
// articles, each in id order.
func (s *Store) ListContent(ctx context.Context) ([]store.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT 'submission', id, content, content_html FROM submissions
		UNION ALL
		SELECT 'article', id, content_html, content_html FROM articles
		ORDER BY 1 DESC, 2 ASC`)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	items := []store.ContentItem{}
	for rows.Next() {
		var it store.ContentItem
		if err := rows.Scan(&it.Kind, &it.ID, &it.Source, &it.HTML); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetContentHTML rewrites one stored body without touching timestamps,
// provided its source still equals source.
func (s *Store) SetContentHTML(ctx context.Context, kind store.ContentKind, id int64, source, html string) error {
	var table, sourceColumn string
	switch kind {
	case store.ContentSubmission:
		table, sourceColumn = "submissions", "content"
	case store.ContentArticle:
		table, sourceColumn = "articles", "content_html"
	default:
		return store.ErrInvalidInput.WithCause(fmt.Errorf("unknown content kind %q", kind))
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE `+table+` SET content_html = ? WHERE id = ? AND `+sourceColumn+` = ?`,
		html, id, source)
	if err != nil {
		return err
	}
	return requireCurrent(ctx, s.db, res, table, id)
}
