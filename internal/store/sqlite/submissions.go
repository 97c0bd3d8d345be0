package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/store"
)

// submissionColumns is the ordered list of columns selected in submission
// queries. Must match the scan order in scanSubmission.
const submissionColumns = `id, document_id, owner_id, owner_name, verbete_type, status, title,
	fields, content, content_html, tag_ids, category_ids, article_id, submitted_at,
	created_at, updated_at`

func scanSubmission(scanner interface{ Scan(dest ...any) error }) (*domain.Submission, error) {
	var (
		sub         domain.Submission
		fields      string
		tagIDs      string
		categoryIDs string
		articleID   sql.NullInt64
		submittedAt sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&sub.ID,
		&sub.DocumentID,
		&sub.OwnerID,
		&sub.OwnerName,
		&sub.VerbeteType,
		&sub.Status,
		&sub.Title,
		&fields,
		&sub.Content,
		&sub.ContentHTML,
		&tagIDs,
		&categoryIDs,
		&articleID,
		&submittedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sub.Fields, err = decodeFields(fields); err != nil {
		return nil, err
	}
	if sub.TagIDs, err = decodeIDs(tagIDs); err != nil {
		return nil, err
	}
	if sub.CategoryIDs, err = decodeIDs(categoryIDs); err != nil {
		return nil, err
	}
	if articleID.Valid {
		id := articleID.Int64
		sub.ArticleID = &id
	}
	if sub.SubmittedAt, err = parseNullableTime(submittedAt); err != nil {
		return nil, err
	}
	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sub.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

// submissionArgs returns the mutable columns in the order used by the
// UPDATE statements below.
func submissionArgs(sub *domain.Submission) ([]any, error) {
	fields, err := encodeJSON(orEmptyMap(sub.Fields))
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	tagIDs, err := encodeJSON(orEmptyIDs(sub.TagIDs))
	if err != nil {
		return nil, fmt.Errorf("encode tag ids: %w", err)
	}
	categoryIDs, err := encodeJSON(orEmptyIDs(sub.CategoryIDs))
	if err != nil {
		return nil, fmt.Errorf("encode category ids: %w", err)
	}
	return []any{
		sub.OwnerName,
		string(sub.VerbeteType),
		string(sub.Status),
		sub.Title,
		fields,
		sub.Content,
		sub.ContentHTML,
		tagIDs,
		categoryIDs,
		nullInt64Ptr(sub.ArticleID),
		nullTimeString(sub.SubmittedAt),
		formatTime(sub.UpdatedAt),
	}, nil
}

const submissionSet = `owner_name = ?, verbete_type = ?, status = ?, title = ?, fields = ?,
	content = ?, content_html = ?, tag_ids = ?, category_ids = ?, article_id = ?,
	submitted_at = ?, updated_at = ?`

// CreateSubmission inserts a submission and assigns its ID.
// Returns store.ErrAlreadyExists on a duplicate document id.
func (s *Store) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	args, err := submissionArgs(sub)
	if err != nil {
		return err
	}
	args = append([]any{sub.DocumentID, sub.OwnerID, formatTime(sub.CreatedAt)}, args...)

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO submissions (document_id, owner_id, created_at,
			owner_name, verbete_type, status, title, fields, content, content_html,
			tag_ids, category_ids, article_id, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`, args...).Scan(&id)
	if err != nil {
		return mapErr(err)
	}
	sub.ID = id
	return nil
}

// GetSubmission retrieves a submission by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetSubmission(ctx context.Context, id int64) (*domain.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return sub, nil
}

// GetSubmissionByDocumentID retrieves a submission by its public document id.
func (s *Store) GetSubmissionByDocumentID(ctx context.Context, documentID string) (*domain.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE document_id = ?`, documentID)
	sub, err := scanSubmission(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return sub, nil
}

// ListSubmissionsByOwner returns an owner's submissions, most recently
// updated first.
func (s *Store) ListSubmissionsByOwner(ctx context.Context, ownerID string) ([]*domain.Submission, error) {
	return s.listSubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE owner_id = ? ORDER BY updated_at DESC, id DESC`,
		ownerID)
}

// ListSubmissionsByStatus returns submissions in a status, oldest
// submission first.
func (s *Store) ListSubmissionsByStatus(ctx context.Context, status domain.Status) ([]*domain.Submission, error) {
	return s.listSubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE status = ? ORDER BY submitted_at ASC, id ASC`,
		string(status))
}

func (s *Store) listSubmissions(ctx context.Context, q string, args ...any) ([]*domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []*domain.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateSubmission overwrites the editable columns of a draft. Lifecycle
// columns are owned by TransitionSubmission and never written here.
// Returns store.ErrNotFound if it does not exist and store.ErrStaleState
// if it is no longer a draft.
func (s *Store) UpdateSubmission(ctx context.Context, sub *domain.Submission) error {
	fields, err := encodeJSON(orEmptyMap(sub.Fields))
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	tagIDs, err := encodeJSON(orEmptyIDs(sub.TagIDs))
	if err != nil {
		return fmt.Errorf("encode tag ids: %w", err)
	}
	categoryIDs, err := encodeJSON(orEmptyIDs(sub.CategoryIDs))
	if err != nil {
		return fmt.Errorf("encode category ids: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions SET owner_name = ?, title = ?, fields = ?, content = ?,
			content_html = ?, tag_ids = ?, category_ids = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		sub.OwnerName,
		sub.Title,
		fields,
		sub.Content,
		sub.ContentHTML,
		tagIDs,
		categoryIDs,
		formatTime(sub.UpdatedAt),
		sub.ID,
		string(domain.StatusDraft),
	)
	if err != nil {
		return mapErr(err)
	}
	return requireCurrent(ctx, s.db, res, "submissions", sub.ID)
}

// TransitionSubmission performs a compare-and-set on status, records the
// change, and upserts the published article when one is given.
func (s *Store) TransitionSubmission(ctx context.Context, sub *domain.Submission, from domain.Status, change *domain.StatusChange, article *domain.Article) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if article != nil {
			if err := s.upsertArticle(ctx, tx, article); err != nil {
				return err
			}
			id := article.ID
			sub.ArticleID = &id
		}

		args, err := submissionArgs(sub)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE submissions SET `+submissionSet+` WHERE id = ? AND status = ?`,
			append(args, sub.ID, string(from))...)
		if err != nil {
			return mapErr(err)
		}
		if err := requireCurrent(ctx, tx, res, "submissions", sub.ID); err != nil {
			return err
		}

		if change != nil {
			change.SubmissionID = sub.ID
			err := tx.QueryRowContext(ctx, `
				INSERT INTO submission_status_history (submission_id, from_status, to_status, actor_id, note, at)
				VALUES (?, ?, ?, ?, ?, ?)
				RETURNING id`,
				change.SubmissionID,
				string(change.From),
				string(change.To),
				change.ActorID,
				change.Note,
				formatTime(change.At),
			).Scan(&change.ID)
			if err != nil {
				return fmt.Errorf("insert status change: %w", err)
			}
		}
		return nil
	})
}

// DeleteSubmission removes a submission and its history.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) DeleteSubmission(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListStatusChanges returns the history of a submission, oldest first.
func (s *Store) ListStatusChanges(ctx context.Context, submissionID int64) ([]domain.StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, submission_id, from_status, to_status, actor_id, note, at
		FROM submission_status_history
		WHERE submission_id = ?
		ORDER BY id ASC`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []domain.StatusChange{}
	for rows.Next() {
		var (
			c  domain.StatusChange
			at string
		)
		if err := rows.Scan(&c.ID, &c.SubmissionID, &c.From, &c.To, &c.ActorID, &c.Note, &at); err != nil {
			return nil, err
		}
		if c.At, err = parseTime(at); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// requireCurrent checks a guarded UPDATE. No affected rows means the
// record is gone (store.ErrNotFound) or its guard no longer holds
// (store.ErrStaleState).
func requireCurrent(ctx context.Context, q queryer, res sql.Result, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists); err != nil {
		return mapErr(err)
	}
	return store.ErrStaleState
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptyIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
