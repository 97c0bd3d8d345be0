package domain

import (
	"maps"
	"slices"
	"time"
)

// Submission is a user-authored draft of an encyclopedia entry moving
// through the review lifecycle. OwnerID never changes after creation.
type Submission struct {
	ID          int64             `json:"id"`
	DocumentID  string            `json:"document_id"`
	OwnerID     string            `json:"owner_id"`
	OwnerName   string            `json:"owner_name,omitempty"`
	VerbeteType VerbeteType       `json:"verbete_type"`
	Status      Status            `json:"status"`
	Title       string            `json:"title"`
	Fields      map[string]string `json:"fields"`
	Content     string            `json:"content"`
	ContentHTML string            `json:"content_html"` // always normalize.HTML(Content)
	TagIDs      []int64           `json:"tag_ids"`
	CategoryIDs []int64           `json:"category_ids"`
	ArticleID   *int64            `json:"article_id,omitempty"`
	SubmittedAt *time.Time        `json:"submitted_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// IsOwnedBy reports whether userID created the submission.
func (s *Submission) IsOwnedBy(userID string) bool {
	return userID != "" && s.OwnerID == userID
}

// Touch updates UpdatedAt.
func (s *Submission) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy. Repositories hand out clones so callers
// never alias stored state.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	c.Fields = maps.Clone(s.Fields)
	c.TagIDs = slices.Clone(s.TagIDs)
	c.CategoryIDs = slices.Clone(s.CategoryIDs)
	if s.ArticleID != nil {
		id := *s.ArticleID
		c.ArticleID = &id
	}
	if s.SubmittedAt != nil {
		at := *s.SubmittedAt
		c.SubmittedAt = &at
	}
	return &c
}

// StatusChange is one row of a submission's audit trail.
type StatusChange struct {
	ID           int64     `json:"id"`
	SubmissionID int64     `json:"submission_id"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	ActorID      string    `json:"actor_id"`
	Note         string    `json:"note,omitempty"`
	At           time.Time `json:"at"`
}
