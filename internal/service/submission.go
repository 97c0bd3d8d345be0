package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/verbetes/verbete-server/internal/domain"
	domainerrors "github.com/verbetes/verbete-server/internal/errors"
	"github.com/verbetes/verbete-server/internal/id"
	"github.com/verbetes/verbete-server/internal/metrics"
	"github.com/verbetes/verbete-server/internal/normalize"
	"github.com/verbetes/verbete-server/internal/slug"
	"github.com/verbetes/verbete-server/internal/store"
	"github.com/verbetes/verbete-server/internal/validation"
)

// SubmissionStore is what the workflow needs from persistence.
type SubmissionStore interface {
	store.SubmissionRepository
	store.TaxonomyRepository
	ArticleSlugTaken(ctx context.Context, slug string, submissionID int64) (bool, error)
}

// ArticleIndexer receives freshly published articles.
type ArticleIndexer interface {
	IndexArticle(ctx context.Context, a *domain.Article) error
}

// CreateDraftInput is the body of a new submission.
type CreateDraftInput struct {
	Title       string            `json:"title" validate:"max=300"`
	Fields      map[string]string `json:"fields,omitempty"`
	Content     string            `json:"content" validate:"max=500000"`
	TagIDs      []int64           `json:"tag_ids,omitempty"`
	CategoryIDs []int64           `json:"category_ids,omitempty"`
}

// UpdateInput patches a draft. Nil members are left unchanged. A field set
// to "" is cleared; an empty (non-nil) id list clears the relation.
type UpdateInput struct {
	Title       *string           `json:"title,omitempty" validate:"omitempty,max=300"`
	Fields      map[string]string `json:"fields,omitempty"`
	Content     *string           `json:"content,omitempty" validate:"omitempty,max=500000"`
	TagIDs      []int64           `json:"tag_ids,omitempty"`
	CategoryIDs []int64           `json:"category_ids,omitempty"`
}

// ReviewInput is a reviewer's decision.
type ReviewInput struct {
	Decision domain.ReviewDecision `json:"decision"`
	Note     string                `json:"note,omitempty" validate:"max=2000"`
}

// SubmissionService drives submissions through the editorial lifecycle.
type SubmissionService struct {
	store     SubmissionStore
	indexer   ArticleIndexer
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewSubmissionService creates a submission service. indexer may be nil
// when search is disabled.
func NewSubmissionService(st SubmissionStore, indexer ArticleIndexer, v *validation.Validator, logger *slog.Logger) *SubmissionService {
	if v == nil {
		v = validation.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{
		store:     st,
		indexer:   indexer,
		validator: v,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// VerbeteTypes lists the supported types with their field descriptors.
func (s *SubmissionService) VerbeteTypes() []domain.TypeSpec {
	return domain.VerbeteTypes()
}

// CreateDraft stores a new draft owned by owner.
func (s *SubmissionService) CreateDraft(ctx context.Context, owner domain.Principal, verbeteType string, in CreateDraftInput) (*domain.Submission, error) {
	if err := requireUser(owner); err != nil {
		return nil, err
	}

	t, ok := domain.ParseVerbeteType(verbeteType)
	if !ok {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"verbete_type": "must be a known verbete type",
		})
	}

	if err := validation.MergeDetails(
		s.validator.Validate(in),
		s.validator.Fields(t, in.Fields, validation.Partial),
	); err != nil {
		return nil, err
	}

	tagIDs := uniqueIDs(in.TagIDs)
	categoryIDs := uniqueIDs(in.CategoryIDs)
	if err := checkTaxonomy(ctx, s.store, tagIDs, categoryIDs); err != nil {
		return nil, storeError(s.logger, err, "taxonomy")
	}

	docID, err := id.Document()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "Internal server error")
	}

	now := s.now()
	sub := &domain.Submission{
		DocumentID:  docID,
		OwnerID:     owner.UserID,
		OwnerName:   owner.Name,
		VerbeteType: t,
		Status:      domain.StatusDraft,
		Title:       strings.TrimSpace(in.Title),
		Fields:      cleanFields(in.Fields),
		Content:     in.Content,
		ContentHTML: normalize.HTML(in.Content),
		TagIDs:      orEmpty(tagIDs),
		CategoryIDs: orEmpty(categoryIDs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		return nil, storeError(s.logger, err, "submission")
	}

	s.logger.Info("submission created",
		"submission_id", sub.ID,
		"document_id", sub.DocumentID,
		"owner_id", sub.OwnerID,
		"verbete_type", sub.VerbeteType,
	)
	return sub, nil
}

// Update applies a patch to a draft. Only the owner may edit, and only
// while the submission is a draft.
func (s *SubmissionService) Update(ctx context.Context, submissionID int64, actor domain.Principal, in UpdateInput) (*domain.Submission, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	sub, err := s.get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsOwnedBy(actor.UserID) {
		return nil, domainerrors.Forbidden("only the owner can edit this submission")
	}
	if !sub.Status.Editable() {
		return nil, domainerrors.Forbidden(fmt.Sprintf("submission is %s and can no longer be edited", sub.Status))
	}

	if err := validation.MergeDetails(
		s.validator.Validate(in),
		s.validator.Patch(sub.VerbeteType, in.Fields),
	); err != nil {
		return nil, err
	}

	tagIDs := uniqueIDs(in.TagIDs)
	categoryIDs := uniqueIDs(in.CategoryIDs)
	if err := checkTaxonomy(ctx, s.store, tagIDs, categoryIDs); err != nil {
		return nil, storeError(s.logger, err, "taxonomy")
	}

	if in.Title != nil {
		sub.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		sub.Content = *in.Content
	}
	if len(in.Fields) > 0 {
		fields := maps.Clone(sub.Fields)
		if fields == nil {
			fields = make(map[string]string, len(in.Fields))
		}
		for k, v := range in.Fields {
			if v = strings.TrimSpace(v); v == "" {
				delete(fields, k)
			} else {
				fields[k] = v
			}
		}
		sub.Fields = fields
	}
	if tagIDs != nil {
		sub.TagIDs = tagIDs
	}
	if categoryIDs != nil {
		sub.CategoryIDs = categoryIDs
	}

	sub.ContentHTML = normalize.HTML(sub.Content)
	sub.UpdatedAt = s.now()

	if err := s.store.UpdateSubmission(ctx, sub); err != nil {
		return nil, storeError(s.logger, err, "submission")
	}
	return sub, nil
}

// Submit sends a complete draft to the review queue. A draft that fails
// the completeness check for its type stays a draft.
func (s *SubmissionService) Submit(ctx context.Context, submissionID int64, actor domain.Principal) (*domain.Submission, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	sub, err := s.get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsOwnedBy(actor.UserID) {
		return nil, domainerrors.Forbidden("only the owner can submit this submission")
	}
	if sub.Status != domain.StatusDraft {
		return nil, domainerrors.Conflictf("only drafts can be submitted; submission is %s", sub.Status)
	}

	if err := s.checkComplete(sub); err != nil {
		return nil, err
	}

	now := s.now()
	sub.ContentHTML = normalize.HTML(sub.Content)
	sub.SubmittedAt = &now

	if err := s.transition(ctx, sub, domain.StatusSubmitted, actor.UserID, "", nil); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) checkComplete(sub *domain.Submission) error {
	base := make(map[string]string)
	if sub.Title == "" {
		base["title"] = "is required"
	}
	if strings.TrimSpace(normalize.Text(normalize.HTML(sub.Content))) == "" {
		base["content"] = "is required"
	}

	var baseErr error
	if len(base) > 0 {
		baseErr = domainerrors.ValidationWithDetails("validation failed", base)
	}
	return validation.MergeDetails(baseErr, s.validator.Fields(sub.VerbeteType, sub.Fields, validation.Complete))
}

// Withdraw returns a submitted entry to draft so its owner can edit it again.
func (s *SubmissionService) Withdraw(ctx context.Context, submissionID int64, actor domain.Principal) (*domain.Submission, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	sub, err := s.get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsOwnedBy(actor.UserID) {
		return nil, domainerrors.Forbidden("only the owner can withdraw this submission")
	}
	if !sub.Status.CanTransition(domain.StatusDraft, domain.ActorOwner) {
		return nil, domainerrors.Conflictf("only submitted entries can be withdrawn; submission is %s", sub.Status)
	}

	sub.SubmittedAt = nil
	if err := s.transition(ctx, sub, domain.StatusDraft, actor.UserID, "withdrawn by owner", nil); err != nil {
		return nil, err
	}
	return sub, nil
}

// Review applies a reviewer decision. Publishing materialises the article
// in the same store transaction as the status change.
func (s *SubmissionService) Review(ctx context.Context, submissionID int64, reviewer domain.Principal, in ReviewInput) (*domain.Submission, error) {
	if err := requireUser(reviewer); err != nil {
		return nil, err
	}
	if !reviewer.IsReviewer() {
		return nil, domainerrors.Forbidden("reviewer role required")
	}

	target, ok := in.Decision.Target()
	if !ok {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"decision": "must be one of: start_review, publish, reject, request_changes",
		})
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	sub, err := s.get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.Status.CanTransition(target, domain.ActorReviewer) {
		return nil, domainerrors.Conflictf("cannot %s a submission that is %s", strings.ReplaceAll(string(in.Decision), "_", " "), sub.Status)
	}

	var article *domain.Article
	if target == domain.StatusPublished {
		// Published content must satisfy the same rules as submission.
		if err := s.checkComplete(sub); err != nil {
			return nil, err
		}
		if article, err = s.materialise(ctx, sub); err != nil {
			return nil, err
		}
	}
	if target == domain.StatusDraft {
		sub.SubmittedAt = nil
	}

	if err := s.transition(ctx, sub, target, reviewer.UserID, strings.TrimSpace(in.Note), article); err != nil {
		return nil, err
	}

	if article != nil && s.indexer != nil {
		if err := s.indexer.IndexArticle(ctx, article); err != nil {
			// The article is published either way; a rebuild picks it up.
			s.logger.Warn("failed to index published article", "article_id", article.ID, "error", err)
		}
	}
	return sub, nil
}

// materialise builds the article a published submission becomes.
func (s *SubmissionService) materialise(ctx context.Context, sub *domain.Submission) (*domain.Article, error) {
	name := sub.OwnerName
	if name == "" {
		name = sub.OwnerID
	}
	author, err := s.store.FindOrCreateAuthor(ctx, sub.OwnerID, name)
	if err != nil {
		return nil, storeError(s.logger, err, "author")
	}

	tags, err := s.store.TagsByIDs(ctx, sub.TagIDs)
	if err != nil {
		return nil, storeError(s.logger, err, "tags")
	}
	cats, err := s.store.CategoriesByIDs(ctx, sub.CategoryIDs)
	if err != nil {
		return nil, storeError(s.logger, err, "categories")
	}

	docID, err := id.Document()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "Internal server error")
	}

	articleSlug, err := s.uniqueSlug(ctx, sub, docID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &domain.Article{
		DocumentID:   docID,
		SubmissionID: sub.ID,
		VerbeteType:  sub.VerbeteType,
		Title:        sub.Title,
		Slug:         articleSlug,
		ContentHTML:  normalize.HTML(sub.Content),
		Fields:       maps.Clone(sub.Fields),
		Tags:         tags,
		Categories:   cats,
		Authors:      []domain.Author{*author},
		PublishedAt:  now,
		UpdatedAt:    now,
	}, nil
}

func (s *SubmissionService) uniqueSlug(ctx context.Context, sub *domain.Submission, docID string) (string, error) {
	candidate := slug.Make(sub.Title)
	if candidate == "" {
		return docID, nil
	}
	taken, err := s.store.ArticleSlugTaken(ctx, candidate, sub.ID)
	if err != nil {
		return "", storeError(s.logger, err, "article")
	}
	if !taken {
		return candidate, nil
	}
	return slug.WithSuffix(sub.Title, docID[:8]), nil
}

// transition moves sub to status to, recording who did it.
func (s *SubmissionService) transition(ctx context.Context, sub *domain.Submission, to domain.Status, actorID, note string, article *domain.Article) error {
	from := sub.Status
	now := s.now()

	sub.Status = to
	sub.UpdatedAt = now
	change := &domain.StatusChange{
		SubmissionID: sub.ID,
		From:         from,
		To:           to,
		ActorID:      actorID,
		Note:         note,
		At:           now,
	}

	if err := s.store.TransitionSubmission(ctx, sub, from, change, article); err != nil {
		sub.Status = from
		return storeError(s.logger, err, "submission")
	}

	metrics.ObserveTransition(string(from), string(to))
	s.logger.Info("submission status changed",
		"submission_id", sub.ID,
		"from", from,
		"to", to,
		"actor_id", actorID,
	)
	return nil
}

// FindOne returns a submission by id.
func (s *SubmissionService) FindOne(ctx context.Context, submissionID int64) (*domain.Submission, error) {
	return s.get(ctx, submissionID)
}

// FindVisible returns a submission if viewer may read it.
func (s *SubmissionService) FindVisible(ctx context.Context, submissionID int64, viewer domain.Principal) (*domain.Submission, error) {
	if err := requireUser(viewer); err != nil {
		return nil, err
	}
	sub, err := s.get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanView(sub) {
		return nil, domainerrors.Forbidden("not allowed to view this submission")
	}
	return sub, nil
}

// FindByUser lists a user's submissions, most recently updated first.
func (s *SubmissionService) FindByUser(ctx context.Context, userID string) ([]*domain.Submission, error) {
	subs, err := s.store.ListSubmissionsByOwner(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, err, "submissions")
	}
	return subs, nil
}

// ReviewQueue lists submissions waiting in status, oldest first.
func (s *SubmissionService) ReviewQueue(ctx context.Context, reviewer domain.Principal, status domain.Status) ([]*domain.Submission, error) {
	if !reviewer.IsReviewer() {
		return nil, domainerrors.Forbidden("reviewer role required")
	}
	if status == "" {
		status = domain.StatusSubmitted
	}
	if !status.Valid() {
		return nil, domainerrors.Validationf("unknown status %q", status)
	}
	subs, err := s.store.ListSubmissionsByStatus(ctx, status)
	if err != nil {
		return nil, storeError(s.logger, err, "submissions")
	}
	return subs, nil
}

// History returns the status changes of a submission, oldest first.
func (s *SubmissionService) History(ctx context.Context, submissionID int64) ([]domain.StatusChange, error) {
	if _, err := s.get(ctx, submissionID); err != nil {
		return nil, err
	}
	changes, err := s.store.ListStatusChanges(ctx, submissionID)
	if err != nil {
		return nil, storeError(s.logger, err, "submission history")
	}
	return changes, nil
}

// Delete removes a draft or rejected submission. Owner only.
func (s *SubmissionService) Delete(ctx context.Context, submissionID int64, actor domain.Principal) error {
	if err := requireUser(actor); err != nil {
		return err
	}

	sub, err := s.get(ctx, submissionID)
	if err != nil {
		return err
	}
	if !sub.IsOwnedBy(actor.UserID) {
		return domainerrors.Forbidden("only the owner can delete this submission")
	}
	if !sub.Status.Deletable() {
		return domainerrors.Forbidden(fmt.Sprintf("submission is %s and cannot be deleted", sub.Status))
	}

	if err := s.store.DeleteSubmission(ctx, submissionID); err != nil {
		return storeError(s.logger, err, "submission")
	}

	s.logger.Info("submission deleted", "submission_id", submissionID, "owner_id", actor.UserID)
	return nil
}

func (s *SubmissionService) get(ctx context.Context, submissionID int64) (*domain.Submission, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, storeError(s.logger, err, "submission")
	}
	return sub, nil
}

func orEmpty(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
