package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/verbetes/verbete-server/internal/domain"
	domainerrors "github.com/verbetes/verbete-server/internal/errors"
	"github.com/verbetes/verbete-server/internal/service"
)

func (s *Server) registerSubmissionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listVerbeteTypes",
		Method:      http.MethodGet,
		Path:        "/submissions/verbete-types",
		Summary:     "List verbete types",
		Description: "Returns the fixed set of entry types with their field descriptors",
		Tags:        []string{"Submissions"},
	}, s.handleListVerbeteTypes)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createSubmission",
		Method:        http.MethodPost,
		Path:          "/submissions",
		Summary:       "Create draft",
		Description:   "Creates a draft submission owned by the caller. Fields are checked for format only.",
		Tags:          []string{"Submissions"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateSubmission)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReviewQueue",
		Method:      http.MethodGet,
		Path:        "/submissions/review-queue",
		Summary:     "Review queue",
		Description: "Lists submissions in a status, oldest first. Reviewers only; defaults to submitted.",
		Tags:        []string{"Submissions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReviewQueue)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserSubmissions",
		Method:      http.MethodGet,
		Path:        "/submissions/user/{userId}",
		Summary:     "List user submissions",
		Description: "A user's submissions, most recently updated first. The user themselves or a reviewer.",
		Tags:        []string{"Submissions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUserSubmissions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSubmission",
		Method:      http.MethodGet,
		Path:        "/submissions/{id}",
		Summary:     "Get submission",
		Description: "Returns a submission to its owner or a reviewer",
		Tags:        []string{"Submissions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSubmission)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSubmission",
		Method:      http.MethodPut,
		Path:        "/submissions/{id}",
		Summary:     "Update draft",
		Description: "Patches a draft. Owner only. Omitted properties are left unchanged.",
		Tags:        []string{"Submissions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateSubmission)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSubmission",
		Method:      http.MethodDelete,
		Path:        "/submissions/{id}",
		Summary:     "Delete submission",
		Description: "Deletes a draft or rejected submission. Owner only.",
		Tags:        []string{"Submissions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteSubmission)

	huma.Register(s.api, huma.Operation{
		OperationID: "submitSubmission",
		Method:      http.MethodPost,
		Path:        "/submissions/{id}/submit",
		Summary:     "Submit for review",
		Description: "Moves a complete draft to submitted. Incomplete drafts stay drafts and the response lists the missing fields.",
		Tags:        []string{"Submissions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSubmitSubmission)

	huma.Register(s.api, huma.Operation{
		OperationID: "withdrawSubmission",
		Method:      http.MethodPost,
		Path:        "/submissions/{id}/withdraw",
		Summary:     "Withdraw submission",
		Description: "Returns a submitted entry to draft. Owner only.",
		Tags:        []string{"Submissions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleWithdrawSubmission)

	huma.Register(s.api, huma.Operation{
		OperationID: "reviewSubmission",
		Method:      http.MethodPost,
		Path:        "/submissions/{id}/review",
		Summary:     "Review submission",
		Description: "Applies a reviewer decision: start_review, publish, reject or request_changes",
		Tags:        []string{"Submissions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReviewSubmission)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSubmissionHistory",
		Method:      http.MethodGet,
		Path:        "/submissions/{id}/history",
		Summary:     "Submission history",
		Description: "Status changes of a submission, oldest first",
		Tags:        []string{"Submissions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSubmissionHistory)
}

// === DTOs ===

// CreateSubmissionRequest is the request body for creating a draft. The
// type may be sent as verbeteType or verbete_type.
type CreateSubmissionRequest struct {
	VerbeteType      string            `json:"verbeteType,omitempty" doc:"Entry type: person, work, event, institution, company, group or concept"`
	VerbeteTypeSnake string            `json:"verbete_type,omitempty" doc:"Same as verbeteType"`
	Title            string            `json:"title,omitempty" doc:"Entry title"`
	Fields           map[string]string `json:"fields,omitempty" doc:"Type-specific metadata such as birth_date"`
	Content          string            `json:"content,omitempty" doc:"Body as plain text or HTML"`
	TagIDs           []int64           `json:"tag_ids,omitempty" doc:"Tag ids"`
	CategoryIDs      []int64           `json:"category_ids,omitempty" doc:"Category ids"`
}

// verbeteType returns whichever spelling of the type was sent.
func (r CreateSubmissionRequest) verbeteType() (string, error) {
	switch {
	case r.VerbeteType == "" && r.VerbeteTypeSnake == "":
		return "", domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"verbeteType": "is required",
		})
	case r.VerbeteType != "" && r.VerbeteTypeSnake != "" && r.VerbeteType != r.VerbeteTypeSnake:
		return "", domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"verbeteType": "conflicts with verbete_type",
		})
	case r.VerbeteType != "":
		return r.VerbeteType, nil
	}
	return r.VerbeteTypeSnake, nil
}

// CreateSubmissionInput wraps the create request for Huma.
type CreateSubmissionInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateSubmissionRequest
}

// UpdateSubmissionRequest patches a draft. A property left out is unchanged;
// an empty tag_ids or category_ids list clears it.
type UpdateSubmissionRequest struct {
	Title       *string           `json:"title,omitempty" doc:"New title"`
	Fields      map[string]string `json:"fields,omitempty" doc:"Fields to set; an empty value clears an optional field"`
	Content     *string           `json:"content,omitempty" doc:"New body"`
	TagIDs      []int64           `json:"tag_ids,omitempty" doc:"Replacement tag ids"`
	CategoryIDs []int64           `json:"category_ids,omitempty" doc:"Replacement category ids"`
}

// UpdateSubmissionInput wraps the update request for Huma.
type UpdateSubmissionInput struct {
	Authorization string `header:"Authorization"`
	ID            int64  `path:"id" doc:"Submission ID"`
	Body          UpdateSubmissionRequest
}

// ReviewSubmissionRequest is a reviewer decision.
type ReviewSubmissionRequest struct {
	Decision string `json:"decision" enum:"start_review,publish,reject,request_changes" doc:"Reviewer decision"`
	Note     string `json:"note,omitempty" doc:"Note recorded in the history"`
}

// ReviewSubmissionInput wraps the review request for Huma.
type ReviewSubmissionInput struct {
	Authorization string `header:"Authorization"`
	ID            int64  `path:"id" doc:"Submission ID"`
	Body          ReviewSubmissionRequest
}

// SubmissionIDInput identifies one submission.
type SubmissionIDInput struct {
	Authorization string `header:"Authorization"`
	ID            int64  `path:"id" doc:"Submission ID"`
}

// UserSubmissionsInput identifies a user's submissions.
type UserSubmissionsInput struct {
	Authorization string `header:"Authorization"`
	UserID        string `path:"userId" doc:"Owner user ID"`
}

// ReviewQueueInput selects a review queue.
type ReviewQueueInput struct {
	Authorization string `header:"Authorization"`
	Status        string `query:"status" enum:"draft,submitted,under-review,published,rejected" doc:"Status to list, default submitted"`
}

// SubmissionOutput wraps a submission for Huma.
type SubmissionOutput struct {
	Body domain.Submission
}

// SubmissionListOutput wraps a list of submissions for Huma.
type SubmissionListOutput struct {
	Body []*domain.Submission
}

// VerbeteTypesOutput wraps the type catalog for Huma.
type VerbeteTypesOutput struct {
	Body []domain.TypeSpec
}

// HistoryOutput wraps a status history for Huma.
type HistoryOutput struct {
	Body []domain.StatusChange
}

// MessageResponse is a bare confirmation.
type MessageResponse struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// MessageOutput wraps a confirmation for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleListVerbeteTypes(_ context.Context, _ *struct{}) (*VerbeteTypesOutput, error) {
	return &VerbeteTypesOutput{Body: s.services.Submissions.VerbeteTypes()}, nil
}

func (s *Server) handleCreateSubmission(ctx context.Context, input *CreateSubmissionInput) (*SubmissionOutput, error) {
	owner, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	body := input.Body
	verbeteType, err := body.verbeteType()
	if err != nil {
		return nil, err
	}
	sub, err := s.services.Submissions.CreateDraft(ctx, owner, verbeteType, service.CreateDraftInput{
		Title:       body.Title,
		Fields:      body.Fields,
		Content:     body.Content,
		TagIDs:      body.TagIDs,
		CategoryIDs: body.CategoryIDs,
	})
	if err != nil {
		return nil, err
	}
	return &SubmissionOutput{Body: *sub}, nil
}

func (s *Server) handleGetSubmission(ctx context.Context, input *SubmissionIDInput) (*SubmissionOutput, error) {
	viewer, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	sub, err := s.services.Submissions.FindVisible(ctx, input.ID, viewer)
	if err != nil {
		return nil, err
	}
	return &SubmissionOutput{Body: *sub}, nil
}

func (s *Server) handleListUserSubmissions(ctx context.Context, input *UserSubmissionsInput) (*SubmissionListOutput, error) {
	viewer, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if viewer.UserID != input.UserID && !viewer.IsReviewer() {
		return nil, domainerrors.Forbidden("not allowed to list another user's submissions")
	}

	subs, err := s.services.Submissions.FindByUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	return &SubmissionListOutput{Body: nonNil(subs)}, nil
}

func (s *Server) handleReviewQueue(ctx context.Context, input *ReviewQueueInput) (*SubmissionListOutput, error) {
	reviewer, err := s.authenticateReviewer(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	subs, err := s.services.Submissions.ReviewQueue(ctx, reviewer, domain.Status(input.Status))
	if err != nil {
		return nil, err
	}
	return &SubmissionListOutput{Body: nonNil(subs)}, nil
}

func (s *Server) handleUpdateSubmission(ctx context.Context, input *UpdateSubmissionInput) (*SubmissionOutput, error) {
	actor, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	body := input.Body
	sub, err := s.services.Submissions.Update(ctx, input.ID, actor, service.UpdateInput{
		Title:       body.Title,
		Fields:      body.Fields,
		Content:     body.Content,
		TagIDs:      body.TagIDs,
		CategoryIDs: body.CategoryIDs,
	})
	if err != nil {
		return nil, err
	}
	return &SubmissionOutput{Body: *sub}, nil
}

func (s *Server) handleDeleteSubmission(ctx context.Context, input *SubmissionIDInput) (*MessageOutput, error) {
	actor, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Submissions.Delete(ctx, input.ID, actor); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Submission deleted"}}, nil
}

func (s *Server) handleSubmitSubmission(ctx context.Context, input *SubmissionIDInput) (*SubmissionOutput, error) {
	actor, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	sub, err := s.services.Submissions.Submit(ctx, input.ID, actor)
	if err != nil {
		return nil, err
	}
	return &SubmissionOutput{Body: *sub}, nil
}

func (s *Server) handleWithdrawSubmission(ctx context.Context, input *SubmissionIDInput) (*SubmissionOutput, error) {
	actor, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	sub, err := s.services.Submissions.Withdraw(ctx, input.ID, actor)
	if err != nil {
		return nil, err
	}
	return &SubmissionOutput{Body: *sub}, nil
}

func (s *Server) handleReviewSubmission(ctx context.Context, input *ReviewSubmissionInput) (*SubmissionOutput, error) {
	reviewer, err := s.authenticateReviewer(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	sub, err := s.services.Submissions.Review(ctx, input.ID, reviewer, service.ReviewInput{
		Decision: domain.ReviewDecision(input.Body.Decision),
		Note:     input.Body.Note,
	})
	if err != nil {
		return nil, err
	}
	return &SubmissionOutput{Body: *sub}, nil
}

func (s *Server) handleSubmissionHistory(ctx context.Context, input *SubmissionIDInput) (*HistoryOutput, error) {
	viewer, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if _, err := s.services.Submissions.FindVisible(ctx, input.ID, viewer); err != nil {
		return nil, err
	}

	changes, err := s.services.Submissions.History(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if changes == nil {
		changes = []domain.StatusChange{}
	}
	return &HistoryOutput{Body: changes}, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
