package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/verbetes/verbete-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "fixContent",
		Method:      http.MethodPost,
		Path:        "/admin/fix-content",
		Summary:     "Normalize stored content",
		Description: "Re-normalizes the HTML of every submission and article. Item failures are reported, not fatal. Reviewers only.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleFixContent)
}

// FixContentInput authorizes a normalization run.
type FixContentInput struct {
	Authorization string `header:"Authorization"`
}

// FixContentOutput wraps the run summary for Huma.
type FixContentOutput struct {
	Body service.FixResult
}

func (s *Server) handleFixContent(ctx context.Context, input *FixContentInput) (*FixContentOutput, error) {
	reviewer, err := s.authenticateReviewer(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Content fix requested", "user_id", reviewer.UserID)

	result, err := s.services.Fixer.FixAll(ctx)
	if err != nil {
		return nil, err
	}
	return &FixContentOutput{Body: *result}, nil
}
