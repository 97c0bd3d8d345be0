package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/verbetes/verbete-server/internal/auth"
	"github.com/verbetes/verbete-server/internal/domain"
	domainerrors "github.com/verbetes/verbete-server/internal/errors"
)

// authenticateRequest validates the Authorization header and returns the
// acting user.
func (s *Server) authenticateRequest(_ context.Context, authHeader string) (domain.Principal, error) {
	if authHeader == "" {
		return domain.Principal{}, huma.Error401Unauthorized("Missing authorization header")
	}

	token, ok := auth.BearerToken(authHeader)
	if !ok {
		return domain.Principal{}, huma.Error401Unauthorized("Invalid authorization header format")
	}

	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return domain.Principal{}, huma.Error401Unauthorized("Invalid or expired token")
	}

	return claims.Principal(), nil
}

// authenticateReviewer validates the token and requires the reviewer role.
func (s *Server) authenticateReviewer(ctx context.Context, authHeader string) (domain.Principal, error) {
	p, err := s.authenticateRequest(ctx, authHeader)
	if err != nil {
		return domain.Principal{}, err
	}
	if !p.IsReviewer() {
		return domain.Principal{}, domainerrors.Forbidden("Reviewer access required")
	}
	return p, nil
}
