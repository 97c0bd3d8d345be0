package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/service"
)

func (s *Server) registerTaxonomyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/tags",
		Summary:     "List tags",
		Description: "Returns every tag ordered by name",
		Tags:        []string{"Taxonomy"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/tags",
		Summary:       "Create tag",
		Description:   "Creates a tag. Reviewers only; names are unique by slug.",
		Tags:          []string{"Taxonomy"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "List categories",
		Description: "Returns every category ordered by name",
		Tags:        []string{"Taxonomy"},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCategory",
		Method:        http.MethodPost,
		Path:          "/categories",
		Summary:       "Create category",
		Description:   "Creates a category. Reviewers only; names are unique by slug.",
		Tags:          []string{"Taxonomy"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateCategory)
}

// === DTOs ===

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name string `json:"name" minLength:"1" maxLength:"100" doc:"Tag name"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateTagRequest
}

// CreateCategoryRequest is the request body for creating a category.
type CreateCategoryRequest struct {
	Name        string `json:"name" minLength:"1" maxLength:"100" doc:"Category name"`
	Description string `json:"description,omitempty" maxLength:"1000" doc:"Optional description"`
}

// CreateCategoryInput wraps the create category request for Huma.
type CreateCategoryInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateCategoryRequest
}

// TagOutput wraps a tag for Huma.
type TagOutput struct {
	Body domain.Tag
}

// TagListOutput wraps the tag list for Huma.
type TagListOutput struct {
	Body []domain.Tag
}

// CategoryOutput wraps a category for Huma.
type CategoryOutput struct {
	Body domain.Category
}

// CategoryListOutput wraps the category list for Huma.
type CategoryListOutput struct {
	Body []domain.Category
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*TagListOutput, error) {
	tags, err := s.services.Catalog.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	return &TagListOutput{Body: tags}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	actor, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	tag, err := s.services.Catalog.CreateTag(ctx, actor, service.TagInput{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: *tag}, nil
}

func (s *Server) handleListCategories(ctx context.Context, _ *struct{}) (*CategoryListOutput, error) {
	cats, err := s.services.Catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	return &CategoryListOutput{Body: cats}, nil
}

func (s *Server) handleCreateCategory(ctx context.Context, input *CreateCategoryInput) (*CategoryOutput, error) {
	actor, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	cat, err := s.services.Catalog.CreateCategory(ctx, actor, service.CategoryInput{
		Name:        input.Body.Name,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return &CategoryOutput{Body: *cat}, nil
}
