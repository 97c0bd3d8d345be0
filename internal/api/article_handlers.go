package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/http/response"
	"github.com/verbetes/verbete-server/internal/normalize"
	"github.com/verbetes/verbete-server/internal/query"
	"github.com/verbetes/verbete-server/internal/service"
)

// summaryLength caps the plain-text excerpt sent with every article.
const summaryLength = 280

func (s *Server) registerArticleRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPersonArticles",
		Method:      http.MethodGet,
		Path:        "/person-articles",
		Summary:     "List person articles",
		Description: "Published person entries, newest first. Malformed filter parameters are ignored.",
		Tags:        []string{"Articles"},
	}, s.handleListPersonArticles)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPersonArticle",
		Method:      http.MethodGet,
		Path:        "/person-articles/{id}",
		Summary:     "Get person article",
		Description: "Fetches a person article by numeric id or document id",
		Tags:        []string{"Articles"},
	}, s.handleGetPersonArticle)

	huma.Register(s.api, huma.Operation{
		OperationID: "listArticles",
		Method:      http.MethodGet,
		Path:        "/articles",
		Summary:     "List articles",
		Description: "Published articles of every type, newest first",
		Tags:        []string{"Articles"},
	}, s.handleListArticles)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchArticles",
		Method:      http.MethodGet,
		Path:        "/articles/search",
		Summary:     "Search articles",
		Description: "Full-text search over published articles in relevance order",
		Tags:        []string{"Articles"},
	}, s.handleSearchArticles)

	huma.Register(s.api, huma.Operation{
		OperationID: "getArticle",
		Method:      http.MethodGet,
		Path:        "/articles/{id}",
		Summary:     "Get article",
		Description: "Fetches an article by numeric id or document id",
		Tags:        []string{"Articles"},
	}, s.handleGetArticle)
}

// === DTOs ===

// ArticleListInput is the query of an article listing. The declared
// parameters document the API; handlers read the raw query so malformed
// values are dropped instead of rejected.
type ArticleListInput struct {
	TitleContains string `query:"title_contains" doc:"Case-insensitive title substring"`
	CategoryID    string `query:"categories.id" doc:"Only articles in this category"`
	TagIDs        string `query:"tags.id_in" doc:"Comma-separated tag ids; articles carrying any of them"`
	Type          string `query:"type" doc:"Verbete type (ignored on /person-articles)"`
	Page          string `query:"page" doc:"Page number, default 1"`
	Limit         string `query:"limit" doc:"Page size, default 10, max 100 (alias: pageSize)"`
	Populate      string `query:"populate" doc:"Relations to load: tags, categories, authors or *"`
	Format        string `query:"format" enum:"html,markdown" doc:"markdown adds content_markdown to each item"`

	values url.Values
}

// Resolve captures the raw query.
func (i *ArticleListInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.values = u.Query()
	return nil
}

// GetArticleInput identifies one article.
type GetArticleInput struct {
	ID       string `path:"id" doc:"Numeric id or document id"`
	Populate string `query:"populate" doc:"Relations to load: tags, categories, authors or *"`
	Format   string `query:"format" enum:"html,markdown" doc:"markdown adds content_markdown"`

	values url.Values
}

// Resolve captures the raw query.
func (i *GetArticleInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.values = u.Query()
	return nil
}

// SearchArticlesInput is a full-text query.
type SearchArticlesInput struct {
	Query    string `query:"q" required:"true" minLength:"1" maxLength:"200" doc:"Search terms"`
	Type     string `query:"type" doc:"Restrict to a verbete type"`
	Category string `query:"category" doc:"Restrict to a category slug"`
	Page     string `query:"page" doc:"Page number, default 1"`
	Limit    string `query:"limit" doc:"Page size, default 10, max 100"`
	Populate string `query:"populate" doc:"Relations to load: tags, categories, authors or *"`

	values url.Values
}

// Resolve captures the raw query.
func (i *SearchArticlesInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.values = u.Query()
	return nil
}

// ArticleResponse is an article with read-only renditions of its body.
type ArticleResponse struct {
	domain.Article
	Summary         string `json:"summary" doc:"Plain-text excerpt of the body"`
	ContentMarkdown string `json:"content_markdown,omitempty" doc:"Body as Markdown, when format=markdown"`
}

// ArticleOutput wraps one article for Huma.
type ArticleOutput struct {
	Body ArticleResponse
}

// ArticleListOutput wraps a page of articles for Huma.
type ArticleListOutput struct {
	Body response.Page[ArticleResponse]
}

// SearchArticlesResponse is a page of search hits.
type SearchArticlesResponse struct {
	Query      string              `json:"query" doc:"Normalized search terms"`
	TookMs     int64               `json:"took_ms" doc:"Search duration in milliseconds"`
	Items      []ArticleResponse   `json:"items" doc:"Matching articles in relevance order"`
	Pagination response.Pagination `json:"pagination"`
}

// SearchArticlesOutput wraps search results for Huma.
type SearchArticlesOutput struct {
	Body SearchArticlesResponse
}

// === Handlers ===

func (s *Server) handleListPersonArticles(ctx context.Context, input *ArticleListInput) (*ArticleListOutput, error) {
	page, err := s.services.Catalog.ListPersonArticles(ctx,
		query.Build(input.values), query.ParsePage(input.values), query.ParseShape(input.values))
	if err != nil {
		return nil, err
	}
	return &ArticleListOutput{Body: articlePage(page, wantsMarkdown(input.values))}, nil
}

func (s *Server) handleListArticles(ctx context.Context, input *ArticleListInput) (*ArticleListOutput, error) {
	page, err := s.services.Catalog.ListArticles(ctx,
		query.Build(input.values), query.ParsePage(input.values), query.ParseShape(input.values))
	if err != nil {
		return nil, err
	}
	return &ArticleListOutput{Body: articlePage(page, wantsMarkdown(input.values))}, nil
}

func (s *Server) handleGetPersonArticle(ctx context.Context, input *GetArticleInput) (*ArticleOutput, error) {
	a, err := s.services.Catalog.GetPersonArticle(ctx, input.ID, query.ParseShape(input.values))
	if err != nil {
		return nil, err
	}
	return &ArticleOutput{Body: toArticleResponse(a, wantsMarkdown(input.values))}, nil
}

func (s *Server) handleGetArticle(ctx context.Context, input *GetArticleInput) (*ArticleOutput, error) {
	a, err := s.services.Catalog.GetArticle(ctx, input.ID, query.ParseShape(input.values))
	if err != nil {
		return nil, err
	}
	return &ArticleOutput{Body: toArticleResponse(a, wantsMarkdown(input.values))}, nil
}

func (s *Server) handleSearchArticles(ctx context.Context, input *SearchArticlesInput) (*SearchArticlesOutput, error) {
	verbeteType, _ := domain.ParseVerbeteType(input.Type)
	p := query.ParsePage(input.values)

	s.logger.Debug("Search request received",
		"query", input.Query,
		"type", verbeteType,
		"category", input.Category,
	)

	res, err := s.services.Catalog.Search(ctx, input.Query, verbeteType, input.Category, p, query.ParseShape(input.values))
	if err != nil {
		return nil, err
	}

	return &SearchArticlesOutput{
		Body: SearchArticlesResponse{
			Query:      res.Query,
			TookMs:     res.TookMs,
			Items:      toArticleResponses(res.Items, false),
			Pagination: response.NewPagination(p.Page, p.Limit, res.Total),
		},
	}, nil
}

// === Helpers ===

func wantsMarkdown(values url.Values) bool {
	return values.Get("format") == "markdown"
}

func articlePage(page *service.ArticlePage, markdown bool) response.Page[ArticleResponse] {
	return response.NewPage(
		toArticleResponses(page.Items, markdown),
		response.NewPagination(page.Page.Page, page.Page.Limit, page.Total),
	)
}

func toArticleResponses(articles []*domain.Article, markdown bool) []ArticleResponse {
	out := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, toArticleResponse(a, markdown))
	}
	return out
}

func toArticleResponse(a *domain.Article, markdown bool) ArticleResponse {
	resp := ArticleResponse{
		Article: *a,
		Summary: normalize.Summary(a.ContentHTML, summaryLength),
	}
	if markdown {
		resp.ContentMarkdown = normalize.Markdown(a.ContentHTML)
	}
	return resp
}
