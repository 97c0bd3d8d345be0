package service

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/verbetes/verbete-server/internal/domain"
	domainerrors "github.com/verbetes/verbete-server/internal/errors"
	"github.com/verbetes/verbete-server/internal/query"
	"github.com/verbetes/verbete-server/internal/search"
	"github.com/verbetes/verbete-server/internal/slug"
	"github.com/verbetes/verbete-server/internal/store"
	"github.com/verbetes/verbete-server/internal/validation"
)

// CatalogStore is the read side of persistence plus taxonomy writes.
type CatalogStore interface {
	store.ArticleRepository
	store.TaxonomyRepository
}

// Searcher is the full-text index the catalog queries.
type Searcher interface {
	Search(ctx context.Context, params search.Params) (*search.Result, error)
	IndexArticles(ctx context.Context, articles []*domain.Article) error
	DocumentCount() (uint64, error)
}

// ArticlePage is one page of a listing.
type ArticlePage struct {
	Items []*domain.Article
	Total int
	Page  query.Page
}

// SearchPage is one page of search results in relevance order.
type SearchPage struct {
	ArticlePage
	Query  string
	TookMs int64
}

// CatalogService serves published articles and the shared taxonomy.
type CatalogService struct {
	store     CatalogStore
	index     Searcher
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCatalogService creates a catalog service. index may be nil, in which
// case search falls back to title matching in the store.
func NewCatalogService(st CatalogStore, index Searcher, v *validation.Validator, logger *slog.Logger) *CatalogService {
	if v == nil {
		v = validation.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{store: st, index: index, validator: v, logger: logger}
}

// ListArticles returns a filtered page of articles, newest first.
func (s *CatalogService) ListArticles(ctx context.Context, f query.Filter, p query.Page, shape query.Shape) (*ArticlePage, error) {
	items, total, err := s.store.ListArticles(ctx, f, p, shape)
	if err != nil {
		return nil, storeError(s.logger, err, "articles")
	}
	return &ArticlePage{Items: items, Total: total, Page: p}, nil
}

// ListPersonArticles is ListArticles pinned to person entries.
func (s *CatalogService) ListPersonArticles(ctx context.Context, f query.Filter, p query.Page, shape query.Shape) (*ArticlePage, error) {
	return s.ListArticles(ctx, f.ForType(domain.TypePerson), p, shape)
}

// GetArticle resolves ref as a numeric id or a document id.
func (s *CatalogService) GetArticle(ctx context.Context, ref string, shape query.Shape) (*domain.Article, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domainerrors.NotFound("article not found")
	}

	var (
		a   *domain.Article
		err error
	)
	if n, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		a, err = s.store.GetArticle(ctx, n, shape)
	} else {
		a, err = s.store.GetArticleByDocumentID(ctx, ref, shape)
	}
	if err != nil {
		return nil, storeError(s.logger, err, "article")
	}
	return a, nil
}

// GetPersonArticle is GetArticle restricted to person entries.
func (s *CatalogService) GetPersonArticle(ctx context.Context, ref string, shape query.Shape) (*domain.Article, error) {
	a, err := s.GetArticle(ctx, ref, shape)
	if err != nil {
		return nil, err
	}
	if a.VerbeteType != domain.TypePerson {
		return nil, domainerrors.NotFound("article not found")
	}
	return a, nil
}

// Search runs a full-text query and loads the matching articles in
// relevance order. category is a category slug.
func (s *CatalogService) Search(ctx context.Context, q string, t domain.VerbeteType, category string, p query.Page, shape query.Shape) (*SearchPage, error) {
	q = strings.TrimSpace(q)
	category = strings.TrimSpace(category)

	if s.index == nil {
		return s.searchStore(ctx, q, t, category, p, shape)
	}

	res, err := s.index.Search(ctx, search.Params{
		Query:    q,
		Type:     t,
		Category: category,
		Limit:    p.Limit,
		Offset:   p.Offset(),
	})
	if err != nil {
		s.logger.Error("search failed", "query", q, "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "Internal server error")
	}

	items, err := s.store.GetArticlesByIDs(ctx, res.ArticleIDs(), shape)
	if err != nil {
		return nil, storeError(s.logger, err, "articles")
	}
	return &SearchPage{
		ArticlePage: ArticlePage{Items: items, Total: int(res.Total), Page: p},
		Query:       q,
		TookMs:      res.TookMs,
	}, nil
}

// searchStore answers a search from the store's title filter when no
// index is configured.
func (s *CatalogService) searchStore(ctx context.Context, q string, t domain.VerbeteType, category string, p query.Page, shape query.Shape) (*SearchPage, error) {
	start := time.Now()
	f := query.Filter{TitleContains: q, VerbeteType: t}

	if category != "" {
		cats, err := s.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		idx := slices.IndexFunc(cats, func(c domain.Category) bool { return c.Slug == category })
		if idx < 0 {
			return &SearchPage{ArticlePage: ArticlePage{Items: []*domain.Article{}, Page: p}, Query: q}, nil
		}
		f.CategoryID = &cats[idx].ID
	}

	page, err := s.ListArticles(ctx, f, p, shape)
	if err != nil {
		return nil, err
	}
	return &SearchPage{ArticlePage: *page, Query: q, TookMs: time.Since(start).Milliseconds()}, nil
}

// Reindex loads every article into the search index. With onlyIfEmpty it
// does nothing when the index already holds documents.
func (s *CatalogService) Reindex(ctx context.Context, onlyIfEmpty bool) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	if onlyIfEmpty {
		n, err := s.index.DocumentCount()
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return 0, nil
		}
	}

	start := time.Now()
	indexed := 0
	for p := (query.Page{Page: 1, Limit: query.MaxLimit}); ; p.Page++ {
		items, total, err := s.store.ListArticles(ctx, query.Filter{}, p, query.ShapeFull)
		if err != nil {
			return indexed, storeError(s.logger, err, "articles")
		}
		if err := s.index.IndexArticles(ctx, items); err != nil {
			return indexed, err
		}
		indexed += len(items)
		if len(items) == 0 || indexed >= total {
			break
		}
	}

	s.logger.Info("search index rebuilt", "articles", indexed, "duration", time.Since(start))
	return indexed, nil
}

// IndexedCount reports how many articles the search index holds.
// enabled is false when the catalog runs without an index.
func (s *CatalogService) IndexedCount() (count uint64, enabled bool, err error) {
	if s.index == nil {
		return 0, false, nil
	}
	count, err = s.index.DocumentCount()
	return count, true, err
}

// Ping checks that the store answers a cheap read.
func (s *CatalogService) Ping(ctx context.Context) error {
	if _, err := s.store.ListCategories(ctx); err != nil {
		return storeError(s.logger, err, "categories")
	}
	return nil
}

// TagInput creates a tag.
type TagInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CategoryInput creates a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=1000"`
}

// ListTags returns every tag, ordered by name.
func (s *CatalogService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, storeError(s.logger, err, "tags")
	}
	return tags, nil
}

// CreateTag adds a tag. Reviewers curate the taxonomy.
func (s *CatalogService) CreateTag(ctx context.Context, actor domain.Principal, in TagInput) (*domain.Tag, error) {
	if !actor.IsReviewer() {
		return nil, domainerrors.Forbidden("reviewer role required")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	tagSlug := slug.Make(name)
	if tagSlug == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"name": "must contain letters or digits"})
	}

	tag := &domain.Tag{Name: name, Slug: tagSlug, CreatedAt: time.Now().UTC()}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, storeError(s.logger, err, "tag "+tagSlug)
	}
	s.logger.Info("tag created", "tag_id", tag.ID, "slug", tag.Slug, "actor_id", actor.UserID)
	return tag, nil
}

// ListCategories returns every category, ordered by name.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, storeError(s.logger, err, "categories")
	}
	return cats, nil
}

// CreateCategory adds a category. Reviewers only.
func (s *CatalogService) CreateCategory(ctx context.Context, actor domain.Principal, in CategoryInput) (*domain.Category, error) {
	if !actor.IsReviewer() {
		return nil, domainerrors.Forbidden("reviewer role required")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	catSlug := slug.Make(name)
	if catSlug == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"name": "must contain letters or digits"})
	}

	cat := &domain.Category{
		Name:        name,
		Slug:        catSlug,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateCategory(ctx, cat); err != nil {
		return nil, storeError(s.logger, err, "category "+catSlug)
	}
	s.logger.Info("category created", "category_id", cat.ID, "slug", cat.Slug, "actor_id", actor.UserID)
	return cat, nil
}
