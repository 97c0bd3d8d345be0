package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/slug"
)

// Params configures a search.
type Params struct {
	Query    string
	Type     domain.VerbeteType // empty = all types
	Category string             // category slug, empty = all
	Limit    int
	Offset   int
}

// Result is a page of hits, best first.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is one matching article.
type Hit struct {
	ArticleID int64   `json:"article_id"`
	Title     string  `json:"title"`
	Type      string  `json:"type"`
	Score     float64 `json:"score"`
}

// ArticleIDs returns the hit ids in rank order.
func (r *Result) ArticleIDs() []int64 {
	ids := make([]int64, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ArticleID
	}
	return ids
}

// Search runs a ranked query. An empty query matches every article,
// newest first.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.Fields = []string{"display", "type"}
	if strings.TrimSpace(params.Query) == "" {
		req.SortBy([]string{"-published_at", "_id"})
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping search hit with malformed id", "id", h.ID)
			continue
		}
		hit := Hit{ArticleID: id, Score: h.Score}
		if v, ok := h.Fields["display"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["type"].(string); ok {
			hit.Type = v
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// buildQuery matches the folded query text against title (boosted) and
// body, with fuzzy and prefix variants on the title for typos and
// autocomplete. Type and category act as filters.
func buildQuery(params Params) query.Query {
	var must []query.Query

	if text := slug.Fold(strings.TrimSpace(params.Query)); text != "" {
		title := bleve.NewMatchQuery(text)
		title.SetField("title")
		title.SetBoost(3.0)

		body := bleve.NewMatchQuery(text)
		body.SetField("body")

		fuzzy := bleve.NewFuzzyQuery(text)
		fuzzy.SetField("title")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{title, body, fuzzy}
		if len(text) >= 2 && !strings.Contains(text, " ") {
			prefix := bleve.NewPrefixQuery(text)
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}
		must = append(must, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Type != "" {
		tq := bleve.NewTermQuery(string(params.Type))
		tq.SetField("type")
		must = append(must, tq)
	}
	if params.Category != "" {
		cq := bleve.NewTermQuery(params.Category)
		cq.SetField("categories")
		must = append(must, cq)
	}

	if len(must) == 0 {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewConjunctionQuery(must...)
}
