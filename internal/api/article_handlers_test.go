package api

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/http/response"
)

// createCategory creates a category as the reviewer and returns it.
func (ts *testServer) createCategory(t *testing.T, name string) domain.Category {
	t.Helper()
	resp := ts.api.Post("/categories", ts.authHeader(t, reviewer), map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeEnvelope[domain.Category](t, resp).Data
}

// publish runs body through the whole workflow and returns the article id.
func (ts *testServer) publish(t *testing.T, author domain.Principal, body map[string]any) int64 {
	t.Helper()
	sub := ts.createDraft(t, author, body)

	steps := []struct {
		path string
		who  domain.Principal
		body any
	}{
		{submissionPath(sub.ID, "/submit"), author, nil},
		{submissionPath(sub.ID, "/review"), reviewer, map[string]any{"decision": "start_review"}},
		{submissionPath(sub.ID, "/review"), reviewer, map[string]any{"decision": "publish"}},
	}

	var last domain.Submission
	for _, step := range steps {
		args := []any{ts.authHeader(t, step.who)}
		if step.body != nil {
			args = append(args, step.body)
		}
		resp := ts.api.Post(step.path, args...)
		require.Equal(t, http.StatusOK, resp.Code, "%s: %s", step.path, resp.Body.String())
		last = decodeEnvelope[domain.Submission](t, resp).Data
	}

	require.NotNil(t, last.ArticleID)
	return *last.ArticleID
}

type catalogFixture struct {
	music, letters                  domain.Category
	pixinguinha, cecilia, carinhoso int64
}

// seedCatalog publishes two person entries and one work.
func seedCatalog(t *testing.T, ts *testServer) catalogFixture {
	t.Helper()
	var f catalogFixture
	f.music = ts.createCategory(t, "Música")
	f.letters = ts.createCategory(t, "Literatura")

	pix := personBody()
	pix["category_ids"] = []int64{f.music.ID}
	f.pixinguinha = ts.publish(t, alice, pix)

	f.cecilia = ts.publish(t, bob, map[string]any{
		"verbete_type": "person",
		"title":        "Cecília Meireles",
		"content":      "Poeta, professora e jornalista.",
		"fields":       map[string]string{"birth_date": "1901-11-07", "death_date": "1964-11-09"},
		"category_ids": []int64{f.letters.ID},
	})

	f.carinhoso = ts.publish(t, alice, map[string]any{
		"verbete_type": "work",
		"title":        "Carinhoso",
		"content":      "<p>Choro composto em 1917.",
		"fields":       map[string]string{"creation_date": "1917"},
		"category_ids": []int64{f.music.ID},
	})
	return f
}

func listIDs(items []ArticleResponse) []int64 {
	ids := make([]int64, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestListPersonArticles(t *testing.T) {
	ts := setupTestServer(t)
	f := seedCatalog(t, ts)

	resp := ts.api.Get("/person-articles")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[response.Page[ArticleResponse]](t, resp)
	assert.True(t, env.Success)
	assert.ElementsMatch(t, []int64{f.pixinguinha, f.cecilia}, listIDs(env.Data.Items), "works are not person articles")
	assert.Equal(t, response.Pagination{Page: 1, Limit: 10, Total: 2, Pages: 1}, env.Data.Pagination)

	for _, a := range env.Data.Items {
		assert.Equal(t, domain.TypePerson, a.VerbeteType)
		assert.NotEmpty(t, a.Summary)
		assert.Empty(t, a.ContentMarkdown)
	}
}

func TestListPersonArticles_CategoryFilter(t *testing.T) {
	ts := setupTestServer(t)
	f := seedCatalog(t, ts)

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"categories.id", fmt.Sprintf("categories.id=%d", f.music.ID), []int64{f.pixinguinha}},
		{"strapi alias", url.Values{"filters[categories][id][$eq]": {fmt.Sprint(f.letters.ID)}}.Encode(), []int64{f.cecilia}},
		{"malformed id is ignored", "categories.id=abc", []int64{f.pixinguinha, f.cecilia}},
		{"unknown category", "categories.id=999", []int64{}},
		{"title contains", "title_contains=MEIRELES", []int64{f.cecilia}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Get("/person-articles?" + tt.query)
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

			env := decodeEnvelope[response.Page[ArticleResponse]](t, resp)
			assert.ElementsMatch(t, tt.want, listIDs(env.Data.Items))
		})
	}
}

func TestListArticles(t *testing.T) {
	ts := setupTestServer(t)
	f := seedCatalog(t, ts)

	resp := ts.api.Get("/articles")
	require.Equal(t, http.StatusOK, resp.Code)
	env := decodeEnvelope[response.Page[ArticleResponse]](t, resp)
	assert.Len(t, env.Data.Items, 3)

	resp = ts.api.Get(fmt.Sprintf("/articles?categories.id=%d", f.music.ID))
	require.Equal(t, http.StatusOK, resp.Code)
	env = decodeEnvelope[response.Page[ArticleResponse]](t, resp)
	assert.ElementsMatch(t, []int64{f.pixinguinha, f.carinhoso}, listIDs(env.Data.Items))
	for _, a := range env.Data.Items {
		require.Len(t, a.Categories, 1)
		assert.Equal(t, f.music.ID, a.Categories[0].ID)
	}

	resp = ts.api.Get("/articles?type=work")
	require.Equal(t, http.StatusOK, resp.Code)
	env = decodeEnvelope[response.Page[ArticleResponse]](t, resp)
	assert.Equal(t, []int64{f.carinhoso}, listIDs(env.Data.Items))

	resp = ts.api.Get("/articles?page=2&limit=2")
	require.Equal(t, http.StatusOK, resp.Code)
	env = decodeEnvelope[response.Page[ArticleResponse]](t, resp)
	assert.Len(t, env.Data.Items, 1)
	assert.Equal(t, response.Pagination{Page: 2, Limit: 2, Total: 3, Pages: 2}, env.Data.Pagination)
}

func TestGetPersonArticle(t *testing.T) {
	ts := setupTestServer(t)
	f := seedCatalog(t, ts)

	resp := ts.api.Get(fmt.Sprintf("/person-articles/%d?format=markdown", f.pixinguinha))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	a := decodeEnvelope[ArticleResponse](t, resp).Data
	assert.Equal(t, "Pixinguinha", a.Title)
	assert.Contains(t, a.ContentMarkdown, "Autor de Carinhoso.")
	assert.NotContains(t, a.ContentMarkdown, "<p>")

	resp = ts.api.Get("/person-articles/" + a.DocumentID)
	require.Equal(t, http.StatusOK, resp.Code, "document ids resolve too")
	assert.Equal(t, f.pixinguinha, decodeEnvelope[ArticleResponse](t, resp).Data.ID)

	resp = ts.api.Get(fmt.Sprintf("/person-articles/%d", f.carinhoso))
	assert.Equal(t, http.StatusNotFound, resp.Code, "a work is not a person article")

	resp = ts.api.Get(fmt.Sprintf("/articles/%d", f.carinhoso))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "<p>Choro composto em 1917.</p>", decodeEnvelope[ArticleResponse](t, resp).Data.ContentHTML)

	resp = ts.api.Get("/articles/missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetArticle_Populate(t *testing.T) {
	ts := setupTestServer(t)
	f := seedCatalog(t, ts)

	resp := ts.api.Get(fmt.Sprintf("/articles/%d?populate=authors", f.pixinguinha))
	require.Equal(t, http.StatusOK, resp.Code)
	a := decodeEnvelope[ArticleResponse](t, resp).Data
	assert.Len(t, a.Authors, 1)
	assert.Empty(t, a.Categories)
	assert.Empty(t, a.Tags)
}

func TestSearchArticles(t *testing.T) {
	ts := setupTestServer(t)
	f := seedCatalog(t, ts)

	resp := ts.api.Get("/articles/search?q=Carinhoso")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decodeEnvelope[SearchArticlesResponse](t, resp)
	assert.Equal(t, "Carinhoso", env.Data.Query)
	assert.Contains(t, listIDs(env.Data.Items), f.carinhoso)

	resp = ts.api.Get("/articles/search?q=Carinhoso&type=work")
	require.Equal(t, http.StatusOK, resp.Code)
	env = decodeEnvelope[SearchArticlesResponse](t, resp)
	assert.Equal(t, []int64{f.carinhoso}, listIDs(env.Data.Items))

	resp = ts.api.Get("/articles/search")
	assert.Equal(t, http.StatusBadRequest, resp.Code, "q is required")
}
