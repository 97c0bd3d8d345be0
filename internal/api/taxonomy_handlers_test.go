package api

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/service"
	"github.com/verbetes/verbete-server/internal/store"
)

func TestTags(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/tags")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"data":[]`, "empty taxonomy is an empty list")

	resp = ts.api.Post("/tags", ts.authHeader(t, reviewer), map[string]any{"name": "Música Popular"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	tag := decodeEnvelope[domain.Tag](t, resp).Data
	assert.Equal(t, "musica-popular", tag.Slug)

	resp = ts.api.Post("/tags", ts.authHeader(t, reviewer), map[string]any{"name": "musica popular"})
	assert.Equal(t, http.StatusConflict, resp.Code, "names are unique by slug")

	resp = ts.api.Post("/tags", ts.authHeader(t, alice), map[string]any{"name": "Samba"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/tags", map[string]any{"name": "Samba"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Get("/tags")
	require.Equal(t, http.StatusOK, resp.Code)
	tags := decodeEnvelope[[]domain.Tag](t, resp).Data
	require.Len(t, tags, 1)
	assert.Equal(t, tag.ID, tags[0].ID)
}

func TestCategories(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/categories", ts.authHeader(t, reviewer), map[string]any{
		"name":        "Literatura",
		"description": "Escritores e obras",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	cat := decodeEnvelope[domain.Category](t, resp).Data
	assert.Equal(t, "literatura", cat.Slug)
	assert.Equal(t, "Escritores e obras", cat.Description)

	resp = ts.api.Post("/categories", ts.authHeader(t, reviewer), map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Get("/categories")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeEnvelope[[]domain.Category](t, resp).Data, 1)
}

func TestSubmissionWithUnknownTaxonomy(t *testing.T) {
	ts := setupTestServer(t)

	body := personBody()
	body["tag_ids"] = []int64{77}
	resp := ts.api.Post("/submissions", ts.authHeader(t, alice), body)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, decodeEnvelope[any](t, resp).Details, "tag_ids")
}

func TestFixContent(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	ts.createDraft(t, alice, personBody())
	raw := ts.createDraft(t, bob, personBody())

	// Simulate a body stored before normalization existed.
	require.NoError(t, ts.store.SetContentHTML(ctx, store.ContentSubmission, raw.ID, raw.Content, "<p>stale"))

	resp := ts.api.Post("/admin/fix-content", ts.authHeader(t, alice))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/admin/fix-content", ts.authHeader(t, reviewer))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	result := decodeEnvelope[service.FixResult](t, resp).Data
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)

	// The HTML is rebuilt from the stored source.
	resp = ts.api.Get(submissionPath(raw.ID, ""), ts.authHeader(t, bob))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, raw.ContentHTML, decodeEnvelope[domain.Submission](t, resp).Data.ContentHTML)
}

func TestFixContent_AlreadyRunning(t *testing.T) {
	ts := setupTestServer(t)

	lock := flock.New(filepath.Join(ts.dataDir, "fix-content.lock"))
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = lock.Unlock() })

	resp := ts.api.Post("/admin/fix-content", ts.authHeader(t, reviewer))
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	assert.Equal(t, service.ErrFixRunning.Message, decodeEnvelope[any](t, resp).Error)
}
