package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/domain"
)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()
	index, err := New(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

var published = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func sampleArticles() []*domain.Article {
	return []*domain.Article{
		{
			ID: 1, VerbeteType: domain.TypePerson, Title: "Pixinguinha",
			ContentHTML: "<p>Flautista, saxofonista e compositor de choro.</p>",
			Categories:  []domain.Category{{ID: 1, Slug: "musica"}},
			PublishedAt: published,
		},
		{
			ID: 2, VerbeteType: domain.TypeWork, Title: "Memórias Póstumas de Brás Cubas",
			ContentHTML: "<p>Romance de Machado de Assis.</p>",
			Categories:  []domain.Category{{ID: 2, Slug: "literatura"}},
			PublishedAt: published.Add(time.Hour),
		},
		{
			ID: 3, VerbeteType: domain.TypeEvent, Title: "Semana de Arte Moderna",
			ContentHTML: "<p>Festival realizado em São Paulo em 1922.</p>",
			PublishedAt: published.Add(2 * time.Hour),
		},
	}
}

func TestIndex_IndexAndCount(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	require.NoError(t, index.IndexArticles(ctx, sampleArticles()))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	// Reindexing replaces rather than duplicates.
	require.NoError(t, index.IndexArticle(ctx, sampleArticles()[0]))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	require.NoError(t, index.DeleteArticle(ctx, 1))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndex_Search(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.IndexArticles(ctx, sampleArticles()))

	tests := []struct {
		name   string
		params Params
		want   int64
	}{
		{"title", Params{Query: "Pixinguinha"}, 1},
		{"accent folded", Params{Query: "memorias postumas"}, 2},
		{"accented query", Params{Query: "Memórias"}, 2},
		{"body text", Params{Query: "choro"}, 1},
		{"body accent folded", Params{Query: "sao paulo"}, 3},
		{"prefix", Params{Query: "pixing"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := index.Search(ctx, tt.params)
			require.NoError(t, err)
			require.NotEmpty(t, res.Hits)
			assert.Equal(t, tt.want, res.Hits[0].ArticleID)
		})
	}
}

func TestIndex_SearchFilters(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.IndexArticles(ctx, sampleArticles()))

	res, err := index.Search(ctx, Params{Query: "machado", Type: domain.TypePerson})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	res, err = index.Search(ctx, Params{Type: domain.TypeWork})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Memórias Póstumas de Brás Cubas", res.Hits[0].Title)
	assert.Equal(t, "work", res.Hits[0].Type)

	res, err = index.Search(ctx, Params{Category: "musica"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.ArticleIDs())
}

func TestIndex_EmptyQueryNewestFirst(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.IndexArticles(ctx, sampleArticles()))

	res, err := index.Search(ctx, Params{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)
	assert.Equal(t, []int64{3, 2}, res.ArticleIDs())

	res, err = index.Search(ctx, Params{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.ArticleIDs())
}

func TestIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.IndexArticles(ctx, sampleArticles()))

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNew_OnDiskVersioning(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	index, err := New(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexArticles(ctx, sampleArticles()))
	require.NoError(t, index.Close())

	version, err := os.ReadFile(filepath.Join(dir, "search.version"))
	require.NoError(t, err)
	assert.Equal(t, mappingVersion, string(version))

	index, err = New(Options{DataPath: dir})
	require.NoError(t, err)
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count, "same mapping reopens in place")
	require.NoError(t, index.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.version"), []byte("0"), 0o644))
	index, err = New(Options{DataPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count, "stale mapping is rebuilt empty")
}
