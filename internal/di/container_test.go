package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/api"
	"github.com/verbetes/verbete-server/internal/di/providers"
	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/service"
)

func containerArgs(t *testing.T, extra ...string) []string {
	t.Helper()
	dir := t.TempDir()
	return append([]string{
		"-data-path", filepath.Join(dir, "data"),
		"-env-file", filepath.Join(dir, "missing.env"),
		"-log-level", "error",
		"-log-format", "text",
	}, extra...)
}

func TestContainer_Drivers(t *testing.T) {
	for _, driver := range []string{"sqlite", "badger"} {
		t.Run(driver, func(t *testing.T) {
			injector := NewContainer(containerArgs(t, "-store", driver), "test")
			t.Cleanup(func() { _ = injector.Shutdown() })

			catalog, err := do.Invoke[*service.CatalogService](injector)
			require.NoError(t, err)
			require.NoError(t, catalog.Ping(context.Background()))

			_, enabled, err := catalog.IndexedCount()
			require.NoError(t, err)
			assert.True(t, enabled)

			cat, err := catalog.CreateCategory(context.Background(),
				domain.Principal{UserID: "u1", Name: "Rita", Role: domain.RoleReviewer},
				service.CategoryInput{Name: "História"})
			require.NoError(t, err)
			assert.Equal(t, "historia", cat.Slug)
		})
	}
}

func TestContainer_SearchDisabled(t *testing.T) {
	injector := NewContainer(containerArgs(t, "-search", "false", "-rate-limit", "false"), "test")
	t.Cleanup(func() { _ = injector.Shutdown() })

	handle, err := do.Invoke[*providers.SearchIndexHandle](injector)
	require.NoError(t, err)
	assert.Nil(t, handle.Index)

	catalog := do.MustInvoke[*service.CatalogService](injector)
	_, enabled, err := catalog.IndexedCount()
	require.NoError(t, err)
	assert.False(t, enabled, "a disabled index must reach the catalog as nil")

	limiter := do.MustInvoke[*providers.RateLimiterHandle](injector)
	assert.Nil(t, limiter.Limiter)

	_, err = do.Invoke[*api.Server](injector)
	require.NoError(t, err)
}

func TestContainer_InvalidConfig(t *testing.T) {
	injector := NewContainer(containerArgs(t, "-store", "postgres"), "test")
	t.Cleanup(func() { _ = injector.Shutdown() })

	err := Bootstrap(injector)
	assert.ErrorContains(t, err, "invalid store driver")
}
