package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/verbetes/verbete-server/internal/config"
	"github.com/verbetes/verbete-server/internal/logger"
	"github.com/verbetes/verbete-server/internal/search"
	"github.com/verbetes/verbete-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// Index is nil when search is disabled.
type SearchIndexHandle struct {
	Index *search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Index.Close()
}

// searcher returns the index as a service.Searcher, or an untyped nil so
// services see a disabled index.
func (h *SearchIndexHandle) searcher() service.Searcher {
	if h.Index == nil {
		return nil
	}
	return h.Index
}

// indexer is searcher for the publish path.
func (h *SearchIndexHandle) indexer() service.ArticleIndexer {
	if h.Index == nil {
		return nil
	}
	return h.Index
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Search index disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.New(search.Options{
		DataPath: cfg.Data.SearchPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index from the store in
// the background. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	handle := do.MustInvoke[*SearchIndexHandle](i)
	if handle.Index == nil {
		return
	}
	catalog := do.MustInvoke[*service.CatalogService](i)
	log := do.MustInvoke[*logger.Logger](i)

	go func() {
		n, err := catalog.Reindex(context.Background(), true)
		if err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		if n > 0 {
			log.Info("Initial search reindex completed", "articles", n)
		}
	}()
}
