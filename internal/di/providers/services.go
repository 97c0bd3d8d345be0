package providers

import (
	"github.com/samber/do/v2"

	"github.com/verbetes/verbete-server/internal/config"
	"github.com/verbetes/verbete-server/internal/logger"
	"github.com/verbetes/verbete-server/internal/service"
	"github.com/verbetes/verbete-server/internal/validation"
)

// ProvideValidator provides the shared struct validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSubmissionService provides the submission workflow.
func ProvideSubmissionService(i do.Injector) (*service.SubmissionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSubmissionService(storeHandle.Store, searchHandle.indexer(), v, log.Logger), nil
}

// ProvideCatalogService provides the published catalog.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(storeHandle.Store, searchHandle.searcher(), v, log.Logger), nil
}

// ProvideContentFixer provides the batch normalizer.
func ProvideContentFixer(i do.Injector) (*service.ContentFixer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewContentFixer(storeHandle.Store, service.FixerOptions{
		Concurrency: cfg.Normalize.Concurrency,
		ItemTimeout: cfg.Normalize.ItemTimeout,
		LockPath:    cfg.Data.LockPath(),
	}, log.Logger), nil
}
