// Package di provides dependency injection configuration for the verbete server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/verbetes/verbete-server/internal/api"
	"github.com/verbetes/verbete-server/internal/auth"
	"github.com/verbetes/verbete-server/internal/config"
	"github.com/verbetes/verbete-server/internal/di/providers"
	"github.com/verbetes/verbete-server/internal/logger"
	"github.com/verbetes/verbete-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// args are the command-line flags understood by config.LoadConfig.
func NewContainer(args []string, version string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, providers.BuildInfo{Version: version})
	do.Provide(injector, providers.ConfigProvider(args))
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideSubmissionService)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideContentFixer)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes every service the HTTP server needs and starts
// listening. Commands that only need part of the graph invoke it directly.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	log := do.MustInvoke[*logger.Logger](injector)

	for _, invoke := range []func() error{
		invokeAs[providers.AuthKey](injector),
		invokeAs[*providers.StoreHandle](injector),
		invokeAs[*providers.SearchIndexHandle](injector),
		invokeAs[*auth.TokenService](injector),
		invokeAs[*service.SubmissionService](injector),
		invokeAs[*service.CatalogService](injector),
		invokeAs[*service.ContentFixer](injector),
		invokeAs[*api.Server](injector),
		invokeAs[*providers.HTTPServerHandle](injector),
	} {
		if err := invoke(); err != nil {
			log.Error("Service initialization failed", "error", err)
			return err
		}
	}

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}

func invokeAs[T any](injector do.Injector) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}
