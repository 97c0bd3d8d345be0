// Package providers contains dependency injection providers for the verbete server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/verbetes/verbete-server/internal/config"
	"github.com/verbetes/verbete-server/internal/logger"
)

// ConfigProvider returns a provider that loads the configuration from args.
func ConfigProvider(args []string) func(do.Injector) (*config.Config, error) {
	return func(do.Injector) (*config.Config, error) {
		return config.LoadConfig(args)
	}
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Debug("Configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"store", cfg.Store.Driver,
	)

	return log, nil
}
