package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/verbetes/verbete-server/internal/config"
	"github.com/verbetes/verbete-server/internal/logger"
	"github.com/verbetes/verbete-server/internal/store"
	"github.com/verbetes/verbete-server/internal/store/kv"
	"github.com/verbetes/verbete-server/internal/store/sqlite"
)

// StoreHandle wraps the configured backend with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the backend selected by Store.Driver.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Data.BasePath, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var (
		st   store.Store
		path string
		err  error
	)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		path = cfg.Data.SQLitePath()
		st, err = sqlite.Open(path, log.Logger)
	case config.DriverBadger:
		path = cfg.Data.BadgerPath()
		st, err = kv.Open(path, log.Logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "driver", cfg.Store.Driver, "path", path)

	return &StoreHandle{Store: st}, nil
}
