package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/verbetes/verbete-server/internal/api"
	"github.com/verbetes/verbete-server/internal/auth"
	"github.com/verbetes/verbete-server/internal/config"
	"github.com/verbetes/verbete-server/internal/logger"
	"github.com/verbetes/verbete-server/internal/ratelimit"
	"github.com/verbetes/verbete-server/internal/service"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version string
}

// RateLimiterHandle wraps the per-client limiter. Limiter is nil when
// rate limiting is disabled.
type RateLimiterHandle struct {
	Limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Limiter.Stop()
	}
	return nil
}

// ProvideRateLimiter provides the per-client request limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.RateLimit.Enabled {
		log.Info("Rate limiting disabled by configuration")
		return &RateLimiterHandle{}, nil
	}

	log.Info("Rate limiting enabled", "rps", cfg.RateLimit.RPS, "burst", cfg.RateLimit.Burst)
	return &RateLimiterHandle{Limiter: ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)}, nil
}

// ProvideAPIServer provides the HTTP handler with every route mounted.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	build := do.MustInvoke[BuildInfo](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)

	services := &api.Services{
		Submissions: do.MustInvoke[*service.SubmissionService](i),
		Catalog:     do.MustInvoke[*service.CatalogService](i),
		Fixer:       do.MustInvoke[*service.ContentFixer](i),
	}

	return api.NewServer(services, tokens, api.Options{
		Version:     build.Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimiter: limiter.Limiter,
	}, log.Logger), nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handler := do.MustInvoke[*api.Server](i)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
