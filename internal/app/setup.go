// Package app wires the storefront components together.
package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cartcraft/storefront/internal/auth"
	"github.com/cartcraft/storefront/internal/config"
	"github.com/cartcraft/storefront/internal/revalidate"
	"github.com/cartcraft/storefront/internal/service"
	"github.com/cartcraft/storefront/internal/store"
	"github.com/cartcraft/storefront/internal/transport/rest"
	"github.com/cartcraft/storefront/pkg/messaging"
	"github.com/cartcraft/storefront/pkg/server"
	"github.com/go-chi/chi/v5"
)

// Components are the infrastructure backed building blocks, created by the caller
// so tests can swap any of them.
type Components struct {
	Store     store.ProductStore
	Pages     revalidate.PageCache
	Guard     auth.Guard
	Publisher messaging.Publisher
	// Trigger defaults to a DirectTrigger over Pages.
	Trigger revalidate.Trigger
	// Metrics is served at MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string
}

type Dependencies struct {
	CatalogService service.CatalogService
	Pages          revalidate.PageCache
	Dispatcher     *revalidate.Dispatcher
	Guard          auth.Guard
	AuthHeader     string
	PageTTL        time.Duration
	Metrics        http.Handler
	MetricsPath    string
	Logger         *slog.Logger
}

func SetupDependencies(c Components, cfg *config.Config, logger *slog.Logger) *Dependencies {
	trigger := c.Trigger
	if trigger == nil {
		trigger = revalidate.NewDirectTrigger(c.Pages)
	}
	return &Dependencies{
		CatalogService: service.NewService(c.Store, c.Publisher, logger),
		Pages:          c.Pages,
		Dispatcher:     revalidate.NewDispatcher(trigger, cfg.Revalidate.Timeout, logger),
		Guard:          c.Guard,
		AuthHeader:     cfg.Auth.Header,
		PageTTL:        cfg.PageCache.TTL,
		Metrics:        c.Metrics,
		MetricsPath:    c.MetricsPath,
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the router with middleware and every storefront route.
// Used by E2E tests to exercise the full HTTP stack without a listener.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.CatalogService, deps.Pages, deps.Dispatcher, deps.PageTTL, deps.Logger)
	handler.RegisterRoutes(mux, deps.Guard, deps.AuthHeader)
	if deps.Metrics != nil && deps.MetricsPath != "" {
		mux.Method(http.MethodGet, deps.MetricsPath, deps.Metrics)
	}
}

// SetupHttpServer creates the HTTP server, traced with OpenTelemetry.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	handler := server.Instrument(SetupHttpHandler(deps), "storefront")

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}
	return server.NewHTTPServer(httpCfg, handler)
}
