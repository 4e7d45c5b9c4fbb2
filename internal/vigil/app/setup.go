// Package app contains the application setup for the vigil service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mkravets/vigil/internal/vigil/catalog"
	"github.com/mkravets/vigil/internal/vigil/checkout"
	"github.com/mkravets/vigil/internal/vigil/config"
	"github.com/mkravets/vigil/internal/vigil/ledger"
	"github.com/mkravets/vigil/internal/vigil/prefs"
	"github.com/mkravets/vigil/internal/vigil/transport/rest"
	"github.com/mkravets/vigil/internal/vigil/view"
	"github.com/mkravets/vigil/pkg/bus"
	"github.com/mkravets/vigil/pkg/server"
)

type Dependencies struct {
	Bus      *bus.Bus
	Ledger   *ledger.Ledger
	Catalog  *catalog.Store
	Checkout *checkout.Service
	Prefs    prefs.Store
	Selector *view.Selector
	Logger   *slog.Logger
}

// SetupDependencies wires the event bus, the domain stores and the services
// around them. The preference store backend is chosen by the caller.
func SetupDependencies(prefsStore prefs.Store, logger *slog.Logger) *Dependencies {
	b := bus.New(logger)
	led := ledger.New(b, logger)
	cat := catalog.NewStoreWithDefaults()

	return &Dependencies{
		Bus:      b,
		Ledger:   led,
		Catalog:  cat,
		Checkout: checkout.NewService(cat, led, logger),
		Prefs:    prefsStore,
		Selector: view.NewSelector(b, logger),
		Logger:   logger,
	}
}

// SetupHttpHandler initializes the HTTP routes for the vigil application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the vigil application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Checkout, deps.Ledger, deps.Prefs, deps.Selector, deps.Catalog, deps.Bus, deps.Logger)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the vigil application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
