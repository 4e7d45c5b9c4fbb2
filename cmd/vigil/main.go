package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkravets/vigil/internal/vigil/app"
	"github.com/mkravets/vigil/internal/vigil/config"
	"github.com/mkravets/vigil/internal/vigil/prefs"
	"github.com/mkravets/vigil/internal/vigil/relay"
	"github.com/mkravets/vigil/pkg/bootstrap"
	"github.com/mkravets/vigil/pkg/config/configloader"
	vnats "github.com/mkravets/vigil/pkg/nats"
	"golang.org/x/sync/errgroup"
)

const serviceName = "vigil"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application and starts the HTTP and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	prefsStore, closePrefs, err := setupPrefsStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePrefs()

	deps := app.SetupDependencies(prefsStore, logger)

	// Mirror purchase and avatar events to JetStream when a broker is configured.
	if cfg.Nats.Enabled {
		nc, err := vnats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
		js, err := vnats.NewJetStreamContext(nc)
		if err != nil {
			return err
		}
		mirror := relay.New(deps.Bus, vnats.NewJetStreamPublisher(js), cfg.Nats.Timeout, logger)
		mirror.Start()
		defer mirror.Stop()
		logger.Info("Event relay started", slog.String("nats_url", cfg.Nats.Url))
	}

	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{
		Addr: cfg.PProf.Addr,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// setupPrefsStore creates the preference store selected by the configuration.
// The returned func releases the backing resources.
func setupPrefsStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (prefs.Store, func(), error) {
	switch cfg.Prefs.Backend {
	case config.PrefsBackendPostgres:
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Prefs.Database.URL, cfg.Prefs.Database.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		logger.Info("Successfully connected to the database!")
		return prefs.NewPgStore(dbPool), dbPool.Close, nil
	default:
		return prefs.NewMemory(), func() {}, nil
	}
}
