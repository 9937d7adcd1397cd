// Package main runs the storefront HTTP service.
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

	_ "net/http/pprof"

	"github.com/cartcraft/storefront/internal/app"
	"github.com/cartcraft/storefront/internal/config"
	"github.com/cartcraft/storefront/internal/events"
	"github.com/cartcraft/storefront/internal/revalidate"
	"github.com/cartcraft/storefront/internal/store/migrations"
	"github.com/cartcraft/storefront/pkg/bootstrap"
	"github.com/cartcraft/storefront/pkg/config/configloader"
	"github.com/cartcraft/storefront/pkg/messaging"
	natsclient "github.com/cartcraft/storefront/pkg/nats"
	"github.com/cartcraft/storefront/pkg/server"
	"github.com/cartcraft/storefront/pkg/telemetry"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, connects the configured infrastructure and serves HTTP until ctx is done.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.TracingEnabled() {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
		logger.Info("Tracing enabled", "endpoint", cfg.Telemetry.Traces.OtlpHttp.Endpoint)
	}

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		mp, handler, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return fmt.Errorf("failed to create meter provider: %w", err)
		}
		defer func() {
			if err := mp.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shutdown meter provider", "error", err)
			}
		}()
		metricsHandler = handler
	}

	var dbPool *pgxpool.Pool
	if cfg.Catalog.Driver == config.CatalogDriverPostgres {
		var err error
		dbPool, err = bootstrap.NewDbPool(ctx, cfg.Catalog.Database.URL, cfg.Catalog.Database.Timeout)
		if err != nil {
			return fmt.Errorf("failed to create database connection pool: %w", err)
		}
		defer dbPool.Close()
		logger.Info("Successfully connected to the database!")

		if cfg.Catalog.Database.Migrate {
			if err := bootstrap.RunMigrations(migrations.FS, cfg.Catalog.Database.URL); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			logger.Info("Database migrations applied")
		}
	}

	var rdb *redis.Client
	if cfg.PageCache.Driver == config.PageCacheDriverRedis {
		var err error
		rdb, err = bootstrap.NewRedisClient(ctx, cfg.PageCache.Redis.URL, cfg.PageCache.Redis.DB, cfg.PageCache.Redis.Timeout)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		logger.Info("Successfully connected to redis!")
	}

	var publisher messaging.Publisher = messaging.NopPublisher{}
	var js jetstream.JetStream
	if cfg.NATS.Enabled() {
		nc, err := natsclient.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
		if err != nil {
			return err
		}
		defer nc.Close()
		js, err = natsclient.NewJetStreamContext(nc)
		if err != nil {
			return err
		}
		if err := natsclient.EnsureStream(ctx, js, cfg.NATS.Stream, events.SubjectPrefix+">"); err != nil {
			return err
		}
		publisher = natsclient.NewNatsPublisher(js)
		logger.Info("Publishing catalog events", "stream", cfg.NATS.Stream)
	}

	components, err := buildComponents(ctx, cfg, dbPool, rdb, logger)
	if err != nil {
		return err
	}
	components.Publisher = publisher
	components.Metrics = metricsHandler
	components.MetricsPath = cfg.Telemetry.Metrics.Path

	deps := app.SetupDependencies(components, cfg, logger)
	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := server.NewPprofServer(cfg.PProf.Addr)

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation, draining page invalidations around it
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return app.Shutdown(shutdownCtx, httpServer, deps.Dispatcher, logger)
	})

	if memory, ok := components.Pages.(*revalidate.MemoryPageCache); ok {
		g.Go(func() error {
			memory.Run(gCtx, cfg.PageCache.SweepInterval)
			return nil
		})
	}

	// Drop pages changed through other replicas
	if js != nil && cfg.NATS.Subscriber.Enabled {
		subscriber := revalidate.NewSubscriber(components.Pages, logger)
		g.Go(func() error {
			if err := subscriber.Start(gCtx, js, cfg.NATS.Stream, cfg.NATS.Subscriber); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("catalog event subscriber failed: %w", err)
			}
			return nil
		})
	}

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
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

// buildComponents creates the store, page cache, guard and invalidation trigger selected by cfg.
func buildComponents(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger) (app.Components, error) {
	productStore, err := app.NewStore(cfg.Catalog, dbPool)
	if err != nil {
		return app.Components{}, err
	}
	pages, err := app.NewPageCache(cfg.PageCache, rdb)
	if err != nil {
		return app.Components{}, err
	}
	guard, err := app.NewGuard(ctx, cfg.Auth, logger)
	if err != nil {
		return app.Components{}, err
	}
	return app.Components{
		Store:   productStore,
		Pages:   pages,
		Guard:   guard,
		Trigger: app.NewTrigger(cfg.Revalidate, cfg.Auth.Header, pages),
	}, nil
}
