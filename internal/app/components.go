package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cartcraft/storefront/internal/auth"
	"github.com/cartcraft/storefront/internal/config"
	"github.com/cartcraft/storefront/internal/revalidate"
	"github.com/cartcraft/storefront/internal/store"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewStore returns the catalog store selected by catalog.driver. db is only used by the postgres driver.
func NewStore(cfg config.CatalogConfig, db *pgxpool.Pool) (store.ProductStore, error) {
	switch cfg.Driver {
	case config.CatalogDriverFile:
		return store.NewFileStore(cfg.File.Path), nil
	case config.CatalogDriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres catalog driver requires a database pool")
		}
		return store.NewPgStore(db), nil
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}

// NewPageCache returns the page cache selected by pagecache.driver. rdb is only used by the redis driver.
func NewPageCache(cfg config.PageCacheConfig, rdb *redis.Client) (revalidate.PageCache, error) {
	switch cfg.Driver {
	case config.PageCacheDriverMemory:
		return revalidate.NewMemoryPageCache(), nil
	case config.PageCacheDriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis page cache requires a redis client")
		}
		return revalidate.NewRedisPageCache(rdb, cfg.Redis.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown page cache driver %q", cfg.Driver)
	}
}

// NewTrigger returns how invalidations reach the page cache after a mutation.
func NewTrigger(cfg config.RevalidateConfig, authHeader string, pages revalidate.PageCache) revalidate.Trigger {
	if cfg.Mode == config.RevalidateModeHTTP {
		if authHeader == "" {
			authHeader = auth.DefaultHeader
		}
		return revalidate.NewHTTPTrigger(cfg.BaseURL, authHeader, &http.Client{Timeout: cfg.Timeout}, cfg.CircuitBreaker)
	}
	return revalidate.NewDirectTrigger(pages)
}

// NewGuard returns the access guard selected by auth.mode.
func NewGuard(ctx context.Context, cfg config.AuthConfig, logger *slog.Logger) (auth.Guard, error) {
	switch cfg.Mode {
	case config.AuthModeAPIKey:
		if cfg.APIKey == "" && cfg.LegacyDefault {
			logger.Warn("No API key configured, accepting the legacy default key")
			return auth.NewStaticKeyGuard(auth.LegacyDefaultKey), nil
		}
		return auth.NewStaticKeyGuard(cfg.APIKey), nil
	case config.AuthModeJWT:
		verifier, err := auth.NewJWTVerifier(ctx, cfg.IdP)
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT verifier: %w", err)
		}
		return auth.NewJWTGuard(verifier, logger), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}
