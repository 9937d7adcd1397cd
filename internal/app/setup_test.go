package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cartcraft/storefront/internal/auth"
	"github.com/cartcraft/storefront/internal/config"
	"github.com/cartcraft/storefront/internal/revalidate"
	"github.com/cartcraft/storefront/internal/store"
	pkgconfig "github.com/cartcraft/storefront/pkg/config"
	"github.com/cartcraft/storefront/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	cfg := config.CatalogConfig{Driver: config.CatalogDriverFile}
	cfg.File.Path = filepath.Join(t.TempDir(), "products.json")

	s, err := NewStore(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &store.FileStore{}, s)

	_, err = NewStore(config.CatalogConfig{Driver: config.CatalogDriverPostgres}, nil)
	assert.Error(t, err, "postgres driver needs a pool")
}

func TestNewPageCache(t *testing.T) {
	memory, err := NewPageCache(config.PageCacheConfig{Driver: config.PageCacheDriverMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &revalidate.MemoryPageCache{}, memory)

	_, err = NewPageCache(config.PageCacheConfig{Driver: config.PageCacheDriverRedis}, nil)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cached, err := NewPageCache(config.PageCacheConfig{Driver: config.PageCacheDriverRedis}, rdb)
	require.NoError(t, err)
	require.NoError(t, cached.Set(context.Background(), "/products/a", []byte(`{}`), time.Minute))
	assert.True(t, mr.Exists(revalidate.DefaultRedisPrefix+"/products/a"))
}

func TestNewGuard(t *testing.T) {
	testCases := []struct {
		name       string
		cfg        config.AuthConfig
		credential string
		want       bool
	}{
		{"configured key", config.AuthConfig{Mode: config.AuthModeAPIKey, APIKey: "k"}, "k", true},
		{"configured key rejects legacy default", config.AuthConfig{Mode: config.AuthModeAPIKey, APIKey: "k"}, auth.LegacyDefaultKey, false},
		{"legacy default opt in", config.AuthConfig{Mode: config.AuthModeAPIKey, LegacyDefault: true}, auth.LegacyDefaultKey, true},
		{"no key authorizes nobody", config.AuthConfig{Mode: config.AuthModeAPIKey}, "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			guard, err := NewGuard(context.Background(), tc.cfg, logger.Discard())

			require.NoError(t, err)
			assert.Equal(t, tc.want, guard.IsAuthorized(context.Background(), tc.credential))
		})
	}
}

func TestNewTrigger(t *testing.T) {
	pages := revalidate.NewMemoryPageCache()

	direct := NewTrigger(config.RevalidateConfig{Mode: config.RevalidateModeDirect}, "", pages)
	assert.IsType(t, &revalidate.DirectTrigger{}, direct)

	remote := NewTrigger(config.RevalidateConfig{
		Mode:    config.RevalidateModeHTTP,
		BaseURL: "http://localhost:1",
		Timeout: time.Second,
		CircuitBreaker: pkgconfig.CircuitBreakerConfig{
			ConsecutiveFailures: 1,
			OpenTimeout:         time.Second,
		},
	}, "", pages)
	assert.IsType(t, &revalidate.HTTPTrigger{}, remote)
}

func TestSetupHttpHandler_Metrics(t *testing.T) {
	cfg := &config.Config{}
	require.NoError(t, cfg.Revalidate.Validate())
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("storefront_up 1\n"))
	})
	deps := SetupDependencies(Components{
		Store:       store.NewFileStore(filepath.Join(t.TempDir(), "products.json")),
		Pages:       revalidate.NewMemoryPageCache(),
		Guard:       auth.NewStaticKeyGuard("k"),
		Metrics:     metrics,
		MetricsPath: "/metrics",
	}, cfg, logger.Discard())
	handler := SetupHttpHandler(deps)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "storefront_up")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
