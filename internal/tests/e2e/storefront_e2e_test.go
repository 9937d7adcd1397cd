// Package e2e drives the fully wired storefront over real HTTP.
// Each test gets a fresh catalog file seeded with two products and a server whose
// invalidation callback loops back to its own /revalidate endpoint, so the complete
// mutation, callback and page cache handshake is exercised.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cartcraft/storefront/internal/app"
	"github.com/cartcraft/storefront/internal/auth"
	"github.com/cartcraft/storefront/internal/config"
	"github.com/cartcraft/storefront/internal/service"
	"github.com/cartcraft/storefront/pkg/logger"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const apiKey = "e2e-secret"

const seedCatalog = `[
  {"id":"1","name":"Wireless Headphones","slug":"wireless-headphones","description":"Noise cancelling","price":99.99,"category":"Electronics","inventory":45,"lastUpdated":"2025-01-01T00:00:00Z"},
  {"id":"2","name":"Coffee Mug","slug":"coffee-mug","description":"Ceramic","price":12.5,"category":"Kitchen","inventory":0,"lastUpdated":"2025-01-01T00:00:00Z"}
]`

type StorefrontE2ESuite struct {
	suite.Suite
	catalogPath string
	deps        *app.Dependencies
	server      *httptest.Server
	httpClient  *http.Client
}

func testConfig(baseURL, catalogPath string) *config.Config {
	var cfg config.Config
	cfg.HTTPServer.Port = 8080
	cfg.HTTPServer.Timeout.Read = time.Minute
	cfg.HTTPServer.Timeout.Write = time.Minute
	cfg.HTTPServer.Timeout.Idle = time.Minute
	cfg.HTTPServer.Timeout.ReadHeader = time.Minute
	cfg.Catalog.File.Path = catalogPath
	cfg.Auth.APIKey = apiKey
	cfg.Revalidate.Mode = config.RevalidateModeHTTP
	cfg.Revalidate.BaseURL = baseURL
	cfg.Revalidate.CircuitBreaker.ConsecutiveFailures = 5
	cfg.Revalidate.CircuitBreaker.OpenTimeout = time.Second
	return &cfg
}

func (s *StorefrontE2ESuite) SetupTest() {
	ctx := context.Background()
	s.catalogPath = filepath.Join(s.T().TempDir(), "products.json")
	require.NoError(s.T(), os.WriteFile(s.catalogPath, []byte(seedCatalog), 0o644))

	s.server = httptest.NewUnstartedServer(nil)
	baseURL := "http://" + s.server.Listener.Addr().String()

	cfg := testConfig(baseURL, s.catalogPath)
	require.NoError(s.T(), cfg.Validate())

	log := logger.Discard()
	productStore, err := app.NewStore(cfg.Catalog, nil)
	require.NoError(s.T(), err)
	pages, err := app.NewPageCache(cfg.PageCache, nil)
	require.NoError(s.T(), err)
	guard, err := app.NewGuard(ctx, cfg.Auth, log)
	require.NoError(s.T(), err)

	s.deps = app.SetupDependencies(app.Components{
		Store:   productStore,
		Pages:   pages,
		Guard:   guard,
		Trigger: app.NewTrigger(cfg.Revalidate, cfg.Auth.Header, pages),
	}, cfg, log)

	s.server.Config.Handler = app.SetupHttpHandler(s.deps)
	s.server.Start()
	s.httpClient = s.server.Client()
}

func (s *StorefrontE2ESuite) TearDownTest() {
	s.waitForInvalidations()
	s.server.Close()
}

func TestStorefrontE2E(t *testing.T) {
	suite.Run(t, new(StorefrontE2ESuite))
}

// --------------------------------------------------------------------------
// ---------------------------- helpers -------------------------------------
// --------------------------------------------------------------------------

func (s *StorefrontE2ESuite) request(method, path, key string, body any) *http.Response {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(s.T(), err)
	if key != "" {
		req.Header.Set(auth.DefaultHeader, key)
	}
	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *StorefrontE2ESuite) decode(resp *http.Response, v any) {
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(v))
}

func (s *StorefrontE2ESuite) waitForInvalidations() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(s.T(), s.deps.Dispatcher.Wait(ctx))
}

func (s *StorefrontE2ESuite) catalogOnDisk() []service.ProductDto {
	raw, err := os.ReadFile(s.catalogPath)
	require.NoError(s.T(), err)
	var products []service.ProductDto
	require.NoError(s.T(), json.Unmarshal(raw, &products))
	return products
}

// --------------------------------------------------------------------------
// ------------------------------ tests -------------------------------------
// --------------------------------------------------------------------------

func (s *StorefrontE2ESuite) TestListAndFilter() {
	resp := s.request(http.MethodGet, "/products", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("X-Request-Id"))
	var all []service.ProductDto
	s.decode(resp, &all)
	s.Require().Len(all, 2)
	s.Equal(service.OutOfStock, all[1].StockStatus)

	resp = s.request(http.MethodGet, "/products?category=Kitchen", "", nil)
	var kitchen []service.ProductDto
	s.decode(resp, &kitchen)
	s.Require().Len(kitchen, 1)
	s.Equal("coffee-mug", kitchen[0].Slug)

	resp = s.request(http.MethodGet, "/categories", "", nil)
	var categories []string
	s.decode(resp, &categories)
	s.Equal([]string{"All", "Electronics", "Kitchen"}, categories)
}

func (s *StorefrontE2ESuite) TestCreate_RejectsBadCredentialWithoutSideEffects() {
	body := map[string]any{"name": "Lamp", "slug": "lamp", "description": "LED", "price": 20, "category": "Home", "inventory": 3}

	resp := s.request(http.MethodPost, "/products", "wrong", body)

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Len(s.catalogOnDisk(), 2)
}

func (s *StorefrontE2ESuite) TestCreate_MissingFields() {
	resp := s.request(http.MethodPost, "/products", apiKey, map[string]any{"name": "Lamp"})

	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Len(s.catalogOnDisk(), 2)
}

func (s *StorefrontE2ESuite) TestCreate_PersistsAndServesPage() {
	body := map[string]any{"name": "Desk Lamp", "slug": "desk-lamp", "description": "LED", "price": "39.90", "category": "Home", "inventory": "15"}

	resp := s.request(http.MethodPost, "/products", apiKey, body)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created service.ProductDto
	s.decode(resp, &created)
	s.Equal("3", created.ID)
	s.Equal(39.9, created.Price)
	s.Equal(15, created.Inventory)
	s.Equal(service.LowStock, created.StockStatus)
	s.False(created.LastUpdated.IsZero())
	s.waitForInvalidations()

	onDisk := s.catalogOnDisk()
	s.Require().Len(onDisk, 3)
	s.Equal("desk-lamp", onDisk[2].Slug)

	first := s.request(http.MethodGet, "/products/desk-lamp", "", nil)
	second := s.request(http.MethodGet, "/products/desk-lamp", "", nil)
	s.Equal("MISS", first.Header.Get("X-Cache"))
	s.Equal("HIT", second.Header.Get("X-Cache"))
}

func (s *StorefrontE2ESuite) TestUpdate_InvalidatesCachedPage() {
	// given: the page is cached with the old inventory
	warm := s.request(http.MethodGet, "/products/coffee-mug", "", nil)
	s.Require().Equal(http.StatusOK, warm.StatusCode)
	s.Equal("HIT", s.request(http.MethodGet, "/products/coffee-mug", "", nil).Header.Get("X-Cache"))

	// when
	resp := s.request(http.MethodPut, "/products/update/2", apiKey, map[string]any{"inventory": 30, "id": "99"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var updated service.ProductDto
	s.decode(resp, &updated)
	s.waitForInvalidations()

	// then
	s.Equal("2", updated.ID)
	s.Equal(30, updated.Inventory)
	page := s.request(http.MethodGet, "/products/coffee-mug", "", nil)
	s.Equal("MISS", page.Header.Get("X-Cache"))
	var fresh service.ProductDto
	s.decode(page, &fresh)
	s.Equal(30, fresh.Inventory)
	s.Equal(service.InStock, fresh.StockStatus)
}

func (s *StorefrontE2ESuite) TestUpdate_SlugChangeInvalidatesOldPage() {
	s.request(http.MethodGet, "/products/coffee-mug", "", nil)

	resp := s.request(http.MethodPut, "/products/update/2", apiKey, map[string]any{"slug": "travel-mug"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.waitForInvalidations()

	s.Equal(http.StatusNotFound, s.request(http.MethodGet, "/products/coffee-mug", "", nil).StatusCode)
	s.Equal(http.StatusOK, s.request(http.MethodGet, "/products/travel-mug", "", nil).StatusCode)
}

func (s *StorefrontE2ESuite) TestUpdate_UnknownID() {
	resp := s.request(http.MethodPut, "/products/update/404", apiKey, map[string]any{"name": "x"})

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *StorefrontE2ESuite) TestRevalidate() {
	resp := s.request(http.MethodPost, "/revalidate?path=/products/coffee-mug", apiKey, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var ack struct {
		Invalidated bool   `json:"invalidated"`
		Path        string `json:"path"`
		Timestamp   int64  `json:"timestamp"`
	}
	s.decode(resp, &ack)
	s.True(ack.Invalidated)
	s.Equal("/products/coffee-mug", ack.Path)
	s.Positive(ack.Timestamp)

	s.Equal(http.StatusBadRequest, s.request(http.MethodPost, "/revalidate", apiKey, nil).StatusCode)
	s.Equal(http.StatusUnauthorized, s.request(http.MethodPost, "/revalidate?path=/", "", nil).StatusCode)
}

func (s *StorefrontE2ESuite) TestCartCheckout() {
	body := map[string]any{
		"customer": map[string]string{"name": "Ada", "email": "ada@example.com", "phone": "555", "address": "1 Main St"},
		"items": []map[string]any{
			{"product": map[string]any{"id": "1", "price": 10, "inventory": 45}, "quantity": 2},
			{"product": map[string]any{"id": "2", "price": 5, "inventory": 3}, "quantity": 1},
		},
	}

	resp := s.request(http.MethodPost, "/cart/checkout", "", body)

	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var receipt struct {
		OrderNumber string `json:"orderNumber"`
		Total       string `json:"total"`
	}
	s.decode(resp, &receipt)
	s.Contains(receipt.OrderNumber, "CC-")
	s.Equal("27.5", receipt.Total)
}
