// Package service provides the catalog business logic on top of a ProductStore.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	perrors "github.com/cartcraft/storefront/internal/errors"
	"github.com/cartcraft/storefront/internal/events"
	"github.com/cartcraft/storefront/internal/revalidate"
	"github.com/cartcraft/storefront/internal/store"
	"github.com/cartcraft/storefront/pkg/messaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AllCategories is the pseudo category that disables category filtering.
const AllCategories = "All"

// CatalogService defines the methods for reading and mutating the catalog.
type CatalogService interface {
	// FindAll returns the products matching filter in catalog order.
	// Returns an empty slice if nothing matches.
	FindAll(ctx context.Context, filter ProductFilter) ([]ProductDto, error)

	// Categories returns AllCategories followed by every distinct category.
	Categories(ctx context.Context) ([]string, error)

	// FindBySlug returns ErrProductNotFound if no product has the slug.
	FindBySlug(ctx context.Context, slug string) (*ProductDto, error)

	// FindByID returns ErrProductNotFound if no product has the id.
	FindByID(ctx context.Context, id string) (*ProductDto, error)

	// Create persists a validated product.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// InventoryStats counts products, low and out of stock items, units and stock value.
	InventoryStats(ctx context.Context) (*InventoryStats, error)

	// Update merges the supplied fields into an existing product.
	// Returns ErrProductNotFound if the product does not exist and
	// ErrConcurrentUpdate if it vanished between lookup and write.
	Update(ctx context.Context, id string, product ProductUpdateDto) (*UpdatedProduct, error)
}

// Service implements CatalogService.
type Service struct {
	repository store.ProductStore
	publisher  messaging.Publisher
	logger     *slog.Logger
	mutations  metric.Int64Counter
}

var _ CatalogService = (*Service)(nil)

// NewService creates a new Service. A nil publisher disables change events.
func NewService(repo store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	mutations, err := otel.Meter("github.com/cartcraft/storefront/internal/service").Int64Counter(
		"storefront.catalog.mutations",
		metric.WithDescription("Committed product creates and updates"),
	)
	if err != nil {
		logger.Warn("Mutation counter unavailable", "error", err)
	}
	return &Service{
		repository: repo,
		publisher:  publisher,
		logger:     logger.With("component", "service"),
		mutations:  mutations,
	}
}

func (s *Service) FindAll(ctx context.Context, filter ProductFilter) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	category := strings.TrimSpace(filter.Category)

	result := make([]ProductDto, 0, len(products))
	for i := range products {
		p := &products[i]
		if category != "" && category != AllCategories && p.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		result = append(result, *toDto(p))
	}
	return result, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	seen := make(map[string]bool, len(products))
	categories := []string{AllCategories}
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}
	return categories, nil
}

func (s *Service) FindBySlug(ctx context.Context, slug string) (*ProductDto, error) {
	product, err := s.repository.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by slug %s: %w", slug, err)
	}
	return toDto(product), nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	return toDto(product), nil
}

func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	if product.Price == nil || product.Inventory == nil {
		return nil, fmt.Errorf("price and inventory are required: %w", perrors.ErrInvalidProduct)
	}
	created, err := s.repository.Create(ctx, toNewProduct(product))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.publish(ctx, created, events.ActionCreated, "")
	return toDto(created), nil
}

func (s *Service) Update(ctx context.Context, id string, product ProductUpdateDto) (*UpdatedProduct, error) {
	existing, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %s for update: %w", id, err)
	}
	updated, err := s.repository.Update(ctx, id, toPatch(product))
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			return nil, fmt.Errorf("product %s disappeared during update: %w", id, perrors.ErrConcurrentUpdate)
		}
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	s.publish(ctx, updated, events.ActionUpdated, existing.Slug)
	return &UpdatedProduct{ProductDto: *toDto(updated), PreviousSlug: existing.Slug}, nil
}

// publish announces a committed change. previousSlug is set when an update may have moved the page.
// Broker failures are logged and never fail the mutation.
func (s *Service) publish(ctx context.Context, p *store.Product, action, previousSlug string) {
	if s.mutations != nil {
		s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
	event := events.ProductChangedEvent{
		ProductID:  p.ID,
		Slug:       p.Slug,
		Action:     action,
		Path:       revalidate.ProductPath(p.Slug),
		OccurredAt: p.LastUpdated,
	}
	if previousSlug != "" && previousSlug != p.Slug {
		event.PreviousPath = revalidate.ProductPath(previousSlug)
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish product event", "subject", event.Subject(), "ID", p.ID, "error", err)
	}
}
