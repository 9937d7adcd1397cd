// Package rest exposes the catalog, page invalidation and cart over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cartcraft/storefront/internal/auth"
	perrors "github.com/cartcraft/storefront/internal/errors"
	"github.com/cartcraft/storefront/internal/revalidate"
	"github.com/cartcraft/storefront/internal/service"
	"github.com/cartcraft/storefront/pkg/server"
	"github.com/cartcraft/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// CacheHeader tells whether a page was served from the page cache.
const CacheHeader = "X-Cache"

// Revalidator schedules the invalidation of a page after a committed mutation.
type Revalidator interface {
	Dispatch(ctx context.Context, pagePath, credential string)
}

// Handler serves the storefront HTTP API.
type Handler struct {
	service     service.CatalogService
	pages       revalidate.PageCache
	revalidator Revalidator
	validate    *validator.Validate
	logger      *slog.Logger
	pageTTL     time.Duration
	now         func() time.Time
}

// NewHandler creates a Handler. A non-positive pageTTL falls back to revalidate.DefaultPageTTL.
func NewHandler(svc service.CatalogService, pages revalidate.PageCache, revalidator Revalidator, pageTTL time.Duration, logger *slog.Logger) *Handler {
	if pageTTL <= 0 {
		pageTTL = revalidate.DefaultPageTTL
	}
	return &Handler{
		service:     svc,
		pages:       pages,
		revalidator: revalidator,
		validate:    service.NewValidator(),
		logger:      logger.With("component", "api"),
		pageTTL:     pageTTL,
		now:         time.Now,
	}
}

// RegisterRoutes mounts every endpoint on r. Mutations and invalidation sit behind guard.
func (h *Handler) RegisterRoutes(r chi.Router, guard auth.Guard, credentialHeader string) {
	protected := auth.RequireCredential(guard, credentialHeader, h.logger)

	r.Get(server.HealthPath, h.HealthCheck)
	r.Get("/categories", h.Categories)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Get("/{slug}", h.FindBySlug)
		r.With(protected).Post("/", h.Create)
		r.With(protected).Put("/update/{id}", h.Update)
	})

	r.With(protected).Post("/revalidate", h.Revalidate)
	r.With(protected).Get("/inventory/stats", h.InventoryStats)

	r.Route("/cart", func(r chi.Router) {
		r.Post("/totals", h.CartTotals)
		r.Post("/checkout", h.Checkout)
	})
}

// FindAll lists products, optionally narrowed by ?q= and ?category=.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	filter := service.ProductFilter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	h.logger.DebugContext(r.Context(), "Received request to find all products", "query", filter.Query, "category", filter.Category)
	list, err := h.service.FindAll(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving categories", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, categories)
}

// InventoryStats reports catalog wide stock figures.
func (h *Handler) InventoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.InventoryStats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error computing inventory stats", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch inventory stats")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, stats)
}

// FindBySlug serves the product detail page, from the page cache when it holds a fresh copy.
func (h *Handler) FindBySlug(w http.ResponseWriter, r *http.Request) {
	slug, ok := web.PathParam(w, r, h.logger, "slug")
	if !ok {
		return
	}
	pagePath := revalidate.ProductPath(slug)

	page, hit, err := h.pages.Get(r.Context(), pagePath)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Page cache read failed", "path", pagePath, "error", err)
	}
	if hit {
		w.Header().Set(CacheHeader, "HIT")
		web.RespondRaw(w, http.StatusOK, page)
		return
	}

	found, err := h.service.FindBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			h.logger.WarnContext(r.Context(), "Product not found", "slug", slug)
			web.RespondError(w, h.logger, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Error retrieving product", "slug", slug, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch product")
		return
	}

	page, err = json.Marshal(found)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error encoding product page", "slug", slug, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch product")
		return
	}
	if err := h.pages.Set(r.Context(), pagePath, page, h.pageTTL); err != nil {
		h.logger.WarnContext(r.Context(), "Page cache write failed", "path", pagePath, "error", err)
	}
	w.Header().Set(CacheHeader, "MISS")
	web.RespondRaw(w, http.StatusOK, page)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto service.ProductCreateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateBody(w, r, dto, "Missing required fields") {
		return
	}

	created, err := h.service.Create(r.Context(), dto)
	if err != nil {
		if errors.Is(err, perrors.ErrInvalidProduct) {
			web.RespondError(w, h.logger, http.StatusBadRequest, "Missing required fields")
			return
		}
		h.logger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "slug", created.Slug)

	h.invalidate(r.Context(), created.Slug)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// Update merges the supplied fields into an existing product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathParam(w, r, h.logger, "id")
	if !ok {
		return
	}
	if _, err := h.service.FindByID(r.Context(), id); err != nil {
		h.respondUpdateError(w, r, id, err)
		return
	}

	var dto service.ProductUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateBody(w, r, dto, "Invalid product fields") {
		return
	}

	updated, err := h.service.Update(r.Context(), id, dto)
	if err != nil {
		h.respondUpdateError(w, r, id, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "slug", updated.Slug)

	h.invalidate(r.Context(), updated.Slug)
	if updated.SlugChanged() {
		h.invalidate(r.Context(), updated.PreviousSlug)
	}
	web.RespondJSON(w, h.logger, http.StatusOK, updated.ProductDto)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) respondUpdateError(w http.ResponseWriter, r *http.Request, id string, err error) {
	if errors.Is(err, perrors.ErrProductNotFound) {
		h.logger.WarnContext(r.Context(), "Product not found for update", "ID", id)
		web.RespondError(w, h.logger, http.StatusNotFound, "Product not found")
		return
	}
	h.logger.ErrorContext(r.Context(), "Error updating product", "ID", id, "error", err)
	web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to update product")
}

// invalidate hands the product page to the revalidator with the credential that authorized the request.
func (h *Handler) invalidate(ctx context.Context, slug string) {
	credential, _ := auth.CredentialFrom(ctx)
	h.revalidator.Dispatch(ctx, revalidate.ProductPath(slug), credential)
}

// validateBody runs the struct validator and writes a 400 with per-field rules on failure.
func (h *Handler) validateBody(w http.ResponseWriter, r *http.Request, body any, message string) bool {
	err := h.validate.Struct(body)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string, len(validationErrors))
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{
			"error":             message,
			"validation_errors": errorResponse,
		})
		return false
	}
	h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
	return false
}
