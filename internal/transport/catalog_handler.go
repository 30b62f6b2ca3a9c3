package transport

import (
	"errors"
	"net/http"

	"audiophile-store/internal/catalog"
	"audiophile-store/internal/domain"
	"audiophile-store/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogHandler handles HTTP requests for product browsing
type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(c *catalog.Catalog, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: c,
		logger:  logger,
	}
}

// RegisterRoutes registers all product routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{slug}", h.GetBySlug)
		r.Get("/{slug}/related", h.GetRelated)
	})
}

// List returns all products, optionally filtered by category
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		middleware.RespondWithJSON(w, http.StatusOK, h.catalog.All())
		return
	}

	if !domain.ValidCategory(domain.Category(category)) {
		middleware.RespondWithError(w, http.StatusBadRequest, "unknown category")
		return
	}

	products := h.catalog.ByCategory(domain.Category(category))
	if products == nil {
		products = []domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// GetBySlug returns a single product by its slug
func (h *CatalogHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	product, err := h.catalog.BySlug(slug)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}

		h.logger.Error("Failed to look up product", zap.String("slug", slug), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to look up product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// GetRelated returns the products recommended alongside the given one
func (h *CatalogHandler) GetRelated(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	related, err := h.catalog.Related(slug)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}

		h.logger.Error("Failed to look up related products", zap.String("slug", slug), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to look up related products")
		return
	}

	if related == nil {
		related = []domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, related)
}
