package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"audiophile-store/internal/catalog"
	"audiophile-store/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCatalogRouter(t *testing.T) chi.Router {
	t.Helper()

	c, err := catalog.New()
	require.NoError(t, err)

	router := chi.NewRouter()
	NewCatalogHandler(c, zap.NewNop()).RegisterRoutes(router)
	return router
}

func TestCatalogHandler_List(t *testing.T) {
	router := newCatalogRouter(t)

	req := httptest.NewRequest("GET", "/api/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var products []domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.NotEmpty(t, products)
}

func TestCatalogHandler_ListByCategory(t *testing.T) {
	router := newCatalogRouter(t)

	req := httptest.NewRequest("GET", "/api/products?category=speakers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var products []domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	require.NotEmpty(t, products)
	for _, p := range products {
		assert.Equal(t, domain.CategorySpeakers, p.Category)
	}
}

func TestCatalogHandler_ListUnknownCategory(t *testing.T) {
	router := newCatalogRouter(t)

	req := httptest.NewRequest("GET", "/api/products?category=gadgets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandler_GetBySlug(t *testing.T) {
	router := newCatalogRouter(t)

	req := httptest.NewRequest("GET", "/api/products/zx9-speaker", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var product domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, "ZX9 Speaker", product.Name)
}

func TestCatalogHandler_GetBySlugNotFound(t *testing.T) {
	router := newCatalogRouter(t)

	req := httptest.NewRequest("GET", "/api/products/no-such-product", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogHandler_GetRelated(t *testing.T) {
	router := newCatalogRouter(t)

	req := httptest.NewRequest("GET", "/api/products/zx9-speaker/related", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var related []domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &related))
	assert.NotEmpty(t, related)
}
