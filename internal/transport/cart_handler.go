package transport

import (
	"errors"
	"net/http"
	"strconv"

	"audiophile-store/internal/cart"
	"audiophile-store/internal/catalog"
	"audiophile-store/internal/domain"
	"audiophile-store/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cartOwnerHeader carries the client's cart identity. The server mints one
// on first contact and echoes it back; clients must persist and resend it.
const cartOwnerHeader = "X-Cart-ID"

// AddItemRequest represents the add-to-cart request payload
type AddItemRequest struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity"`
}

// UpdateQuantityRequest represents the quantity-change request payload
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse represents the cart state returned to the client
type CartResponse struct {
	Items      []domain.CartItem `json:"items"`
	IsOpen     bool              `json:"isOpen"`
	TotalItems int               `json:"totalItems"`
	TotalPrice int64             `json:"totalPrice"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	carts   *cart.Store
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *cart.Store, c *catalog.Catalog, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: c,
		logger:  logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{id}", h.UpdateQuantity)
		r.Delete("/items/{id}", h.RemoveItem)
		r.Post("/open", h.Open)
		r.Post("/close", h.Close)
	})
}

// ownerID resolves the cart owner from the request header, minting a fresh
// identity when none is sent, and always echoes it on the response.
func (h *CartHandler) ownerID(w http.ResponseWriter, r *http.Request) string {
	ownerID := r.Header.Get(cartOwnerHeader)
	if ownerID == "" {
		ownerID = uuid.New().String()
	}
	w.Header().Set(cartOwnerHeader, ownerID)
	return ownerID
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()

	items := h.carts.Items(ctx, ownerID)
	if items == nil {
		items = []domain.CartItem{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{
		Items:      items,
		IsOpen:     h.carts.IsOpen(ctx, ownerID),
		TotalItems: h.carts.TotalItems(ctx, ownerID),
		TotalPrice: h.carts.TotalPrice(ctx, ownerID),
	})
}

// Get returns the current cart state
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := h.ownerID(w, r)
	h.respondWithCart(w, r, ownerID)
}

// AddItem puts a catalog product into the cart, merging quantities when the
// product is already there
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ownerID := h.ownerID(w, r)

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add to cart validation failed", zap.Error(err))

		if fields := middleware.FormatValidationErrors(err); len(fields) > 0 {
			middleware.RespondWithValidationErrors(w, fields)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.ByID(req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}

		h.logger.Error("Failed to look up product", zap.Int64("product_id", req.ProductID), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to look up product")
		return
	}

	// The cart snapshots the price at add time; catalog prices are static so
	// this cannot drift, but the order pipeline depends on the snapshot.
	item := domain.CartItem{
		ID:    product.ID,
		Slug:  product.Slug,
		Name:  product.Name,
		Price: product.Price,
		Image: product.Image.Mobile,
	}

	h.carts.AddItem(r.Context(), ownerID, item, req.Quantity)

	h.respondWithCart(w, r, ownerID)
}

// UpdateQuantity sets an item's quantity; zero or below removes the item
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ownerID := h.ownerID(w, r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req UpdateQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Quantity update validation failed", zap.Error(err))

		if fields := middleware.FormatValidationErrors(err); len(fields) > 0 {
			middleware.RespondWithValidationErrors(w, fields)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.carts.UpdateQuantity(r.Context(), ownerID, id, req.Quantity)

	h.respondWithCart(w, r, ownerID)
}

// RemoveItem deletes an item from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ownerID := h.ownerID(w, r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	h.carts.RemoveItem(r.Context(), ownerID, id)

	h.respondWithCart(w, r, ownerID)
}

// Clear empties the cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ownerID := h.ownerID(w, r)

	h.carts.Clear(r.Context(), ownerID)

	h.respondWithCart(w, r, ownerID)
}

// Open marks the cart as visible
func (h *CartHandler) Open(w http.ResponseWriter, r *http.Request) {
	ownerID := h.ownerID(w, r)

	h.carts.Open(r.Context(), ownerID)

	h.respondWithCart(w, r, ownerID)
}

// Close marks the cart as hidden
func (h *CartHandler) Close(w http.ResponseWriter, r *http.Request) {
	ownerID := h.ownerID(w, r)

	h.carts.Close(r.Context(), ownerID)

	h.respondWithCart(w, r, ownerID)
}
