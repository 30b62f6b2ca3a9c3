package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"audiophile-store/internal/middleware"
	"audiophile-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutHandler handles HTTP requests for order submission
type CheckoutHandler struct {
	checkout service.CheckoutService
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		logger:   logger,
	}
}

// RegisterRoutes registers the checkout route, wrapped in the given
// rate-limiting middleware
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, rateLimit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Post("/api/checkout", h.Submit)
	})
}

// Submit validates the checkout form and places the order from the caller's
// cart
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Header.Get(cartOwnerHeader)
	if ownerID == "" {
		ownerID = uuid.New().String()
	}
	w.Header().Set(cartOwnerHeader, ownerID)

	var form service.CheckoutForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.logger.Debug("Checkout decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.checkout.Submit(r.Context(), ownerID, form)
	if err != nil {
		var validationErr *service.ValidationError
		switch {
		case errors.As(err, &validationErr):
			middleware.RespondWithValidationErrors(w, validationErr.Fields)
		case errors.Is(err, service.ErrEmptyCart):
			middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, service.ErrSubmitInFlight):
			middleware.RespondWithError(w, http.StatusConflict, "a checkout is already in progress")
		default:
			h.logger.Error("Checkout failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadGateway, "failed to place order")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}
