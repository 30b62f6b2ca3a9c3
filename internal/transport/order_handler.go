package transport

import (
	"errors"
	"net/http"

	"audiophile-store/internal/domain"
	"audiophile-store/internal/middleware"
	"audiophile-store/internal/repository"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdateStatusRequest represents the order status change payload
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles HTTP requests for placed orders
type OrderHandler struct {
	orders repository.OrderRepository
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders repository.OrderRepository, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.ListByEmail)
		r.Get("/{orderID}", h.GetByOrderID)
		r.Patch("/{orderID}/status", h.UpdateStatus)
	})
}

// GetByOrderID returns a single order by its order reference
func (h *OrderHandler) GetByOrderID(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.orders.FindByOrderID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}

		h.logger.Error("Failed to look up order", zap.String("order_id", orderID), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to look up order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// ListByEmail returns all orders placed with the given customer email,
// newest first
func (h *OrderHandler) ListByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	orders, err := h.orders.FindByEmail(r.Context(), email)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// UpdateStatus transitions an order to a new lifecycle status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Status update validation failed", zap.Error(err))

		if fields := middleware.FormatValidationErrors(err); len(fields) > 0 {
			middleware.RespondWithValidationErrors(w, fields)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := domain.OrderStatus(req.Status)
	if !domain.ValidOrderStatus(status) {
		middleware.RespondWithError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), orderID, status); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}

		h.logger.Error("Failed to update order status", zap.String("order_id", orderID), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order status")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{
		"orderId": orderID,
		"status":  string(status),
	})
}
