package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of a placed order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// PaymentMethod is one of the accepted checkout payment options.
type PaymentMethod string

const (
	PaymentMethodEMoney PaymentMethod = "e-money"
	PaymentMethodCash   PaymentMethod = "cash"
)

// Order is a placed order. Items are a point-in-time copy of the cart at
// submission time; subsequent cart mutations do not affect a placed order.
// Status and EmailSent are mutated only through the order repository's own
// update operations.
type Order struct {
	ID              uuid.UUID     `json:"-" db:"id"`
	OrderID         string        `json:"orderId" db:"order_id"`
	CustomerName    string        `json:"customerName" db:"customer_name"`
	CustomerEmail   string        `json:"customerEmail" db:"customer_email"`
	CustomerPhone   string        `json:"customerPhone" db:"customer_phone"`
	ShippingAddress string        `json:"shippingAddress" db:"shipping_address"`
	ShippingZipCode string        `json:"shippingZipCode" db:"shipping_zip_code"`
	ShippingCity    string        `json:"shippingCity" db:"shipping_city"`
	ShippingCountry string        `json:"shippingCountry" db:"shipping_country"`
	PaymentMethod   PaymentMethod `json:"paymentMethod" db:"payment_method"`
	Items           []CartItem    `json:"items"`
	Subtotal        int64         `json:"subtotal" db:"subtotal"`
	Shipping        int64         `json:"shipping" db:"shipping"`
	VAT             int64         `json:"vat" db:"vat"`
	GrandTotal      int64         `json:"grandTotal" db:"grand_total"`
	Status          OrderStatus   `json:"status" db:"status"`
	EmailSent       bool          `json:"emailSent" db:"email_sent"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
}
