package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"audiophile-store/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	FindByEmail(ctx context.Context, email string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	MarkEmailSent(ctx context.Context, orderID string) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const base36Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateOrderID produces a human-readable order reference of the form
// ORD-<timestamp>-<suffix>, with the current unix milliseconds in upper-case
// base36 and a random six-character base36 suffix. The suffix keeps
// references unique when two orders land in the same millisecond.
func generateOrderID() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36Chars[rand.IntN(len(base36Chars))]
	}

	return "ORD-" + ts + "-" + string(suffix)
}

// Create inserts the order and its items in a single transaction and fills
// in the generated order reference on the passed order.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.OrderID == "" {
		order.OrderID = generateOrderID()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (
			id, order_id, customer_name, customer_email, customer_phone,
			shipping_address, shipping_zip_code, shipping_city, shipping_country,
			payment_method, subtotal, shipping, vat, grand_total,
			status, email_sent, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = tx.ExecContext(
		ctx,
		orderQuery,
		order.ID,
		order.OrderID,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.ShippingAddress,
		order.ShippingZipCode,
		order.ShippingCity,
		order.ShippingCountry,
		order.PaymentMethod,
		order.Subtotal,
		order.Shipping,
		order.VAT,
		order.GrandTotal,
		order.Status,
		order.EmailSent,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, slug, name, price, quantity, image, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for i, item := range order.Items {
		_, err = tx.ExecContext(
			ctx,
			itemQuery,
			order.ID,
			item.ID,
			item.Slug,
			item.Name,
			item.Price,
			item.Quantity,
			item.Image,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByOrderID retrieves an order and its items by the order reference
func (r *orderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `
		SELECT id, order_id, customer_name, customer_email, customer_phone,
		       shipping_address, shipping_zip_code, shipping_city, shipping_country,
		       payment_method, subtotal, shipping, vat, grand_total,
		       status, email_sent, created_at
		FROM orders
		WHERE order_id = $1
	`

	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID,
		&order.OrderID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&order.ShippingAddress,
		&order.ShippingZipCode,
		&order.ShippingCity,
		&order.ShippingCountry,
		&order.PaymentMethod,
		&order.Subtotal,
		&order.Shipping,
		&order.VAT,
		&order.GrandTotal,
		&order.Status,
		&order.EmailSent,
		&order.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	items, err := r.loadItems(ctx, order)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// FindByEmail retrieves all orders for a customer email, newest first
func (r *orderRepository) FindByEmail(ctx context.Context, email string) ([]*domain.Order, error) {
	query := `
		SELECT id, order_id, customer_name, customer_email, customer_phone,
		       shipping_address, shipping_zip_code, shipping_city, shipping_country,
		       payment_method, subtotal, shipping, vat, grand_total,
		       status, email_sent, created_at
		FROM orders
		WHERE customer_email = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order := &domain.Order{}
		err := rows.Scan(
			&order.ID,
			&order.OrderID,
			&order.CustomerName,
			&order.CustomerEmail,
			&order.CustomerPhone,
			&order.ShippingAddress,
			&order.ShippingZipCode,
			&order.ShippingCity,
			&order.ShippingCountry,
			&order.PaymentMethod,
			&order.Subtotal,
			&order.Shipping,
			&order.VAT,
			&order.GrandTotal,
			&order.Status,
			&order.EmailSent,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		items, err := r.loadItems(ctx, order)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}

	return orders, nil
}

// UpdateStatus transitions the order to the given status
func (r *orderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $2 WHERE order_id = $1`

	result, err := r.db.ExecContext(ctx, query, orderID, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// MarkEmailSent records that the confirmation email for the order went out
func (r *orderRepository) MarkEmailSent(ctx context.Context, orderID string) error {
	query := `UPDATE orders SET email_sent = TRUE WHERE order_id = $1`

	result, err := r.db.ExecContext(ctx, query, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// loadItems fetches the order's line items in their original cart order
func (r *orderRepository) loadItems(ctx context.Context, order *domain.Order) ([]domain.CartItem, error) {
	query := `
		SELECT product_id, slug, name, price, quantity, image
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		err := rows.Scan(
			&item.ID,
			&item.Slug,
			&item.Name,
			&item.Price,
			&item.Quantity,
			&item.Image,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}
