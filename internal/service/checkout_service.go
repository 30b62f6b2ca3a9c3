package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"audiophile-store/internal/cart"
	"audiophile-store/internal/domain"
	"audiophile-store/internal/email"
	"audiophile-store/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrSubmitInFlight = errors.New("a checkout submission is already in flight")
)

// CheckoutForm is the user-entered billing, shipping, and payment data.
type CheckoutForm struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required"`
	Address       string `json:"address" validate:"required"`
	ZipCode       string `json:"zipCode" validate:"required"`
	City          string `json:"city" validate:"required"`
	Country       string `json:"country" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=e-money cash"`
	EMoneyNumber  string `json:"eMoneyNumber" validate:"required_if=PaymentMethod e-money"`
	EMoneyPin     string `json:"eMoneyPin" validate:"required_if=PaymentMethod e-money"`
}

// normalized returns a copy of the form with surrounding whitespace removed
// from every field, so that whitespace-only input fails the required rules.
func (f CheckoutForm) normalized() CheckoutForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.ZipCode = strings.TrimSpace(f.ZipCode)
	f.City = strings.TrimSpace(f.City)
	f.Country = strings.TrimSpace(f.Country)
	f.PaymentMethod = strings.TrimSpace(f.PaymentMethod)
	f.EMoneyNumber = strings.TrimSpace(f.EMoneyNumber)
	f.EMoneyPin = strings.TrimSpace(f.EMoneyPin)
	return f
}

// ValidationError carries the accumulated field-to-message map for a form
// that failed validation. All rules are checked; validation never stops at
// the first failure.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout validation failed: %d invalid field(s)", len(e.Fields))
}

var checkoutValidate = newCheckoutValidator()

func newCheckoutValidator() *validator.Validate {
	v := validator.New()
	// Report errors under the JSON field names the storefront uses.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldLabels = map[string]string{
	"name":          "Name",
	"email":         "Email",
	"phone":         "Phone",
	"address":       "Address",
	"zipCode":       "ZIP Code",
	"city":          "City",
	"country":       "Country",
	"paymentMethod": "Payment method",
	"eMoneyNumber":  "e-Money Number",
	"eMoneyPin":     "e-Money PIN",
}

// ValidateCheckoutForm checks every rule on the form and returns a
// field-to-message map; an empty map means the form is valid.
func ValidateCheckoutForm(form CheckoutForm) map[string]string {
	fields := make(map[string]string)

	err := checkoutValidate.Struct(form)
	if err == nil {
		return fields
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		fields["form"] = "Invalid form data"
		return fields
	}

	for _, fe := range validationErrors {
		label := fieldLabels[fe.Field()]
		if label == "" {
			label = fe.Field()
		}

		switch fe.Tag() {
		case "required", "required_if":
			fields[fe.Field()] = label + " is required"
		case "email":
			fields[fe.Field()] = "Invalid email format"
		case "oneof":
			fields[fe.Field()] = "Invalid payment method"
		default:
			fields[fe.Field()] = "Invalid value"
		}
	}

	return fields
}

// CheckoutService orchestrates order creation and confirmation notification
// for a validated cart.
type CheckoutService interface {
	Submit(ctx context.Context, ownerID string, form CheckoutForm) (*domain.Order, error)
	Close()
}

type checkoutService struct {
	carts   *cart.Store
	orders  repository.OrderRepository
	mailer  email.Mailer
	baseURL string
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// NewCheckoutService creates a checkout service. baseURL is the public
// storefront origin used to build absolute image URLs for emails.
func NewCheckoutService(
	carts *cart.Store,
	orders repository.OrderRepository,
	mailer email.Mailer,
	baseURL string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		carts:    carts,
		orders:   orders,
		mailer:   mailer,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Submit validates the form, creates the order from a snapshot of the
// owner's cart, fires a best-effort confirmation email, and clears the cart.
// A second submission for the same owner while one is in flight returns
// ErrSubmitInFlight without creating an order. On order-creation failure the
// cart is left untouched so the user can retry without re-entering data.
func (s *checkoutService) Submit(ctx context.Context, ownerID string, form CheckoutForm) (*domain.Order, error) {
	form = form.normalized()
	if fields := ValidateCheckoutForm(form); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if !s.begin(ownerID) {
		return nil, ErrSubmitInFlight
	}
	defer s.finish(ownerID)

	items := s.carts.Items(ctx, ownerID)
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var subtotal int64
	for _, item := range items {
		subtotal += item.Price * int64(item.Quantity)
	}

	// Totals are always recomputed here; client-supplied figures are never
	// trusted.
	totals := CalculateTotals(subtotal)

	order := &domain.Order{
		ID:              uuid.New(),
		CustomerName:    form.Name,
		CustomerEmail:   form.Email,
		CustomerPhone:   form.Phone,
		ShippingAddress: form.Address,
		ShippingZipCode: form.ZipCode,
		ShippingCity:    form.City,
		ShippingCountry: form.Country,
		PaymentMethod:   domain.PaymentMethod(form.PaymentMethod),
		Items:           items,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		VAT:             totals.VAT,
		GrandTotal:      totals.GrandTotal,
		Status:          domain.OrderStatusPending,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.OrderID),
		zap.Int64("grand_total", order.GrandTotal),
		zap.Int("items", len(order.Items)),
	)

	s.dispatchConfirmation(order)

	s.carts.Clear(ctx, ownerID)

	return order, nil
}

// Close waits for pending confirmation-email deliveries to finish.
func (s *checkoutService) Close() {
	s.wg.Wait()
}

func (s *checkoutService) begin(ownerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[ownerID]; busy {
		return false
	}
	s.inFlight[ownerID] = struct{}{}
	return true
}

func (s *checkoutService) finish(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, ownerID)
}

// dispatchConfirmation sends the confirmation email in the background. The
// order is already durably created: a delivery failure is logged and
// swallowed, never surfaced to the user and never retried.
func (s *checkoutService) dispatchConfirmation(order *domain.Order) {
	items := make([]email.Item, len(order.Items))
	for i, item := range order.Items {
		items[i] = email.Item{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    s.baseURL + item.Image,
		}
	}

	conf := email.OrderConfirmation{
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		OrderID:         order.OrderID,
		Items:           items,
		ShippingAddress: order.ShippingAddress,
		ShippingCity:    order.ShippingCity,
		ShippingZipCode: order.ShippingZipCode,
		ShippingCountry: order.ShippingCountry,
		Subtotal:        order.Subtotal,
		Shipping:        order.Shipping,
		VAT:             order.VAT,
		GrandTotal:      order.GrandTotal,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		messageID, err := s.mailer.SendOrderConfirmation(ctx, conf)
		if err != nil {
			s.logger.Error("Failed to send confirmation email",
				zap.String("order_id", conf.OrderID),
				zap.Error(err),
			)
			return
		}

		s.logger.Info("Confirmation email sent",
			zap.String("order_id", conf.OrderID),
			zap.String("message_id", messageID),
		)

		if err := s.orders.MarkEmailSent(ctx, conf.OrderID); err != nil {
			s.logger.Warn("Failed to mark confirmation email as sent",
				zap.String("order_id", conf.OrderID),
				zap.Error(err),
			)
		}
	}()
}
