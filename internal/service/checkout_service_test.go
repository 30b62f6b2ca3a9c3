package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"audiophile-store/internal/cart"
	"audiophile-store/internal/domain"
	"audiophile-store/internal/email"
	"audiophile-store/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	// Importing go-redis starts a process-wide time-cache goroutine that
	// never exits; it is not a leak from these tests.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/internal/pool.startGlobalTimeCache.func1"),
	)
}

// In-memory cart storage for tests
type memoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{data: make(map[string][]byte)}
}

func (m *memoryStorage) Load(ctx context.Context, ownerID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[ownerID], nil
}

func (m *memoryStorage) Save(ctx context.Context, ownerID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[ownerID] = data
	return nil
}

func (m *memoryStorage) Delete(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, ownerID)
	return nil
}

// Mock order repository for tests
type mockOrderRepository struct {
	mu         sync.Mutex
	orders     map[string]*domain.Order
	createErr  error
	createHook func()
	emailSent  map[string]bool
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{
		orders:    make(map[string]*domain.Order),
		emailSent: make(map[string]bool),
	}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if m.createHook != nil {
		m.createHook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if order.OrderID == "" {
		order.OrderID = "ORD-TEST-" + time.Now().Format("150405.000000")
	}
	m.orders[order.OrderID] = order
	return nil
}

func (m *mockOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) FindByEmail(ctx context.Context, email string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, order := range m.orders {
		if order.CustomerEmail == email {
			out = append(out, order)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

func (m *mockOrderRepository) MarkEmailSent(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[orderID]; !ok {
		return repository.ErrOrderNotFound
	}
	m.emailSent[orderID] = true
	return nil
}

func (m *mockOrderRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mock mailer for tests
type mockMailer struct {
	mu      sync.Mutex
	sent    []email.OrderConfirmation
	sendErr error
}

func (m *mockMailer) SendOrderConfirmation(ctx context.Context, conf email.OrderConfirmation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, conf)
	return "<test-message-id@localhost>", nil
}

func (m *mockMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func validForm() CheckoutForm {
	return CheckoutForm{
		Name:          "Alexei Ward",
		Email:         "alexei@mail.com",
		Phone:         "+1 202-555-0136",
		Address:       "1137 Williams Avenue",
		ZipCode:       "10001",
		City:          "New York",
		Country:       "United States",
		PaymentMethod: "e-money",
		EMoneyNumber:  "238521993",
		EMoneyPin:     "6891",
	}
}

func newTestCartStore(t *testing.T) (*cart.Store, *memoryStorage) {
	t.Helper()
	storage := newMemoryStorage()
	return cart.NewStore(storage, zap.NewNop()), storage
}

func addTestItem(t *testing.T, carts *cart.Store, ownerID string, quantity int) {
	t.Helper()
	carts.AddItem(context.Background(), ownerID, domain.CartItem{
		ID:    4,
		Slug:  "xx99-mark-two-headphones",
		Name:  "XX99 Mark II",
		Price: 2999,
		Image: "/assets/cart/image-xx99-mark-two-headphones.jpg",
	}, quantity)
}

func TestCheckoutSubmit_CreatesOrderWithServerTotals(t *testing.T) {
	carts, _ := newTestCartStore(t)
	orders := newMockOrderRepository()
	mailer := &mockMailer{}
	checkout := NewCheckoutService(carts, orders, mailer, "http://localhost:3000/", zap.NewNop())
	defer checkout.Close()

	ownerID := "owner-1"
	addTestItem(t, carts, ownerID, 2)

	order, err := checkout.Submit(context.Background(), ownerID, validForm())
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, int64(5998), order.Subtotal)
	assert.Equal(t, ShippingCost, order.Shipping)
	assert.Equal(t, int64(1200), order.VAT)
	assert.Equal(t, int64(7248), order.GrandTotal)

	// The cart is cleared after a successful submission
	assert.Empty(t, carts.Items(context.Background(), ownerID))
	assert.False(t, carts.IsOpen(context.Background(), ownerID))
}

func TestCheckoutSubmit_ValidationCollectsAllErrors(t *testing.T) {
	carts, _ := newTestCartStore(t)
	orders := newMockOrderRepository()
	mailer := &mockMailer{}
	checkout := NewCheckoutService(carts, orders, mailer, "http://localhost:3000", zap.NewNop())
	defer checkout.Close()

	ownerID := "owner-2"
	addTestItem(t, carts, ownerID, 1)

	form := validForm()
	form.Name = "   "
	form.Email = "not-an-email"
	form.EMoneyNumber = ""
	form.EMoneyPin = ""

	_, err := checkout.Submit(context.Background(), ownerID, form)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	assert.Equal(t, "Name is required", validationErr.Fields["name"])
	assert.Equal(t, "Invalid email format", validationErr.Fields["email"])
	assert.Equal(t, "e-Money Number is required", validationErr.Fields["eMoneyNumber"])
	assert.Equal(t, "e-Money PIN is required", validationErr.Fields["eMoneyPin"])
	assert.Len(t, validationErr.Fields, 4)

	// Nothing was persisted and the cart is untouched
	assert.Equal(t, 0, orders.count())
	assert.Len(t, carts.Items(context.Background(), ownerID), 1)
}

func TestCheckoutSubmit_CashSkipsEMoneyFields(t *testing.T) {
	carts, _ := newTestCartStore(t)
	orders := newMockOrderRepository()
	mailer := &mockMailer{}
	checkout := NewCheckoutService(carts, orders, mailer, "http://localhost:3000", zap.NewNop())
	defer checkout.Close()

	ownerID := "owner-3"
	addTestItem(t, carts, ownerID, 1)

	form := validForm()
	form.PaymentMethod = "cash"
	form.EMoneyNumber = ""
	form.EMoneyPin = ""

	order, err := checkout.Submit(context.Background(), ownerID, form)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodCash, order.PaymentMethod)
}

func TestCheckoutSubmit_EmptyCart(t *testing.T) {
	carts, _ := newTestCartStore(t)
	orders := newMockOrderRepository()
	mailer := &mockMailer{}
	checkout := NewCheckoutService(carts, orders, mailer, "http://localhost:3000", zap.NewNop())
	defer checkout.Close()

	_, err := checkout.Submit(context.Background(), "owner-4", validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 0, orders.count())
}

func TestCheckoutSubmit_DoubleSubmitCreatesOneOrder(t *testing.T) {
	carts, _ := newTestCartStore(t)
	orders := newMockOrderRepository()
	mailer := &mockMailer{}
	checkout := NewCheckoutService(carts, orders, mailer, "http://localhost:3000", zap.NewNop())
	defer checkout.Close()

	ownerID := "owner-5"
	addTestItem(t, carts, ownerID, 1)

	// Block the first submission inside Create until the second one has been
	// rejected.
	firstInside := make(chan struct{})
	release := make(chan struct{})
	var hookOnce sync.Once
	orders.createHook = func() {
		hookOnce.Do(func() {
			close(firstInside)
			<-release
		})
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := checkout.Submit(context.Background(), ownerID, validForm())
		firstDone <- err
	}()

	<-firstInside

	_, err := checkout.Submit(context.Background(), ownerID, validForm())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-firstDone)

	assert.Equal(t, 1, orders.count())
}

func TestCheckoutSubmit_EmailFailureDoesNotFailOrder(t *testing.T) {
	carts, _ := newTestCartStore(t)
	orders := newMockOrderRepository()
	mailer := &mockMailer{sendErr: errors.New("smtp connection refused")}
	checkout := NewCheckoutService(carts, orders, mailer, "http://localhost:3000", zap.NewNop())

	ownerID := "owner-6"
	addTestItem(t, carts, ownerID, 1)

	order, err := checkout.Submit(context.Background(), ownerID, validForm())
	require.NoError(t, err)

	// Wait for the background delivery attempt to finish
	checkout.Close()

	assert.Equal(t, 1, orders.count())
	assert.False(t, orders.emailSent[order.OrderID])
	assert.Empty(t, carts.Items(context.Background(), ownerID))
}

func TestCheckoutSubmit_MarksEmailSentOnDelivery(t *testing.T) {
	carts, _ := newTestCartStore(t)
	orders := newMockOrderRepository()
	mailer := &mockMailer{}
	checkout := NewCheckoutService(carts, orders, mailer, "http://localhost:3000", zap.NewNop())

	ownerID := "owner-7"
	addTestItem(t, carts, ownerID, 1)

	order, err := checkout.Submit(context.Background(), ownerID, validForm())
	require.NoError(t, err)

	checkout.Close()

	require.Equal(t, 1, mailer.sentCount())
	sent := mailer.sent[0]
	assert.Equal(t, order.OrderID, sent.OrderID)
	assert.Equal(t, "alexei@mail.com", sent.CustomerEmail)
	assert.Equal(t, "http://localhost:3000/assets/cart/image-xx99-mark-two-headphones.jpg", sent.Items[0].Image)
	assert.True(t, orders.emailSent[order.OrderID])
}

func TestCheckoutSubmit_PersistenceFailureKeepsCart(t *testing.T) {
	carts, _ := newTestCartStore(t)
	orders := newMockOrderRepository()
	orders.createErr = errors.New("connection reset by peer")
	mailer := &mockMailer{}
	checkout := NewCheckoutService(carts, orders, mailer, "http://localhost:3000", zap.NewNop())
	defer checkout.Close()

	ownerID := "owner-8"
	addTestItem(t, carts, ownerID, 3)

	_, err := checkout.Submit(context.Background(), ownerID, validForm())
	require.Error(t, err)

	// The cart survives so the user can retry
	items := carts.Items(context.Background(), ownerID)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 0, mailer.sentCount())
}
