package cart

import (
	"context"
	"encoding/json"
	"sync"

	"audiophile-store/internal/domain"

	"go.uber.org/zap"
)

// Store maintains the authoritative shopping cart state per owner: the item
// list and the cart's open/closed visibility. Item lists are written through
// to Storage after every successful mutation and rehydrated from it on the
// owner's first access. Visibility is kept in memory only.
type Store struct {
	storage Storage
	logger  *zap.Logger

	mu    sync.Mutex
	carts map[string]*cartState
}

type cartState struct {
	items []domain.CartItem
	open  bool
}

// NewStore creates a cart store backed by the given storage.
func NewStore(storage Storage, logger *zap.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
		carts:   make(map[string]*cartState),
	}
}

// AddItem adds a product to the owner's cart. If an item with the same
// product id already exists its quantity is increased by quantity; otherwise
// a new item is appended. The cart becomes visible. No upper bound on
// quantity is enforced here.
func (s *Store) AddItem(ctx context.Context, ownerID string, item domain.CartItem, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx, ownerID)

	merged := false
	for i := range state.items {
		if state.items[i].ID == item.ID {
			state.items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		item.Quantity = quantity
		state.items = append(state.items, item)
	}
	state.open = true

	s.persist(ctx, ownerID, state)
}

// RemoveItem deletes the matching item from the owner's cart; it is a no-op
// when no item with that product id exists.
func (s *Store) RemoveItem(ctx context.Context, ownerID string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx, ownerID)
	state.items = removeByID(state.items, id)

	s.persist(ctx, ownerID, state)
}

// UpdateQuantity replaces the item's quantity. A quantity of zero or below
// removes the item.
func (s *Store) UpdateQuantity(ctx context.Context, ownerID string, id int64, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, ownerID, id)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx, ownerID)
	for i := range state.items {
		if state.items[i].ID == id {
			state.items[i].Quantity = quantity
			break
		}
	}

	s.persist(ctx, ownerID, state)
}

// Clear empties the owner's cart and closes its visibility.
func (s *Store) Clear(ctx context.Context, ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[ownerID] = &cartState{}

	if err := s.storage.Delete(ctx, ownerID); err != nil {
		s.logger.Warn("Failed to delete persisted cart",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
	}
}

// Open marks the owner's cart as visible.
func (s *Store) Open(ctx context.Context, ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx, ownerID).open = true
}

// Close marks the owner's cart as hidden.
func (s *Store) Close(ctx context.Context, ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx, ownerID).open = false
}

// IsOpen reports the cart's visibility state.
func (s *Store) IsOpen(ctx context.Context, ownerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, ownerID).open
}

// Items returns a snapshot copy of the owner's cart items in insertion order.
func (s *Store) Items(ctx context.Context, ownerID string) []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx, ownerID)
	out := make([]domain.CartItem, len(state.items))
	copy(out, state.items)
	return out
}

// TotalItems returns the sum of all quantities in the owner's cart.
func (s *Store) TotalItems(ctx context.Context, ownerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, item := range s.load(ctx, ownerID).items {
		total += item.Quantity
	}
	return total
}

// TotalPrice returns the sum of price times quantity over all items in the
// owner's cart.
func (s *Store) TotalPrice(ctx context.Context, ownerID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, item := range s.load(ctx, ownerID).items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// load returns the owner's in-memory cart state, rehydrating it from storage
// on first access. Malformed or unreadable stored data is treated as an
// empty cart; rehydration never fails the caller. Must be called with s.mu
// held.
func (s *Store) load(ctx context.Context, ownerID string) *cartState {
	if state, ok := s.carts[ownerID]; ok {
		return state
	}

	state := &cartState{}
	s.carts[ownerID] = state

	data, err := s.storage.Load(ctx, ownerID)
	if err != nil {
		s.logger.Warn("Failed to load persisted cart, starting empty",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		return state
	}
	if len(data) == 0 {
		return state
	}

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("Malformed persisted cart data, starting empty",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		return state
	}

	state.items = items
	return state
}

// persist writes the owner's item list through to storage. Persistence is
// best effort: a write failure is logged but does not undo the in-memory
// mutation. Must be called with s.mu held.
func (s *Store) persist(ctx context.Context, ownerID string, state *cartState) {
	data, err := json.Marshal(state.items)
	if err != nil {
		s.logger.Error("Failed to serialize cart",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		return
	}

	if err := s.storage.Save(ctx, ownerID, data); err != nil {
		s.logger.Warn("Failed to persist cart",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
	}
}

func removeByID(items []domain.CartItem, id int64) []domain.CartItem {
	out := items[:0]
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
