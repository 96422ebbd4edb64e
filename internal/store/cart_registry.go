package store

import "sync"

// CartRegistry hands out one CartStore per user id, preserving the
// single-owner-per-store model when carts are reached over HTTP.
type CartRegistry struct {
	mu    sync.Mutex
	carts map[int]*CartStore
}

// NewCartRegistry creates an empty registry.
func NewCartRegistry() *CartRegistry {
	return &CartRegistry{
		carts: make(map[int]*CartStore),
	}
}

// ForUser returns the cart of the given user, creating it on first use.
func (r *CartRegistry) ForUser(userID int) *CartStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID]
	if !ok {
		cart = NewCartStore()
		r.carts[userID] = cart
	}
	return cart
}

// Drop discards the cart of the given user, if any.
func (r *CartRegistry) Drop(userID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
}
