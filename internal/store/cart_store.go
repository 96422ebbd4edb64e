package store

import (
	"sync"

	"tienda/internal/models"
)

// CartStore owns the line items of a single cart. Every operation is total:
// there are no error cases, and missing items make removals and quantity
// updates no-ops. Derived values are recomputed from the current items on
// every read.
type CartStore struct {
	mu        sync.RWMutex
	items     []models.CartItem
	listeners []func()
}

// NewCartStore creates an empty cart.
func NewCartStore() *CartStore {
	return &CartStore{}
}

// Subscribe registers a callback invoked after every mutation.
func (c *CartStore) Subscribe(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *CartStore) notify() {
	c.mu.RLock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// AddToCart adds one unit of the product. An existing line for the same
// product id gets its quantity incremented; the name/price snapshot taken
// when the line was first added is not refreshed.
func (c *CartStore) AddToCart(product models.Product) {
	c.mu.Lock()
	found := false
	for i := range c.items {
		if c.items[i].ProductID == product.ID {
			c.items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		c.items = append(c.items, models.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			ImageURL:  product.ImageURL,
			Quantity:  1,
		})
	}
	c.mu.Unlock()
	c.notify()
}

// RemoveFromCart deletes the line for the product id, if present. An absent
// product id leaves the cart unchanged and fires no notification.
func (c *CartStore) RemoveFromCart(productID int) {
	c.mu.Lock()
	removed := false
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			removed = true
			break
		}
	}
	c.mu.Unlock()
	if removed {
		c.notify()
	}
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line; an absent product id leaves the cart unchanged.
func (c *CartStore) UpdateQuantity(productID, quantity int) {
	if quantity <= 0 {
		c.RemoveFromCart(productID)
		return
	}

	c.mu.Lock()
	updated := false
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Quantity = quantity
			updated = true
			break
		}
	}
	c.mu.Unlock()
	if updated {
		c.notify()
	}
}

// Clear empties the cart unconditionally.
func (c *CartStore) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
	c.notify()
}

// Items returns a snapshot copy of the current lines.
func (c *CartStore) Items() []models.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]models.CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// Total is the sum of price times quantity over all lines.
func (c *CartStore) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total float64
	for _, item := range c.items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (c *CartStore) ItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var count int
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}
