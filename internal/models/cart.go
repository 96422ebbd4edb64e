package models

// CartItem is a single line of a cart. Name, price and image are a snapshot
// of the product at the time it was added; they are not re-synced if the
// catalog row changes later.
type CartItem struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url"`
	Quantity  int     `json:"quantity"`
}
