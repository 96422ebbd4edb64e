package models

import "time"

// Product represents a catalog entry. The catalog is read-only reference
// data: rows are seeded at startup and never modified through the API.
type Product struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(100)" validate:"required,min=3,max=100"`
	Description string    `json:"description" gorm:"type:varchar(500)" validate:"omitempty,max=500"`
	Price       float64   `json:"price" validate:"gte=0"`
	ImageURL    string    `json:"image_url" gorm:"type:varchar(255)"`
	Category    string    `json:"category" gorm:"type:varchar(100)"`
	Stock       int       `json:"stock" validate:"gte=0"`
	CreatedAt   time.Time `json:"created_at"`
}
