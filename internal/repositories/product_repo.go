package repositories

import (
	"tienda/internal/models"
)

// ProductRepository defines the interface for catalog data access. The
// catalog is read-only through the API; Create exists for seeding.
type ProductRepository interface {
	List() ([]models.Product, error)
	GetByID(id int) (*models.Product, error)
	Create(product *models.Product) error
}
