package repositories

import "tienda/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	List() ([]models.User, error)
	GetByID(id int) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	// GetByCredentials performs an exact (email, password) match, the way the
	// login query works in plain-text mode.
	GetByCredentials(email, password string) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	DeleteByID(id int) error
}
