package store

import (
	"tienda/internal/models"
	"tienda/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// CredentialScheme decides how passwords are stored and verified. The plain
// scheme keeps plain text, matching the original application; the bcrypt
// scheme is the production substitution behind the same login contract.
type CredentialScheme interface {
	// Hash transforms a password for storage.
	Hash(password string) (string, error)
	// Authenticate resolves the user for an email/password pair, or
	// repositories.ErrNotFound when they match no account.
	Authenticate(repo repositories.UserRepository, email, password string) (*models.User, error)
}

// PlainCredentials stores and compares passwords as plain text via an exact
// repository match. Unsuitable for any real deployment; kept because the
// application this reproduces worked that way.
type PlainCredentials struct{}

// Hash returns the password unchanged.
func (PlainCredentials) Hash(password string) (string, error) {
	return password, nil
}

// Authenticate matches the exact (email, password) pair.
func (PlainCredentials) Authenticate(repo repositories.UserRepository, email, password string) (*models.User, error) {
	return repo.GetByCredentials(email, password)
}

// BcryptCredentials stores salted bcrypt hashes and verifies by comparison.
type BcryptCredentials struct{}

// Hash produces a salted bcrypt hash of the password.
func (BcryptCredentials) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Authenticate looks the account up by email and compares the hash.
func (BcryptCredentials) Authenticate(repo repositories.UserRepository, email, password string) (*models.User, error) {
	user, err := repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}
