package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/store"
	"tienda/pkg/rabbitmq"

	"github.com/dgrijalva/jwt-go"
)

// AuthService fronts the session store for the HTTP layer: it issues and
// validates JWT tokens and publishes account lifecycle events. The account
// semantics themselves (validation, id assignment, duplicate rules) live in
// the session store.
type AuthService struct {
	sessions   *store.SessionStore
	mqClient   *rabbitmq.Client
	jwtSecret  []byte
	tokenDurat time.Duration
}

// NewAuthService creates a new AuthService. mqClient may be nil, in which
// case event publication is skipped.
func NewAuthService(sessions *store.SessionStore, jwtSecret string, mqClient *rabbitmq.Client) *AuthService {
	return &AuthService{
		sessions:   sessions,
		mqClient:   mqClient,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour, // Token valid for 24 hours
	}
}

// Login authenticates the credentials and returns a signed token. The token
// is built from the user returned by the session store, never from the shared
// session snapshot, so a concurrent login cannot swap the identity in between.
func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.sessions.Login(email, password)
	if err != nil {
		return "", err
	}
	return s.generateToken(user)
}

// Register creates a new account through the session store and publishes a
// user.registered event.
func (s *AuthService) Register(name, email, password string) (*models.User, error) {
	user, err := s.sessions.Register(name, email, password)
	if err != nil {
		return nil, err
	}
	s.publish(rabbitmq.NewEvent("user.registered", user.ID, user.Email))
	return user, nil
}

// AddUser is the administrative creation path; see SessionStore.AddUser.
func (s *AuthService) AddUser(name, email, password string, isAdmin bool) (*models.User, error) {
	user, err := s.sessions.AddUser(name, email, password, isAdmin)
	if err != nil {
		return nil, err
	}
	s.publish(rabbitmq.NewEvent("user.registered", user.ID, user.Email))
	return user, nil
}

// UpdateUser replaces the mutable fields of an existing account.
func (s *AuthService) UpdateUser(id int, name, email, password string, isAdmin bool) error {
	return s.sessions.UpdateUser(id, name, email, password, isAdmin)
}

// DeleteUser removes an account and publishes a user.deleted event when the
// account existed.
func (s *AuthService) DeleteUser(id int) error {
	user, err := s.sessions.GetUserByID(id)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if err := s.sessions.DeleteUser(id); err != nil {
		return err
	}
	if user != nil {
		s.publish(rabbitmq.NewEvent("user.deleted", user.ID, user.Email))
	}
	return nil
}

// GetUserByID looks an account up directly.
func (s *AuthService) GetUserByID(id int) (*models.User, error) {
	return s.sessions.GetUserByID(id)
}

// Users returns the full account collection.
func (s *AuthService) Users() ([]models.User, error) {
	return s.sessions.Users()
}

// generateToken signs an HS256 token carrying the account identity.
func (s *AuthService) generateToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"is_admin": user.IsAdmin,
		"exp":      time.Now().Add(s.tokenDurat).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// publish sends an account event when a client is configured, logging and
// swallowing failures so account operations never depend on the broker.
func (s *AuthService) publish(event rabbitmq.Event) {
	if s.mqClient == nil {
		return
	}
	if err := s.mqClient.PublishAccountEvent(event); err != nil {
		log.Printf("Warning: failed to publish %s event for user %d: %v", event.Type, event.UserID, err)
	}
}
