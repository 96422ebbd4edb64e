package services_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/services"
	"tienda/internal/store"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) List() ([]models.User, error) {
	args := m.Called()
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id int) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByCredentials(email, password string) (*models.User, error) {
	args := m.Called(email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteByID(id int) error {
	args := m.Called(id)
	return args.Error(0)
}

const testJWTSecret = "test_jwt_secret"

func newAuthService(repo repositories.UserRepository) *services.AuthService {
	sessions := store.NewSessionStore(repo, nil)
	return services.NewAuthService(sessions, testJWTSecret, nil)
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	user := &models.User{
		ID:       1,
		Name:     "Administrador",
		Email:    "admin@admin.com",
		Password: "admin123",
		IsAdmin:  true,
	}

	// Successful login issues a token carrying the account identity.
	mockRepo.On("GetByCredentials", "admin@admin.com", "admin123").Return(user, nil).Once()
	token, err := authService.Login("admin@admin.com", "admin123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.EqualValues(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Email, claims["email"])
	assert.Equal(t, true, claims["is_admin"])
	mockRepo.AssertExpectations(t)

	// Invalid credentials yield the generic error.
	mockRepo.On("GetByCredentials", "x@x.com", "wrong").Return(nil, repositories.ErrNotFound).Once()
	_, err = authService.Login("x@x.com", "wrong")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ConcurrentLoginsKeepTokenIdentity(t *testing.T) {
	repo := repositories.NewMemoryUserRepository()
	sessions := store.NewSessionStore(repo, nil)
	authService := services.NewAuthService(sessions, testJWTSecret, nil)

	accounts := []struct{ name, email, password string }{
		{"Ana", "ana@example.com", "pw-ana"},
		{"Ben", "ben@example.com", "pw-ben"},
	}
	for _, a := range accounts {
		_, err := sessions.AddUser(a.name, a.email, a.password, false)
		require.NoError(t, err)
	}

	// Interleaved logins for different accounts must each get a token for
	// the account they authenticated, not whichever login finished last.
	const rounds = 50
	var wg sync.WaitGroup
	for _, a := range accounts {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				token, err := authService.Login(a.email, a.password)
				if !assert.NoError(t, err) {
					return
				}
				claims, err := authService.ValidateToken(token)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, a.email, claims["email"])
			}
		}()
	}
	wg.Wait()
}

func TestAuthService_Register(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	// Successful registration: email is free, id is assigned from the
	// current collection.
	mockRepo.On("GetByEmail", "ana@example.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("List").Return([]models.User{{ID: 3}}, nil).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

	user, err := authService.Register("Ana", "ana@example.com", "pw1")
	assert.NoError(t, err)
	assert.Equal(t, 4, user.ID)
	assert.False(t, user.IsAdmin)
	mockRepo.AssertExpectations(t)

	// Duplicate email is rejected before any write.
	mockRepo.On("GetByEmail", "ana@example.com").Return(user, nil).Once()
	_, err = authService.Register("Impostor", "ana@example.com", "pw2")
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
	mockRepo.AssertExpectations(t)

	// Empty fields are rejected before the repository is consulted.
	_, err = authService.Register("", "a@a.com", "pw")
	assert.ErrorIs(t, err, store.ErrValidation)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_DeleteUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	user := &models.User{ID: 2, Email: "ben@example.com"}
	mockRepo.On("GetByID", 2).Return(user, nil).Once()
	mockRepo.On("DeleteByID", 2).Return(nil).Once()
	assert.NoError(t, authService.DeleteUser(2))
	mockRepo.AssertExpectations(t)

	// Missing ids stay silent no-ops through the service as well.
	mockRepo.On("GetByID", 99).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("DeleteByID", 99).Return(repositories.ErrNotFound).Once()
	assert.NoError(t, authService.DeleteUser(99))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)

	// Valid token round-trips its claims.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  1,
		"email":    "admin@admin.com",
		"is_admin": true,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.EqualValues(t, 1, claims["user_id"])
	assert.Equal(t, "admin@admin.com", claims["email"])

	// Garbage is rejected.
	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	// Expired tokens are rejected.
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}
