package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"tienda/internal/database"
	"tienda/internal/handlers"
	"tienda/internal/middleware"
	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/services"
	"tienda/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp builds a Fiber app over a fresh in-memory SQLite database with
// the full route tree, the seeded catalog and the seeded admin account.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	// A named shared-cache database keeps the pool's connections on the
	// same in-memory database, isolated per test.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	require.NoError(t, database.SeedProducts(productRepo))

	sessions := store.NewSessionStore(userRepo, nil)
	require.NoError(t, sessions.SeedAdmin())
	carts := store.NewCartRegistry()

	authService := services.NewAuthService(sessions, jwtSecret, nil) // nil RabbitMQ client

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService)
	productHandler := handlers.NewProductHandler(productRepo)
	cartHandler := handlers.NewCartHandler(carts, productRepo)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")

	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterProtectedRoutes(protected)
	productHandler.RegisterRoutes(protected)
	cartHandler.RegisterRoutes(protected)

	admin := protected.Group("", middleware.AdminRequired())
	userHandler.RegisterRoutes(admin)

	return app
}

// doJSON performs a request with an optional JSON body and bearer token.
func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// login returns a token for the given credentials.
func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp map[string]string
	decodeBody(t, resp, &loginResp)
	require.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

// register creates an account and returns it.
func register(t *testing.T, app *fiber.App, name, email, password string) models.User {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registerResp struct {
		User models.User `json:"user"`
	}
	decodeBody(t, resp, &registerResp)
	return registerResp.User
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	user := register(t, app, "Ana", "ana@example.com", "password123")
	// The admin seed holds id 1.
	assert.Equal(t, 2, user.ID)
	assert.False(t, user.IsAdmin)

	// Duplicate registration conflicts.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "Impostor",
		"email":    "ana@example.com",
		"password": "other",
	}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Missing fields fail request validation.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "",
		"email":    "b@b.com",
		"password": "pw",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	token := login(t, app, "ana@example.com", "password123")

	// Wrong password is a generic authentication failure.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// /auth/me resolves the token back to the account.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/auth/me", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	decodeBody(t, resp, &me)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "ana@example.com", me.Email)
}

func TestProductEndpoints(t *testing.T) {
	app := setupApp(t)
	register(t, app, "Ana", "ana@example.com", "pw")
	token := login(t, app, "ana@example.com", "pw")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/products", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	decodeBody(t, resp, &products)
	assert.Len(t, products, 8)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/5", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var product models.Product
	decodeBody(t, resp, &product)
	assert.Equal(t, 5, product.ID)
	assert.Equal(t, "Smart Watch Series 8", product.Name)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/99", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestProductEndpointsWithoutAuth(t *testing.T) {
	app := setupApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/products", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/cart", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

type cartResponse struct {
	Items     []models.CartItem `json:"items"`
	Total     float64           `json:"total"`
	ItemCount int               `json:"item_count"`
}

func TestCartFlow(t *testing.T) {
	app := setupApp(t)
	register(t, app, "Ana", "ana@example.com", "pw")
	token := login(t, app, "ana@example.com", "pw")

	// Empty cart to start.
	resp := doJSON(t, app, http.MethodGet, "/api/v1/cart", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var cart cartResponse
	decodeBody(t, resp, &cart)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)

	// Adding the same product twice merges into one line.
	addItem := map[string]int{"product_id": 5}
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/items", addItem, token)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/items", addItem, token)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &cart)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.InDelta(t, 2*349.99, cart.Total, 0.0001)
	assert.Equal(t, 2, cart.ItemCount)

	// Unknown products cannot be added.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/items", map[string]int{"product_id": 99}, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Quantity update recomputes the totals.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/cart/items/5", map[string]int{"quantity": 3}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &cart)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.InDelta(t, 3*349.99, cart.Total, 0.0001)

	// Quantity zero removes the line.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/cart/items/5", map[string]int{"quantity": 0}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &cart)
	assert.Empty(t, cart.Items)

	// Clearing an already-empty cart succeeds.
	resp = doJSON(t, app, http.MethodDelete, "/api/v1/cart", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &cart)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.ItemCount)
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	app := setupApp(t)
	register(t, app, "Ana", "ana@example.com", "pw")
	register(t, app, "Ben", "ben@example.com", "pw")
	anaToken := login(t, app, "ana@example.com", "pw")
	benToken := login(t, app, "ben@example.com", "pw")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/items", map[string]int{"product_id": 1}, anaToken)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/cart", nil, benToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var cart cartResponse
	decodeBody(t, resp, &cart)
	assert.Empty(t, cart.Items)
}

func TestAdminUserManagement(t *testing.T) {
	app := setupApp(t)
	adminToken := login(t, app, "admin@admin.com", "admin123")

	// Listing includes the seed admin.
	resp := doJSON(t, app, http.MethodGet, "/api/v1/users", nil, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var users []models.User
	decodeBody(t, resp, &users)
	assert.Len(t, users, 1)
	assert.Equal(t, store.AdminEmail, users[0].Email)

	// Create, fetch, update, delete.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"name":     "Ben",
		"email":    "ben@example.com",
		"password": "pw",
		"is_admin": false,
	}, adminToken)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var addResp struct {
		User models.User `json:"user"`
	}
	decodeBody(t, resp, &addResp)
	assert.Equal(t, 2, addResp.User.ID)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/2", nil, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPut, "/api/v1/users/2", map[string]interface{}{
		"name":     "Ben Updated",
		"email":    "ben@example.com",
		"password": "pw2",
		"is_admin": true,
	}, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/2", nil, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.User
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Ben Updated", updated.Name)
	assert.True(t, updated.IsAdmin)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/users/2", nil, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/users/2", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminRoutesForbiddenForNonAdmins(t *testing.T) {
	app := setupApp(t)
	register(t, app, "Ana", "ana@example.com", "pw")
	token := login(t, app, "ana@example.com", "pw")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/users", nil, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/users/1", nil, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
