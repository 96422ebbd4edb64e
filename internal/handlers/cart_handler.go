package handlers

import (
	"errors"
	"fmt"
	"log"

	"tienda/internal/repositories"
	"tienda/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler serves the per-user carts. Each authenticated user gets its
// own CartStore from the registry.
type CartHandler struct {
	carts    *store.CartRegistry
	products repositories.ProductRepository
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *store.CartRegistry, products repositories.ProductRepository) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes. The router is expected to be
// gated by the auth middleware.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:productId", h.HandleUpdateQuantity)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

func (h *CartHandler) cartFor(c *fiber.Ctx) *store.CartStore {
	userID, _ := c.Locals("user_id").(int)
	return h.carts.ForUser(userID)
}

// cartResponse renders the cart with its derived values, recomputed on
// every request.
func cartResponse(cart *store.CartStore) fiber.Map {
	return fiber.Map{
		"items":      cart.Items(),
		"total":      cart.Total(),
		"item_count": cart.ItemCount(),
	}
}

// HandleGetCart returns the cart lines with total and item count.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return c.JSON(cartResponse(h.cartFor(c)))
}

// AddItemRequest represents the request body for adding a product.
type AddItemRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

// HandleAddItem adds one unit of a catalog product to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add item request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationMessages(err),
		})
	}

	product, err := h.products.GetByID(req.ProductID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Product with ID %d not found", req.ProductID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve product",
			"error":   err.Error(),
		})
	}

	cart := h.cartFor(c)
	cart.AddToCart(*product)
	return c.Status(fiber.StatusCreated).JSON(cartResponse(cart))
}

// UpdateQuantityRequest represents the request body for a quantity change.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// HandleUpdateQuantity sets the quantity of a cart line. A quantity of zero
// or less removes the line.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("productId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product id",
		})
	}

	var req UpdateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing update quantity request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	cart := h.cartFor(c)
	cart.UpdateQuantity(productID, req.Quantity)
	return c.JSON(cartResponse(cart))
}

// HandleRemoveItem deletes a cart line; removing an absent line is a no-op.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	productID, err := c.ParamsInt("productId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product id",
		})
	}

	cart := h.cartFor(c)
	cart.RemoveFromCart(productID)
	return c.JSON(cartResponse(cart))
}

// HandleClearCart empties the cart unconditionally.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	cart := h.cartFor(c)
	cart.Clear()
	return c.JSON(cartResponse(cart))
}
