package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

// CartHandler manages the signed-in user's cart.
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// GetCart returns the cart; ?hamper=true limits it to hamper-eligible lines.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	cart, err := h.carts.GetCart(c.UserContext(), userID, c.QueryBool("hamper"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": cart})
}

type mutateCartRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1"`
	Action    string `json:"action" validate:"omitempty,oneof=increase decrease"`
	Hamper    bool   `json:"hamper"`
}

// MutateCart increases or decreases one product's quantity.
func (h *CartHandler) MutateCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req mutateCartRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return apperr.Validation("product_id is invalid")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Action == "" {
		req.Action = services.CartIncrease
	}

	cart, err := h.carts.MutateCart(c.UserContext(), userID, services.MutateCartInput{
		ProductID: productID,
		Quantity:  req.Quantity,
		Action:    req.Action,
		Hamper:    req.Hamper,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": cart})
}

// RemoveItem drops one product from the cart.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}

	cart, err := h.carts.RemoveItem(c.UserContext(), userID, productID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": cart})
}

// ClearCart empties the cart; ?scope=non-hamper keeps hamper-eligible lines.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	cart, err := h.carts.ClearCart(c.UserContext(), userID, c.Query("scope", services.ClearAll))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": cart})
}
