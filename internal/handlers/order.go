package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	Hamper        bool   `json:"hamper"`
	TransactionID string `json:"transaction_id" validate:"max=128"`
	Customization string `json:"customization" validate:"max=1000"`
}

// CreateOrder places an order from the authenticated user's cart.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	order, err := h.orders.PlaceOrder(c.UserContext(), userID, services.PlaceOrderInput{
		Hamper:        req.Hamper,
		TransactionID: req.TransactionID,
		Customization: req.Customization,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": order})
}

// ListOrders returns orders for authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListOrders(c.UserContext(), userID, c.Query("status"), pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns a single order for the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrder(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// CancelOrder cancels a pending order within the cancellation window.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.CancelOrder(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "order cancelled", "data": order})
}
