package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

const recentOrdersLimit = 5

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	stats  *services.StatsService
	orders *services.OrderService
	users  *services.UserService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(stats *services.StatsService, orders *services.OrderService, users *services.UserService) *AdminHandler {
	return &AdminHandler{stats: stats, orders: orders, users: users}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.stats.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// ListAllOrders returns all orders with pagination, filtering, and user info.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListAllOrders(c.UserContext(), services.OrderFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   pg,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns any order with its customer.
func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrderAdmin(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus moves an order to another status.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

type paymentRequest struct {
	Verified *bool `json:"payment_verified" validate:"required"`
}

// SetPaymentVerified marks an order's payment as checked or unchecked.
func (h *AdminHandler) SetPaymentVerified(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req paymentRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	order, err := h.orders.SetPaymentVerified(c.UserContext(), id, *req.Verified)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// RecentOrders returns the most recent 5 orders for the dashboard.
func (h *AdminHandler) RecentOrders(c *fiber.Ctx) error {
	orders, err := h.orders.RecentOrders(c.UserContext(), recentOrdersLimit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": orders})
}

// ListAllUsers returns all registered users with pagination and search.
func (h *AdminHandler) ListAllUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	users, total, err := h.users.List(c.UserContext(), c.Query("search"), pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       users,
		"pagination": pg.Meta(total),
	})
}

// GetUser returns one user.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// SetUserRole promotes or demotes a user.
func (h *AdminHandler) SetUserRole(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req roleRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.SetRole(c.UserContext(), actor, id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}
