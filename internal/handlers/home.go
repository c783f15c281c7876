package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

// HomeHandler manages the homepage highlights.
type HomeHandler struct {
	home *services.HomeService
}

// NewHomeHandler constructs HomeHandler.
func NewHomeHandler(home *services.HomeService) *HomeHandler {
	return &HomeHandler{home: home}
}

// GetHome returns the featured categories and products in display order.
func (h *HomeHandler) GetHome(c *fiber.Ctx) error {
	view, err := h.home.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

type homeRequest struct {
	CategoryIDs []string `json:"featured_category_ids" validate:"dive,uuid"`
	ProductIDs  []string `json:"featured_product_ids" validate:"dive,uuid"`
}

// UpdateHome replaces the homepage highlights (admin).
func (h *HomeHandler) UpdateHome(c *fiber.Ctx) error {
	var req homeRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}
	categories, err := parseIDs(req.CategoryIDs, "featured_category_ids")
	if err != nil {
		return err
	}
	products, err := parseIDs(req.ProductIDs, "featured_product_ids")
	if err != nil {
		return err
	}

	view, err := h.home.Update(c.UserContext(), services.HomeInput{
		CategoryIDs: categories,
		ProductIDs:  products,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

func parseIDs(raw []string, field string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, apperr.Validation(field + " contains an invalid id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
