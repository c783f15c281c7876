package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

// CatalogHandler exposes category endpoints.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type categoryRequest struct {
	Name           string `json:"name" validate:"required,max=120"`
	Description    string `json:"description" validate:"max=2000"`
	Image          string `json:"image" validate:"omitempty,max=512"`
	HamperEligible bool   `json:"hamper_eligible"`
}

func (r categoryRequest) input() services.CategoryInput {
	return services.CategoryInput{
		Name:           r.Name,
		Description:    r.Description,
		Image:          r.Image,
		HamperEligible: r.HamperEligible,
	}
}

func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	items, total, err := h.catalog.ListCategories(c.UserContext(), pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": items, "pagination": pg.Meta(total)})
}

func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	item, err := h.catalog.GetCategory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	item, err := h.catalog.CreateCategory(c.UserContext(), req.input())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	item, err := h.catalog.UpdateCategory(c.UserContext(), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

// DeleteCategory refuses while products still reference the category.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteCategory(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "category deleted"})
}
