package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

// ProductHandler exposes product endpoints.
type ProductHandler struct {
	catalog *services.CatalogService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(catalog *services.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ListProducts returns paginated products with optional filters.
// ?category accepts repeated or comma-separated ids.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	categories, err := queryIDs(c, "category")
	if err != nil {
		return err
	}

	products, total, err := h.catalog.ListProducts(c.UserContext(), services.ProductFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Categories: categories,
		Featured:   queryBool(c, "featured"),
		SugarFree:  queryBool(c, "sugar_free"),
		Page:       pg,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       products,
		"pagination": pg.Meta(total),
	})
}

// GetProduct loads a product with its category.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	product, err := h.catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

type productRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Price       float64  `json:"price" validate:"gt=0"`
	Description string   `json:"description" validate:"required,max=4000"`
	CategoryID  string   `json:"category_id" validate:"required,uuid"`
	Images      []string `json:"images" validate:"max=10,dive,max=512"`
	Featured    bool     `json:"featured"`
	SugarFree   bool     `json:"sugar_free"`
}

func (r productRequest) input() (services.ProductInput, error) {
	categoryID, err := uuid.Parse(r.CategoryID)
	if err != nil {
		return services.ProductInput{}, apperr.Validation("category_id is invalid")
	}
	return services.ProductInput{
		Name:        r.Name,
		Price:       r.Price,
		Description: r.Description,
		CategoryID:  categoryID,
		Images:      r.Images,
		Featured:    r.Featured,
		SugarFree:   r.SugarFree,
	}, nil
}

// CreateProduct creates a product (admin).
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return err
	}

	product, err := h.catalog.CreateProduct(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct replaces a product's fields (admin).
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req productRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return err
	}

	product, err := h.catalog.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// DeleteProduct deletes a product and its cart lines (admin).
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "product deleted"})
}
