package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

// ReviewHandler manages customer testimonials.
type ReviewHandler struct {
	reviews *services.ReviewService
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type reviewRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone" validate:"max=32"`
	Email   string `json:"email" validate:"omitempty,email"`
	Comment string `json:"comment" validate:"required,max=2000"`
}

// SubmitReview stores a review awaiting moderation.
func (h *ReviewHandler) SubmitReview(c *fiber.Ctx) error {
	var req reviewRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	review, err := h.reviews.Submit(c.UserContext(), services.ReviewInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "thank you, your review will appear once approved",
		"data":    review,
	})
}

// ListApproved returns the reviews visible on the storefront.
func (h *ReviewHandler) ListApproved(c *fiber.Ctx) error {
	approved := true
	return h.list(c, &approved)
}

// ListAll returns reviews for moderation; ?approved narrows the list.
func (h *ReviewHandler) ListAll(c *fiber.Ctx) error {
	return h.list(c, queryBool(c, "approved"))
}

func (h *ReviewHandler) list(c *fiber.Ctx, approved *bool) error {
	pg := utils.ParsePagination(c)
	items, total, err := h.reviews.List(c.UserContext(), approved, pg)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items, "pagination": pg.Meta(total)})
}

type approvalRequest struct {
	Approved *bool `json:"approved"`
}

// SetApproval sets the approved flag, or toggles it when the body omits it.
func (h *ReviewHandler) SetApproval(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req approvalRequest
	if len(c.Body()) > 0 {
		if err := utils.ParseBody(c, &req); err != nil {
			return err
		}
	}

	review, err := h.reviews.SetApproval(c.UserContext(), id, req.Approved)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": review})
}

func (h *ReviewHandler) DeleteReview(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.reviews.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "review deleted"})
}
