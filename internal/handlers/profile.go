package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	users *services.UserService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// GetProfile returns authenticated user profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	user, err := h.users.Get(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"max=120"`
	Email string `json:"email" validate:"omitempty,email"`
}

// UpdateProfile updates the name or email. Empty fields are left as they are.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateProfile(c.UserContext(), userID, services.ProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "profile updated", "data": user})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword sets a password. Accounts without one may omit the current password.
func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	if err := h.users.ChangePassword(c.UserContext(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "password updated"})
}
