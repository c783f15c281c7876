package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

// PasswordResetHandler manages forgot-password endpoints.
type PasswordResetHandler struct {
	auth *services.AuthService
}

// NewPasswordResetHandler constructs a PasswordResetHandler.
func NewPasswordResetHandler(auth *services.AuthService) *PasswordResetHandler {
	return &PasswordResetHandler{auth: auth}
}

type forgotPasswordRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// ForgotPassword texts a reset code to a registered phone.
func (h *PasswordResetHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	res, err := h.auth.RequestOTP(c.UserContext(), req.Phone, models.OTPPurposeReset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "reset code sent",
		"data":    res,
	})
}

type resetPasswordRequest struct {
	Phone       string `json:"phone" validate:"required,phone"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ResetPassword sets a new password once the reset code checks out.
func (h *PasswordResetHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.Phone, req.Code, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "password updated successfully",
	})
}
