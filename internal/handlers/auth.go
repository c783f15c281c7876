package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/config"
	"github.com/example/bakehouse/internal/middleware"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/services"
	"github.com/example/bakehouse/internal/utils"
)

const signupTicketCookie = "signup_ticket"

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
	cfg  *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

type sendOTPRequest struct {
	Phone   string `json:"phone" validate:"required,phone"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=login signup"`
}

// SendOTP texts a login or signup code to the phone.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}
	if req.Purpose == "" {
		req.Purpose = models.OTPPurposeLogin
	}
	return h.sendOTP(c, req.Phone, req.Purpose)
}

// AdminSendOTP texts an admin login code. Only admin phones receive one.
func (h *AuthHandler) AdminSendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}
	return h.sendOTP(c, req.Phone, models.OTPPurposeAdmin)
}

func (h *AuthHandler) sendOTP(c *fiber.Ctx, phone, purpose string) error {
	res, err := h.auth.RequestOTP(c.UserContext(), phone, purpose)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "verification code sent",
		"data":    res,
	})
}

type verifyOTPRequest struct {
	Phone   string `json:"phone" validate:"required,phone"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=login signup"`
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// VerifyOTP logs in the phone's owner, or hands out a signup ticket when the
// phone is new and name and email were given.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}
	return h.verifyOTP(c, services.VerifyOTPInput{
		Phone:   req.Phone,
		Code:    req.Code,
		Purpose: req.Purpose,
		Name:    req.Name,
		Email:   req.Email,
	})
}

// AdminVerifyOTP issues an admin session.
func (h *AuthHandler) AdminVerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}
	return h.verifyOTP(c, services.VerifyOTPInput{
		Phone:   req.Phone,
		Code:    req.Code,
		Purpose: models.OTPPurposeAdmin,
	})
}

func (h *AuthHandler) verifyOTP(c *fiber.Ctx, in services.VerifyOTPInput) error {
	res, err := h.auth.VerifyOTP(c.UserContext(), in)
	if err != nil {
		return err
	}

	if res.Session != nil {
		h.setSession(c, res.Session)
		return c.JSON(fiber.Map{
			"success":    true,
			"registered": true,
			"data":       res.Session,
		})
	}

	h.setCookie(c, signupTicketCookie, res.SignupTicket, res.TicketExpiresAt)
	return c.JSON(fiber.Map{
		"success":    true,
		"registered": false,
		"data": fiber.Map{
			"signup_ticket": res.SignupTicket,
			"expires_at":    res.TicketExpiresAt,
		},
	})
}

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Ticket   string `json:"signup_ticket"`
}

// Signup creates the account for a phone verified by VerifyOTP.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	ticket := req.Ticket
	if ticket == "" {
		ticket = c.Cookies(signupTicketCookie)
	}

	session, err := h.auth.Signup(c.UserContext(), services.SignupInput{
		Ticket:   ticket,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	c.ClearCookie(signupTicketCookie)
	h.setSession(c, session)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": session})
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Login authenticates with email or phone and password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		return err
	}

	h.setSession(c, session)
	return c.JSON(fiber.Map{"success": true, "data": session})
}

type socialRequest struct {
	Provider string `json:"provider" validate:"required,oneof=google facebook"`
	Token    string `json:"token" validate:"required"`
}

// Social signs in with a Google ID token or a Facebook access token.
func (h *AuthHandler) Social(c *fiber.Ctx) error {
	var req socialRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.SocialLogin(c.UserContext(), req.Provider, req.Token)
	if err != nil {
		return err
	}

	h.setSession(c, session)
	return c.JSON(fiber.Map{"success": true, "data": session})
}

// Session returns the current caller.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperr.Unauthenticated("authentication required")
	}

	user, err := h.auth.CurrentUser(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":     user,
			"is_admin": id.IsAdmin(),
		},
	})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.setCookie(c, h.cfg.CookieName, "", time.Unix(0, 0))
	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

func (h *AuthHandler) setSession(c *fiber.Ctx, s *services.Session) {
	h.setCookie(c, h.cfg.CookieName, s.Token, s.ExpiresAt)
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, name, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
