package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/utils"
)

const identityContextKey = "currentIdentity"

// Identity is the caller resolved from the session token.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the token was issued through the admin flow.
func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

// Authenticate resolves the session from the cookie named cookieName, falling
// back to an Authorization bearer header. It never rejects a request; use
// RequireAuth or RequireAdmin for that.
func Authenticate(secret, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			token = bearerToken(c.Get(fiber.HeaderAuthorization))
		}
		if token == "" {
			return c.Next()
		}

		userID, role, err := utils.ParseToken(secret, token)
		if err == nil {
			c.Locals(identityContextKey, Identity{UserID: userID, Role: role})
		}
		return c.Next()
	}
}

// RequireAuth rejects requests without a valid session.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentIdentity(c); !ok {
			return apperr.Unauthenticated("authentication required")
		}
		return c.Next()
	}
}

// RoleLookup returns the role currently stored for a user.
type RoleLookup interface {
	Role(ctx context.Context, id uuid.UUID) (string, error)
}

// RequireAdmin rejects requests whose session was not issued to an admin, or
// whose account no longer holds the admin role.
func RequireAdmin(roles RoleLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return apperr.Unauthenticated("authentication required")
		}
		if !id.IsAdmin() {
			return apperr.Forbidden("administrator access required")
		}

		role, err := roles.Role(c.UserContext(), id.UserID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.Forbidden("administrator access required")
			}
			return err
		}
		if role != models.RoleAdmin {
			return apperr.Forbidden("administrator access required")
		}
		return c.Next()
	}
}

// CurrentIdentity extracts the authenticated caller from context.
func CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityContextKey).(Identity)
	return id, ok
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := CurrentIdentity(c)
	return id.UserID, ok
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
