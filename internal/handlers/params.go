package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/middleware"
)

// paramID parses a uuid route parameter.
func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid " + name)
	}
	return id, nil
}

// queryBool returns nil when the parameter is absent or not a boolean.
func queryBool(c *fiber.Ctx, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// queryIDs collects uuids from a repeated or comma-separated parameter.
func queryIDs(c *fiber.Ctx, name string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range c.Context().QueryArgs().PeekMulti(name) {
		for _, part := range strings.Split(string(raw), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, apperr.Validation("invalid " + name)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, apperr.Unauthenticated("authentication required")
	}
	return id, nil
}
