package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/vitrina/internal/config"
	"github.com/example/vitrina/internal/utils"
)

const userContextKey = "currentUserID"

// RequireAuth validates JWT tokens and loads the authenticated user ID into context.
func RequireAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := bearerUserID(c, cfg.JWTSecret)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}

		c.Locals(userContextKey, userID)
		return c.Next()
	}
}

// OptionalAuth loads the user ID when a valid bearer token is present and
// never rejects the request. Guest checkout depends on this.
func OptionalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID, ok := bearerUserID(c, cfg.JWTSecret); ok {
			c.Locals(userContextKey, userID)
		}
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uint, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return 0, false
	}

	if id, ok := value.(uint); ok {
		return id, true
	}

	return 0, false
}

func bearerUserID(c *fiber.Ctx, secret string) (uint, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, false
	}

	userID, err := utils.ParseToken(secret, parts[1])
	if err != nil {
		return 0, false
	}

	return userID, true
}
