package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"formhub-backend/internal/engine"
	"formhub-backend/internal/model"
)

// CallerMiddleware decodes the bearer token, when present, into a
// CallerIdentity on the request. Requests without a token proceed as
// anonymous — whether an anonymous caller may do anything is the permission
// evaluator's decision, not this middleware's. A token that is present but
// invalid is rejected outright.
func CallerMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			c.Locals("identity", model.CallerIdentity{})
			return c.Next()
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("identity", model.CallerIdentity{
			UserID: claims.Subject,
			Roles:  claims.Roles,
		})
		return c.Next()
	}
}
