package middleware

import (
	"qbank/config"
	"qbank/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates the access token and stores its claims in
// the request locals for handlers downstream.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.ExtractClaims(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals("claims", claims)
		return c.Next()
	}
}

// RequireRole rejects requests whose token role is not in the allowed set.
// It must run after AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*utils.TokenClaims)
		if !ok {
			return utils.Unauthorized(c, "Unauthorized")
		}
		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return utils.Forbidden(c, "Insufficient permissions")
	}
}

// Claims returns the token claims stored by AuthMiddleware.
func Claims(c *fiber.Ctx) *utils.TokenClaims {
	claims, _ := c.Locals("claims").(*utils.TokenClaims)
	return claims
}
