package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const claimsKey = "claims"

// Middleware validates the bearer token and stores the claims on the request.
// Failures are returned as *fiber.Error so each app's error handler renders
// them in its own wire format.
func Middleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := bearerClaims(c, secret)
		if err != nil {
			return err
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// RequireAlias rejects gateway tokens minted for a different connection alias.
func RequireAlias(alias string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing auth token")
		}
		if !strings.EqualFold(claims.Alias, alias) {
			return fiber.NewError(fiber.StatusForbidden, "Token is not valid for connection "+alias)
		}
		return c.Next()
	}
}

// RequireRole checks the authenticated caller carries role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing auth token")
		}
		if !claims.HasRole(role) {
			return fiber.NewError(fiber.StatusForbidden, "Role "+role+" required")
		}
		return c.Next()
	}
}

// GetClaims extracts the claims from a Fiber context.
func GetClaims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(claimsKey).(*Claims)
	return claims
}

func bearerClaims(c *fiber.Ctx, secret string) (*Claims, error) {
	header := c.Get("Authorization")
	if header == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Missing auth token")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid auth header format")
	}

	claims, err := ParseToken(parts[1], secret)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}
	return claims, nil
}
