package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"tunewave-backend/internal/models"
	"tunewave-backend/internal/utils"
)

const claimsKey = "claims"

// Protected requires a valid access token from the Authorization header.
// Websocket upgrades, which browsers cannot give headers, may pass it as the
// token query parameter instead.
func Protected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearer(c.Get(fiber.HeaderAuthorization))
		if raw == "" && websocket.IsWebSocketUpgrade(c) {
			raw = c.Query("token")
		}
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing or malformed JWT"})
		}
		claims, err := utils.ParseToken(raw, secret, utils.TokenAccess)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Claims returns the verified token claims stored by Protected.
func Claims(c *fiber.Ctx) *utils.Claims {
	claims, _ := c.Locals(claimsKey).(*utils.Claims)
	return claims
}

// RequireStaff lets moderators and admins through.
func RequireStaff(c *fiber.Ctx) error {
	claims := Claims(c)
	if claims == nil || !claims.IsStaff() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Moderator access required"})
	}
	return c.Next()
}

// RequireAdmin lets admins through.
func RequireAdmin(c *fiber.Ctx) error {
	claims := Claims(c)
	if claims == nil || claims.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}
	return c.Next()
}
