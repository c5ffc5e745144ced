package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"

	"tunewave-backend/config"
	"tunewave-backend/internal/database"
	"tunewave-backend/internal/models"
	"tunewave-backend/internal/utils"
)

// initDataMaxAge is how long Mini App launch data stays valid.
const initDataMaxAge = time.Hour

// AuthHandler signs staff into the moderation dashboard.
type AuthHandler struct {
	users    database.ModerationRepository
	jwt      config.JWTConfig
	botToken string
	log      *zap.Logger
}

func NewAuthHandler(users database.ModerationRepository, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwt: cfg.JWT, botToken: cfg.Telegram.BotToken, log: log}
}

func (h *AuthHandler) issue(c *fiber.Ctx, user models.User) error {
	tokens, err := utils.CreateToken(user.ID, user.Role, h.jwt.Secret, h.jwt.AccessExpiry, h.jwt.RefreshExpiry, time.Now())
	if err != nil {
		h.log.Error("failed to generate tokens", zap.String("user_id", user.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not generate tokens"})
	}
	return c.JSON(fiber.Map{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

func canModerate(user models.User) bool {
	return user.IsStaff() && user.IsActive
}

// TelegramLogin authenticates a moderator opening the dashboard inside
// Telegram. The launch data arrives as "Authorization: tma <initData>".
func (h *AuthHandler) TelegramLogin(c *fiber.Ctx) error {
	authType, raw, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || authType != "tma" || raw == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "Missing Authorization header",
			"message": "Expected format: Authorization: tma <initData>",
		})
	}

	if err := initdata.Validate(raw, h.botToken, initDataMaxAge); err != nil {
		h.log.Info("init data validation failed", zap.String("ip", c.IP()), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Telegram data"})
	}
	parsed, err := initdata.Parse(raw)
	if err != nil || parsed.User.ID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User data missing in initData"})
	}

	user, err := h.users.GetUserByTelegramID(c.UserContext(), parsed.User.ID)
	if errors.Is(err, database.ErrNotFound) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a staff account"})
	}
	if err != nil {
		h.log.Error("staff lookup failed", zap.Int64("telegram_id", parsed.User.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	if !canModerate(user) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a staff account"})
	}

	h.log.Info("staff signed in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return h.issue(c, user)
}

// RefreshToken exchanges a refresh token for a new pair. The role is read
// again so a demoted moderator loses access at the next refresh.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	claims, err := utils.ParseToken(req.RefreshToken, h.jwt.Secret, utils.TokenRefresh)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid refresh token"})
	}

	user, err := h.users.GetUser(c.UserContext(), claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid refresh token"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	if !canModerate(user) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a staff account"})
	}
	return h.issue(c, user)
}
