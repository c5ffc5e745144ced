package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tunewave-backend/internal/handlers"
	"tunewave-backend/internal/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Moderation *handlers.ModerationHandler
	Live       *handlers.LiveLogsHandler
}

func SetupRoutes(app *fiber.App, h Handlers, jwtSecret string) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// Health Check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "message": "Tunewave moderation API is running"})
	})

	// Staff sign-in from the Telegram Mini App
	api.Post("/auth/telegram", h.Auth.TelegramLogin)
	api.Post("/auth/refresh", h.Auth.RefreshToken)

	// Moderation (moderators and admins)
	mod := api.Group("/moderation", middleware.Protected(jwtSecret), middleware.RequireStaff)

	mod.Get("/logs", h.Moderation.GetLogs)
	mod.Get("/logs/export", h.Moderation.ExportLogs)
	mod.Get("/stats", h.Moderation.GetStats)
	mod.Get("/metrics", h.Moderation.GetMetrics)
	mod.Get("/metrics/moderators", middleware.RequireAdmin, h.Moderation.GetModeratorPerformance)

	mod.Post("/actions", h.Moderation.ApplyAction)
	mod.Post("/actions/:id/reverse", h.Moderation.ReverseAction)

	mod.Get("/reports/pending", h.Moderation.GetPendingReports)
	mod.Get("/reports/:id", h.Moderation.GetReportContext)
	mod.Put("/reports/:id/review", h.Moderation.ReviewReport)
	mod.Get("/reporters/:id/accuracy", h.Moderation.GetReporterAccuracy)

	// Live moderation log (token may be passed as ?token=)
	mod.Get("/ws", h.Live.Upgrade, websocket.New(h.Live.Handle))
}
