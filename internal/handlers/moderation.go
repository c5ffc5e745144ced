package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tunewave-backend/internal/database"
	"tunewave-backend/internal/middleware"
	"tunewave-backend/internal/models"
	"tunewave-backend/internal/moderation"
	"tunewave-backend/internal/services"
)

type ModerationHandler struct {
	svc *services.ModerationService
	log *zap.Logger
}

func NewModerationHandler(svc *services.ModerationService, log *zap.Logger) *ModerationHandler {
	return &ModerationHandler{svc: svc, log: log}
}

// fail maps service errors onto HTTP responses.
func (h *ModerationHandler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, moderation.ErrReversalReasonRequired),
		errors.Is(err, moderation.ErrModeratorRequired),
		errors.Is(err, moderation.ErrInvalidActionType),
		errors.Is(err, moderation.ErrInvalidReason),
		errors.Is(err, moderation.ErrTargetRequired),
		errors.Is(err, moderation.ErrInvalidDuration),
		errors.Is(err, moderation.ErrInvalidReviewStatus),
		errors.Is(err, moderation.ErrActionNeedsResolution):
		status = fiber.StatusBadRequest
	case errors.Is(err, database.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, moderation.ErrAlreadyReversed),
		errors.Is(err, moderation.ErrReportClosed):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrExportStorageDisabled):
		status = fiber.StatusServiceUnavailable
	}

	if status == fiber.StatusInternalServerError {
		h.log.Error("moderation request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (h *ModerationHandler) logFilter(c *fiber.Ctx) (moderation.LogFilter, error) {
	var req logFilterRequest
	if err := c.QueryParser(&req); err != nil {
		return moderation.LogFilter{}, badRequest("invalid query: %v", err)
	}
	return req.toFilter()
}

// GetLogs returns one page of the filtered action log with reversal stats.
func (h *ModerationHandler) GetLogs(c *fiber.Ctx) error {
	f, err := h.logFilter(c)
	if err != nil {
		return h.fail(c, err)
	}
	res, err := h.svc.FetchModerationLogs(c.UserContext(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"actions": res.Actions,
		"total":   res.Total,
		"stats":   res.Stats,
		"limit":   f.Limit,
		"offset":  f.Offset,
	})
}

// ExportLogs streams every matching action as CSV, or with store=true uploads
// the file and returns a download link.
func (h *ModerationHandler) ExportLogs(c *fiber.Ctx) error {
	f, err := h.logFilter(c)
	if err != nil {
		return h.fail(c, err)
	}

	if c.QueryBool("store") {
		url, err := h.svc.StoreActionLogExport(c.UserContext(), f)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(fiber.Map{"url": url})
	}

	data, err := h.svc.ExportActionLogsToCSV(c.UserContext(), f)
	if err != nil {
		return h.fail(c, err)
	}
	filename := fmt.Sprintf("moderation-logs-%s.csv", time.Now().UTC().Format(time.DateOnly))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}

// GetStats returns the reversal summary, for everyone or with mine=true for
// the calling moderator.
func (h *ModerationHandler) GetStats(c *fiber.Ctx) error {
	moderatorID := c.Query("moderator_id")
	if c.QueryBool("mine") {
		moderatorID = middleware.Claims(c).UserID
	}
	stats, err := h.svc.ReversalStats(c.UserContext(), moderatorID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(stats)
}

type applyActionRequest struct {
	TargetUserID    string  `json:"target_user_id"`
	ActionType      string  `json:"action_type"`
	Reason          string  `json:"reason"`
	TargetType      *string `json:"target_type"`
	TargetID        *string `json:"target_id"`
	DurationDays    *int    `json:"duration_days"`
	Notes           string  `json:"notes"`
	RelatedReportID *string `json:"related_report_id"`
}

func (h *ModerationHandler) ApplyAction(c *fiber.Ctx) error {
	var req applyActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	action, err := h.svc.ApplyAction(c.UserContext(), moderation.ActionInput{
		ModeratorID:     middleware.Claims(c).UserID,
		TargetUserID:    strings.TrimSpace(req.TargetUserID),
		ActionType:      models.ActionType(req.ActionType),
		Reason:          models.ReasonCode(req.Reason),
		TargetType:      req.TargetType,
		TargetID:        req.TargetID,
		DurationDays:    req.DurationDays,
		Notes:           req.Notes,
		RelatedReportID: req.RelatedReportID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(action)
}

func (h *ModerationHandler) ReverseAction(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	action, err := h.svc.ReverseAction(c.UserContext(), c.Params("id"), middleware.Claims(c).UserID, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Action reversed",
		"action":  action,
	})
}

// GetMetrics returns the moderation dashboard. Per-moderator performance is
// only included for admins.
func (h *ModerationHandler) GetMetrics(c *fiber.Ctx) error {
	start, err := parseDate(c.Query("start_date"), false)
	if err != nil {
		return h.fail(c, err)
	}
	end, err := parseDate(c.Query("end_date"), true)
	if err != nil {
		return h.fail(c, err)
	}
	if start != nil && end != nil && end.Before(*start) {
		return h.fail(c, badRequest("end_date is before start_date"))
	}

	claims := middleware.Claims(c)
	m, err := h.svc.CalculateModerationMetrics(c.UserContext(), moderation.MetricsOptions{
		StartDate:          start,
		EndDate:            end,
		IncludeSLA:         c.QueryBool("sla", false),
		IncludeTrends:      c.QueryBool("trends", false),
		IncludePerformance: claims != nil && claims.Role == models.RoleAdmin,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(m)
}

// GetModeratorPerformance returns per-moderator workload for the optional
// date range. The route is admin-only.
func (h *ModerationHandler) GetModeratorPerformance(c *fiber.Ctx) error {
	start, err := parseDate(c.Query("start_date"), false)
	if err != nil {
		return h.fail(c, err)
	}
	end, err := parseDate(c.Query("end_date"), true)
	if err != nil {
		return h.fail(c, err)
	}
	m, err := h.svc.CalculateModerationMetrics(c.UserContext(), moderation.MetricsOptions{
		StartDate:          start,
		EndDate:            end,
		IncludePerformance: true,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"moderator_performance": m.ModeratorPerformance})
}

// GetPendingReports returns the review queue, most urgent first.
func (h *ModerationHandler) GetPendingReports(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit, offset := pageParams(page, c.QueryInt("limit", defaultPageSize))

	reports, total, err := h.svc.ListPendingReports(c.UserContext(), limit, offset)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"reports": reports,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": (total + limit - 1) / limit,
		},
	})
}

// GetReportContext returns a report with reporter accuracy and related reports.
func (h *ModerationHandler) GetReportContext(c *fiber.Ctx) error {
	rc, err := h.svc.ReportContext(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(rc)
}

type reviewRequest struct {
	Status       string  `json:"status"`
	Notes        string  `json:"notes"`
	ActionType   *string `json:"action_type"`
	DurationDays *int    `json:"duration_days"`
}

func (h *ModerationHandler) ReviewReport(c *fiber.Ctx) error {
	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	d := moderation.ReviewDecision{
		Status:       models.ReportStatus(req.Status),
		Notes:        req.Notes,
		DurationDays: req.DurationDays,
	}
	if req.ActionType != nil && *req.ActionType != "" {
		t := models.ActionType(*req.ActionType)
		d.ActionType = &t
	}

	report, action, err := h.svc.ReviewReport(c.UserContext(), c.Params("id"), middleware.Claims(c).UserID, d)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Report reviewed successfully",
		"report":  report,
		"action":  action,
	})
}

// GetReporterAccuracy returns the reporter's accuracy badge, or null when
// the reporter has no reports.
func (h *ModerationHandler) GetReporterAccuracy(c *fiber.Ctx) error {
	acc, err := h.svc.CalculateReporterAccuracy(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"accuracy": moderation.NewAccuracyBadge(acc)})
}
