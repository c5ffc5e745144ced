package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tunewave-backend/internal/cache"
	"tunewave-backend/internal/database"
	"tunewave-backend/internal/middleware"
	"tunewave-backend/internal/models"
	"tunewave-backend/internal/queue"
	"tunewave-backend/internal/services"
	"tunewave-backend/internal/utils"
)

const testSecret = "handler-secret"

type testEnv struct {
	app  *fiber.App
	repo *database.MemoryRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := database.NewMemoryRepository()
	svc := services.NewModerationService(repo, cache.NewMemStore(cache.Options{Capacity: 100, TTL: time.Minute}), queue.NopPublisher{}, zap.NewNop())
	h := NewModerationHandler(svc, zap.NewNop())

	app := fiber.New()
	mod := app.Group("/moderation", middleware.Protected(testSecret), middleware.RequireStaff)
	mod.Get("/logs", h.GetLogs)
	mod.Get("/logs/export", h.ExportLogs)
	mod.Get("/stats", h.GetStats)
	mod.Get("/metrics", h.GetMetrics)
	mod.Get("/metrics/moderators", middleware.RequireAdmin, h.GetModeratorPerformance)
	mod.Post("/actions", h.ApplyAction)
	mod.Post("/actions/:id/reverse", h.ReverseAction)
	mod.Get("/reports/pending", h.GetPendingReports)
	mod.Get("/reports/:id", h.GetReportContext)
	mod.Put("/reports/:id/review", h.ReviewReport)
	mod.Get("/reporters/:id/accuracy", h.GetReporterAccuracy)
	return &testEnv{app: app, repo: repo}
}

func bearerFor(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	pair, err := utils.CreateToken(userID, role, testSecret, time.Hour, time.Hour, time.Now())
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, auth string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestApplyAndReverseAction(t *testing.T) {
	e := newTestEnv(t)
	mod := bearerFor(t, "mod-1", models.RoleModerator)

	resp, body := e.do(t, "POST", "/moderation/actions", mod, fiber.Map{
		"target_user_id": "u1",
		"action_type":    "user_suspended",
		"reason":         "harassment",
		"duration_days":  3,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var action models.ModerationAction
	require.NoError(t, json.Unmarshal(body, &action))
	assert.Equal(t, "mod-1", action.ModeratorID)
	require.NotNil(t, action.ExpiresAt)

	resp, _ = e.do(t, "POST", "/moderation/actions", mod, fiber.Map{
		"target_user_id": "u1", "action_type": "mute", "reason": "spam",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, "POST", "/moderation/actions/"+action.ID+"/reverse", mod, fiber.Map{"reason": ""})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, "POST", "/moderation/actions/"+action.ID+"/reverse", mod, fiber.Map{"reason": "appeal"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	resp, _ = e.do(t, "POST", "/moderation/actions/"+action.ID+"/reverse", mod, fiber.Map{"reason": "again"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, "POST", "/moderation/actions/nope/reverse", mod, fiber.Map{"reason": "x"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = e.do(t, "GET", "/moderation/stats?mine=true", mod, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.EqualValues(t, 1, stats["self_reversed"])
	assert.EqualValues(t, 100, stats["reversal_rate"])
}

func seedActions(t *testing.T, e *testEnv) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, typ := range []models.ActionType{models.ActionUserWarned, models.ActionUserWarned, models.ActionUserBanned} {
		require.NoError(t, e.repo.CreateAction(ctx, &models.ModerationAction{
			ModeratorID:  "mod-1",
			TargetUserID: "target",
			ActionType:   typ,
			Reason:       models.ReasonSpam,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestGetLogs(t *testing.T) {
	e := newTestEnv(t)
	seedActions(t, e)
	mod := bearerFor(t, "mod-1", models.RoleModerator)

	resp, body := e.do(t, "GET", "/moderation/logs?action_type=user_warned&limit=1", mod, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Actions []models.ModerationAction `json:"actions"`
		Total   int                       `json:"total"`
		Stats   struct {
			Total int `json:"total"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 2, out.Total)
	assert.Len(t, out.Actions, 1)
	assert.Equal(t, 3, out.Stats.Total)

	resp, _ = e.do(t, "GET", "/moderation/logs?reversal=sometimes", mod, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, "GET", "/moderation/logs?start_date=yesterday", mod, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, "GET", "/moderation/logs", bearerFor(t, "u", models.RoleUser), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestExportLogs(t *testing.T) {
	e := newTestEnv(t)
	seedActions(t, e)
	mod := bearerFor(t, "mod-1", models.RoleModerator)

	resp, body := e.do(t, "GET", "/moderation/logs/export?action_type=user_warned&limit=1", mod, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3, "header plus both warnings despite limit=1")

	resp, _ = e.do(t, "GET", "/moderation/logs/export?store=true", mod, nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetMetricsPerformanceIsAdminOnly(t *testing.T) {
	e := newTestEnv(t)
	seedActions(t, e)

	resp, body := e.do(t, "GET", "/moderation/metrics?sla=true", bearerFor(t, "mod-1", models.RoleModerator), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	assert.NotContains(t, m, "moderator_performance")
	assert.Contains(t, m, "sla_compliance")

	// SLA compliance is opt-in
	resp, body = e.do(t, "GET", "/moderation/metrics", bearerFor(t, "admin-1", models.RoleAdmin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	m = nil
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Contains(t, m, "moderator_performance")
	assert.NotContains(t, m, "sla_compliance")

	resp, _ = e.do(t, "GET", "/moderation/metrics?start_date=2025-02-01&end_date=2025-01-01", bearerFor(t, "admin-1", models.RoleAdmin), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetModeratorPerformance(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	reviewedAt := time.Now().Add(-time.Hour)
	reviewer := "mod-1"
	taken := models.ActionUserWarned
	require.NoError(t, e.repo.CreateReport(ctx, &models.Report{
		ID: "r1", ReportType: models.ReportPost, TargetID: "p1", ReportedUserID: "u1", ReporterID: "rep",
		Reason: models.ReasonSpam, Priority: 3, Status: models.ReportResolved,
		ReviewedBy: &reviewer, ReviewedAt: &reviewedAt, ActionTaken: &taken,
		CreatedAt: reviewedAt.Add(-2 * time.Hour),
	}))
	seedActions(t, e)

	resp, _ := e.do(t, "GET", "/moderation/metrics/moderators", bearerFor(t, "mod-1", models.RoleModerator), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := e.do(t, "GET", "/moderation/metrics/moderators", bearerFor(t, "admin-1", models.RoleAdmin), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Performance []struct {
			ModeratorID  string `json:"moderator_id"`
			ActionsCount int    `json:"actions_count"`
		} `json:"moderator_performance"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Performance, 1)
	assert.Equal(t, "mod-1", out.Performance[0].ModeratorID)
	assert.Equal(t, 3, out.Performance[0].ActionsCount)
}

func TestReviewReportFlow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.repo.CreateReport(ctx, &models.Report{
		ID: "r1", ReportType: models.ReportPost, TargetID: "p1", ReportedUserID: "spammer",
		ReporterID: "rep", Reason: models.ReasonSpam, Priority: 2,
	}))
	mod := bearerFor(t, "mod-1", models.RoleModerator)

	resp, body := e.do(t, "GET", "/moderation/reports/pending", mod, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"r1"`)

	resp, body = e.do(t, "PUT", "/moderation/reports/r1/review", mod, fiber.Map{
		"status": "resolved", "action_type": "content_removed", "notes": "ad spam",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Report models.Report            `json:"report"`
		Action *models.ModerationAction `json:"action"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, models.ReportResolved, out.Report.Status)
	require.NotNil(t, out.Action)
	assert.Equal(t, "spammer", out.Action.TargetUserID)

	resp, _ = e.do(t, "PUT", "/moderation/reports/r1/review", mod, fiber.Map{"status": "dismissed"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, "PUT", "/moderation/reports/missing/review", mod, fiber.Map{"status": "dismissed"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = e.do(t, "GET", "/moderation/reporters/rep/accuracy", mod, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"accuracy":{"total_reports":1,"accurate_reports":1,"accuracy_rate":100,"band":"high"}}`, string(body))

	resp, body = e.do(t, "GET", "/moderation/reporters/nobody/accuracy", mod, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"accuracy":null}`, string(body))

	resp, body = e.do(t, "GET", "/moderation/reports/r1", mod, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"reporter_accuracy"`)
}
