package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunewave-backend/internal/models"
	"tunewave-backend/internal/moderation"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedActions(t *testing.T, repo *MemoryRepository) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		a := &models.ModerationAction{
			ID:           fmt.Sprintf("a%d", i),
			ModeratorID:  []string{"m1", "m2"}[i%2],
			TargetUserID: fmt.Sprintf("u%d", i),
			ActionType:   models.ActionUserWarned,
			Reason:       models.ReasonSpam,
			CreatedAt:    now.Add(-time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.CreateAction(ctx, a))
	}
}

func TestMemoryFetchModerationLogs(t *testing.T) {
	repo := NewMemoryRepository()
	seedActions(t, repo)

	page, err := repo.FetchModerationLogs(context.Background(), moderation.LogFilter{ModeratorID: "m1", Limit: 1}, now)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Actions, 1)
	assert.Equal(t, "a0", page.Actions[0].ID)
}

func TestMemorySaveReversalOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedActions(t, repo)

	a, err := repo.GetAction(ctx, "a1")
	require.NoError(t, err)
	require.NoError(t, moderation.Reverse(&a, "m2", "mistake", now))
	require.NoError(t, repo.SaveReversal(ctx, a))

	stored, err := repo.GetAction(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, moderation.IsSelfReversed(stored))

	// a stale copy of the same action loses
	stale, _ := repo.GetAction(ctx, "a1")
	stale.RevokedBy = nil
	assert.ErrorIs(t, repo.SaveReversal(ctx, stale), moderation.ErrAlreadyReversed)

	_, err = repo.GetAction(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := repo.ReversalStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, moderation.ReversalSummary{Total: 4, Reversed: 1, SelfReversed: 1, ReversalRate: 25}, stats)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	a := &models.ModerationAction{ID: "a", ModeratorID: "m", TargetUserID: "u", Metadata: models.JSONMap{"k": "v"}}
	require.NoError(t, repo.CreateAction(ctx, a))

	got, err := repo.GetAction(ctx, "a")
	require.NoError(t, err)
	got.Metadata["k"] = "changed"

	again, err := repo.GetAction(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Metadata["k"])
}

func TestMemoryPendingReports(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for i, p := range []int{3, 1, 3, 2} {
		require.NoError(t, repo.CreateReport(ctx, &models.Report{
			ID:        fmt.Sprintf("r%d", i),
			Priority:  p,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.CreateReport(ctx, &models.Report{ID: "closed", Priority: 1, Status: models.ReportDismissed}))

	reports, total, err := repo.PendingReports(ctx, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	var got []string
	for _, r := range reports {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{"r1", "r3", "r0"}, got)
}

func TestMemoryResolveReport(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	r := &models.Report{ID: "r", ReporterID: "rep", Priority: 2}
	require.NoError(t, repo.CreateReport(ctx, r))

	r.Status = models.ReportResolved
	action := &models.ModerationAction{ModeratorID: "m", TargetUserID: "u", ActionType: models.ActionContentRemoved, Reason: models.ReasonSpam}
	require.NoError(t, repo.ResolveReport(ctx, r, action))
	assert.NotEmpty(t, action.ID)

	stored, err := repo.GetReport(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, stored.Status)

	actions, err := repo.ListActions(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, actions, 1)

	assert.ErrorIs(t, repo.ResolveReport(ctx, &models.Report{ID: "nope"}, nil), ErrNotFound)

	// a stale copy read while the report was still pending
	stale := &models.Report{ID: "r", ReporterID: "rep", Priority: 2, Status: models.ReportDismissed}
	second := &models.ModerationAction{ModeratorID: "m2", TargetUserID: "u", ActionType: models.ActionUserBanned, Reason: models.ReasonSpam}
	assert.ErrorIs(t, repo.ResolveReport(ctx, stale, second), moderation.ErrReportClosed)

	stored, err = repo.GetReport(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, stored.Status)
	actions, err = repo.ListActions(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestMemoryResolveReportAllowsUnderReview(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	r := &models.Report{ID: "r", ReporterID: "rep", Priority: 3}
	require.NoError(t, repo.CreateReport(ctx, r))

	r.Status = models.ReportUnderReview
	require.NoError(t, repo.ResolveReport(ctx, r, nil))
	r.Status = models.ReportResolved
	require.NoError(t, repo.ResolveReport(ctx, r, nil))
}

func TestGetEndpointURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000", getEndpointURL("localhost:9000", false))
	assert.Equal(t, "https://r2.example.com", getEndpointURL("r2.example.com", true))
	assert.Equal(t, "https://already.example.com", getEndpointURL("https://already.example.com", false))
}
