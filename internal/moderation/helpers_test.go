package moderation

import (
	"time"

	"tunewave-backend/internal/models"
)

var now = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func intp(i int) *int { return &i }

func timep(t time.Time) *time.Time { return &t }

func actp(t models.ActionType) *models.ActionType { return &t }

func action(id, moderator string, created time.Time) models.ModerationAction {
	return models.ModerationAction{
		ID:           id,
		ModeratorID:  moderator,
		TargetUserID: "user-" + id,
		ActionType:   models.ActionUserWarned,
		Reason:       models.ReasonSpam,
		CreatedAt:    created,
	}
}

func reversed(a models.ModerationAction, by string, at time.Time) models.ModerationAction {
	a.RevokedAt = timep(at)
	a.RevokedBy = strp(by)
	a.Metadata = models.JSONMap{models.MetaReversalReason: "mistake"}
	return a
}

func report(id string, status models.ReportStatus, created time.Time) models.Report {
	return models.Report{
		ID:             id,
		ReportType:     models.ReportTrack,
		TargetID:       "track-1",
		ReportedUserID: "artist-1",
		ReporterID:     "reporter-1",
		Reason:         models.ReasonSpam,
		Status:         status,
		Priority:       3,
		CreatedAt:      created,
	}
}

func resolved(r models.Report, by string, after time.Duration, taken *models.ActionType) models.Report {
	r.Status = models.ReportResolved
	r.ReviewedBy = strp(by)
	r.ReviewedAt = timep(r.CreatedAt.Add(after))
	r.ActionTaken = taken
	return r
}
