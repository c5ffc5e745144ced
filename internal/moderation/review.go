package moderation

import (
	"errors"
	"strings"
	"time"

	"tunewave-backend/internal/models"
)

var (
	ErrReportClosed          = errors.New("report already resolved or dismissed")
	ErrInvalidReviewStatus   = errors.New("review status must be under_review, resolved or dismissed")
	ErrActionNeedsResolution = errors.New("an action can only accompany a resolved report")
)

// ReviewDecision is a moderator's verdict on a report. Action, when set,
// becomes a moderation action against the reported user.
type ReviewDecision struct {
	Status       models.ReportStatus
	Notes        string
	ActionType   *models.ActionType
	DurationDays *int
}

// ApplyReview moves r to d.Status as reviewed by moderatorID. Closed
// reports cannot be reviewed again. ReviewedAt is only stamped when the
// report is closed, so resolution time measures creation to closure.
func ApplyReview(r *models.Report, moderatorID string, d ReviewDecision, now time.Time) error {
	if r.Status.Closed() {
		return ErrReportClosed
	}
	if strings.TrimSpace(moderatorID) == "" {
		return ErrModeratorRequired
	}
	switch d.Status {
	case models.ReportUnderReview, models.ReportResolved, models.ReportDismissed:
	default:
		return ErrInvalidReviewStatus
	}
	if d.ActionType != nil {
		if d.Status != models.ReportResolved {
			return ErrActionNeedsResolution
		}
		if !d.ActionType.Valid() {
			return ErrInvalidActionType
		}
	}

	by := moderatorID
	r.Status = d.Status
	r.ReviewedBy = &by
	r.ResolutionNotes = strings.TrimSpace(d.Notes)
	if d.Status.Closed() {
		at := now.UTC()
		r.ReviewedAt = &at
	}
	if d.ActionType != nil {
		t := *d.ActionType
		r.ActionTaken = &t
	}
	return nil
}

// ActionForReview builds the action input that results from resolving r
// with d. The reported user is the target and the report's reason carries
// over.
func ActionForReview(r models.Report, moderatorID string, d ReviewDecision) ActionInput {
	targetType := string(r.ReportType)
	targetID := r.TargetID
	reportID := r.ID
	in := ActionInput{
		ModeratorID:     moderatorID,
		TargetUserID:    r.ReportedUserID,
		Reason:          r.Reason,
		TargetType:      &targetType,
		TargetID:        &targetID,
		DurationDays:    d.DurationDays,
		Notes:           d.Notes,
		RelatedReportID: &reportID,
	}
	if d.ActionType != nil {
		in.ActionType = *d.ActionType
	}
	return in
}
