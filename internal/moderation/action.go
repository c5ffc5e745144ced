// Package moderation holds the moderation ledger logic: the action lifecycle,
// filtering and statistics over the audit log, reporter accuracy and related
// report correlation. Everything here works on rows already loaded from the
// store and takes "now" explicitly.
package moderation

import (
	"errors"
	"strings"
	"time"

	"tunewave-backend/internal/models"
)

var (
	ErrAlreadyReversed        = errors.New("moderation action already reversed")
	ErrReversalReasonRequired = errors.New("reversal reason is required")
	ErrModeratorRequired      = errors.New("moderator id is required")
	ErrInvalidActionType      = errors.New("invalid action type")
	ErrInvalidReason          = errors.New("invalid reason code")
	ErrTargetRequired         = errors.New("target user id is required")
	ErrInvalidDuration        = errors.New("duration must be positive")
)

// IsReversed reports whether the action has been revoked.
func IsReversed(a models.ModerationAction) bool {
	return a.RevokedAt != nil
}

// IsSelfReversed reports whether the action was revoked by the moderator who issued it.
func IsSelfReversed(a models.ModerationAction) bool {
	return IsReversed(a) && a.RevokedBy != nil && *a.RevokedBy == a.ModeratorID
}

// IsPermanent is true for bans without an expiry.
func IsPermanent(a models.ModerationAction) bool {
	return a.ExpiresAt == nil && a.ActionType == models.ActionUserBanned
}

// IsExpired reports whether the action's expiry has passed at now. Actions
// without an expiry never expire.
func IsExpired(a models.ModerationAction, now time.Time) bool {
	if a.ExpiresAt == nil {
		return false
	}
	return !a.ExpiresAt.After(now)
}

// ActionInput describes a new moderation action.
type ActionInput struct {
	ModeratorID     string
	TargetUserID    string
	ActionType      models.ActionType
	Reason          models.ReasonCode
	TargetType      *string
	TargetID        *string
	DurationDays    *int
	Notes           string
	RelatedReportID *string
}

// NewAction validates in and builds the action record as of now.
func NewAction(in ActionInput, now time.Time) (models.ModerationAction, error) {
	if strings.TrimSpace(in.ModeratorID) == "" {
		return models.ModerationAction{}, ErrModeratorRequired
	}
	if strings.TrimSpace(in.TargetUserID) == "" {
		return models.ModerationAction{}, ErrTargetRequired
	}
	if !in.ActionType.Valid() {
		return models.ModerationAction{}, ErrInvalidActionType
	}
	if !in.Reason.Valid() {
		return models.ModerationAction{}, ErrInvalidReason
	}

	action := models.ModerationAction{
		ModeratorID:     in.ModeratorID,
		TargetUserID:    in.TargetUserID,
		ActionType:      in.ActionType,
		Reason:          in.Reason,
		TargetType:      in.TargetType,
		TargetID:        in.TargetID,
		Notes:           in.Notes,
		RelatedReportID: in.RelatedReportID,
		CreatedAt:       now.UTC(),
		Metadata:        models.JSONMap{},
	}

	if in.DurationDays != nil {
		if *in.DurationDays <= 0 {
			return models.ModerationAction{}, ErrInvalidDuration
		}
		days := *in.DurationDays
		expires := action.CreatedAt.Add(time.Duration(days) * 24 * time.Hour)
		action.DurationDays = &days
		action.ExpiresAt = &expires
	}

	return action, nil
}

// Reverse marks a as revoked by moderatorID. revoked_at, revoked_by and the
// reversal reason are always set together, and only once.
func Reverse(a *models.ModerationAction, moderatorID, reason string, now time.Time) error {
	if IsReversed(*a) {
		return ErrAlreadyReversed
	}
	if strings.TrimSpace(moderatorID) == "" {
		return ErrModeratorRequired
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReversalReasonRequired
	}

	at := now.UTC()
	by := moderatorID
	a.RevokedAt = &at
	a.RevokedBy = &by
	if a.Metadata == nil {
		a.Metadata = models.JSONMap{}
	}
	a.Metadata[models.MetaReversalReason] = reason
	return nil
}

// ReversalReason returns the recorded reason, or "" for a live action.
func ReversalReason(a models.ModerationAction) string {
	return a.Metadata.String(models.MetaReversalReason)
}

// Status is a display label for an action at now.
func Status(a models.ModerationAction, now time.Time) string {
	switch {
	case IsReversed(a):
		return "reversed"
	case IsPermanent(a):
		return "permanent"
	case IsExpired(a, now):
		return "expired"
	default:
		return "active"
	}
}
