package moderation

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"tunewave-backend/internal/models"
)

var csvHeader = []string{
	"id", "created_at", "moderator_id", "action_type", "reason",
	"target_user_id", "target_type", "target_id", "duration_days", "expires_at",
	"status", "revoked_at", "revoked_by", "reversal_reason",
}

// WriteActionsCSV renders one CSV row per action, in the order given.
func WriteActionsCSV(actions []models.ModerationAction, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range actions {
		if err := w.Write(csvRow(a, now)); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", a.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRow(a models.ModerationAction, now time.Time) []string {
	return []string{
		a.ID,
		formatTime(&a.CreatedAt),
		a.ModeratorID,
		string(a.ActionType),
		string(a.Reason),
		a.TargetUserID,
		deref(a.TargetType),
		deref(a.TargetID),
		formatInt(a.DurationDays),
		formatTime(a.ExpiresAt),
		Status(a, now),
		formatTime(a.RevokedAt),
		deref(a.RevokedBy),
		ReversalReason(a),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
