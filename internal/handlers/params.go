package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tunewave-backend/internal/models"
	"tunewave-backend/internal/moderation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// logFilterRequest is the wire form of a moderation log filter, shared by
// the query string and websocket messages.
type logFilterRequest struct {
	ActionType  string `query:"action_type" json:"action_type"`
	Search      string `query:"search" json:"search"`
	StartDate   string `query:"start_date" json:"start_date"`
	EndDate     string `query:"end_date" json:"end_date"`
	ModeratorID string `query:"moderator_id" json:"moderator_id"`
	Reversal    string `query:"reversal" json:"reversal"`
	Expiry      string `query:"expiry" json:"expiry"`
	Limit       int    `query:"limit" json:"limit"`
	Offset      int    `query:"offset" json:"offset"`
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (r logFilterRequest) toFilter() (moderation.LogFilter, error) {
	f := moderation.LogFilter{
		SearchQuery: strings.TrimSpace(r.Search),
		ModeratorID: strings.TrimSpace(r.ModeratorID),
		Limit:       clampLimit(r.Limit),
		Offset:      r.Offset,
	}
	if f.Offset < 0 {
		return f, badRequest("offset must not be negative")
	}
	if r.ActionType != "" {
		t := models.ActionType(r.ActionType)
		if !t.Valid() {
			return f, badRequest("unknown action type %q", r.ActionType)
		}
		f.ActionType = t
	}

	var err error
	if f.Reversal, err = moderation.ParseReversalMode(r.Reversal); err != nil {
		return f, badRequest("%v", err)
	}
	if f.Expiry, err = moderation.ParseExpiryMode(r.Expiry); err != nil {
		return f, badRequest("%v", err)
	}
	if f.StartDate, err = parseDate(r.StartDate, false); err != nil {
		return f, err
	}
	if f.EndDate, err = parseDate(r.EndDate, true); err != nil {
		return f, err
	}
	return f, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	}
	return limit
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the
// whole day, keeping the range inclusive.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, badRequest("invalid date %q, expected YYYY-MM-DD or RFC 3339", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// pageParams turns the page/limit query pair into limit and offset.
func pageParams(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	limit = clampLimit(limit)
	return limit, (page - 1) * limit
}
