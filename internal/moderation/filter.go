package moderation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tunewave-backend/internal/models"
)

// RecentReversalWindow bounds the "recently reversed" filter.
const RecentReversalWindow = 7 * 24 * time.Hour

// ReversalMode selects actions by reversal state. Only one mode can be
// active at a time.
type ReversalMode string

const (
	ReversalAll              ReversalMode = "all"
	ReversalReversed         ReversalMode = "reversed"
	ReversalNonReversed      ReversalMode = "non_reversed"
	ReversalRecentlyReversed ReversalMode = "recently_reversed"
)

func ParseReversalMode(s string) (ReversalMode, error) {
	switch m := ReversalMode(s); m {
	case "", ReversalAll:
		return ReversalAll, nil
	case ReversalReversed, ReversalNonReversed, ReversalRecentlyReversed:
		return m, nil
	}
	return "", fmt.Errorf("unknown reversal mode %q", s)
}

type ExpiryMode string

const (
	ExpiryAll        ExpiryMode = "all"
	ExpiryNonExpired ExpiryMode = "non_expired"
	ExpiryExpired    ExpiryMode = "expired"
)

func ParseExpiryMode(s string) (ExpiryMode, error) {
	switch m := ExpiryMode(s); m {
	case "", ExpiryAll:
		return ExpiryAll, nil
	case ExpiryNonExpired, ExpiryExpired:
		return m, nil
	}
	return "", fmt.Errorf("unknown expiry mode %q", s)
}

// LogFilter is the filter vocabulary of the moderation log. Every set field
// narrows the result; fields are never ORed.
type LogFilter struct {
	ActionType  models.ActionType
	SearchQuery string
	StartDate   *time.Time
	EndDate     *time.Time
	ModeratorID string
	Reversal    ReversalMode
	Expiry      ExpiryMode

	// Limit <= 0 returns every matching row.
	Limit  int
	Offset int
}

// Unpaged returns a copy of f without pagination.
func (f LogFilter) Unpaged() LogFilter {
	f.Limit = 0
	f.Offset = 0
	return f
}

// Page is one page of filtered actions plus the unpaginated match count.
type Page struct {
	Actions []models.ModerationAction `json:"actions"`
	Total   int                       `json:"total"`
}

// Matches reports whether a passes every predicate in f at now.
func Matches(a models.ModerationAction, f LogFilter, now time.Time) bool {
	if f.ActionType != "" && a.ActionType != f.ActionType {
		return false
	}
	if f.ModeratorID != "" && a.ModeratorID != f.ModeratorID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.SearchQuery)); q != "" {
		hit := strings.Contains(strings.ToLower(a.TargetUserID), q)
		if !hit && a.TargetID != nil {
			hit = strings.Contains(strings.ToLower(*a.TargetID), q)
		}
		if !hit {
			return false
		}
	}
	if f.StartDate != nil && a.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && a.CreatedAt.After(*f.EndDate) {
		return false
	}

	switch f.Reversal {
	case ReversalReversed:
		if !IsReversed(a) {
			return false
		}
	case ReversalNonReversed:
		if IsReversed(a) {
			return false
		}
	case ReversalRecentlyReversed:
		if !IsReversed(a) || a.RevokedAt.Before(now.Add(-RecentReversalWindow)) {
			return false
		}
	}

	switch f.Expiry {
	case ExpiryNonExpired:
		if IsExpired(a, now) {
			return false
		}
	case ExpiryExpired:
		if !IsExpired(a, now) {
			return false
		}
	}
	return true
}

// ApplyFilter filters actions, orders them newest first and cuts the page
// described by f. The input slice is not modified.
func ApplyFilter(actions []models.ModerationAction, f LogFilter, now time.Time) Page {
	matched := make([]models.ModerationAction, 0, len(actions))
	for _, a := range actions {
		if Matches(a, f, now) {
			matched = append(matched, a)
		}
	}
	SortNewestFirst(matched)

	total := len(matched)
	return Page{Actions: Paginate(matched, f.Limit, f.Offset), Total: total}
}

// SortNewestFirst orders actions by created_at descending, keeping input
// order for ties.
func SortNewestFirst(actions []models.ModerationAction) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].CreatedAt.After(actions[j].CreatedAt)
	})
}

// Paginate returns the window [offset, offset+limit) of s. limit <= 0 means no limit.
func Paginate[T any](s []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s) {
		return []T{}
	}
	end := len(s)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return s[offset:end]
}
