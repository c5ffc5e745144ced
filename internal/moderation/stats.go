package moderation

import "tunewave-backend/internal/models"

// ReversalSummary is the headline statistic of the moderation log.
type ReversalSummary struct {
	Total        int     `json:"total"`
	Reversed     int     `json:"reversed"`
	SelfReversed int     `json:"self_reversed"`
	ReversalRate float64 `json:"reversal_rate"`
}

// ReversalStats summarises reversals over actions, scoped only to
// moderatorID when it is non-empty. Column filters never apply here, so
// narrowing the visible table never moves the denominator.
func ReversalStats(actions []models.ModerationAction, moderatorID string) ReversalSummary {
	var s ReversalSummary
	for _, a := range actions {
		if moderatorID != "" && a.ModeratorID != moderatorID {
			continue
		}
		s.Total++
		if IsReversed(a) {
			s.Reversed++
		}
		if IsSelfReversed(a) {
			s.SelfReversed++
		}
	}
	s.ReversalRate = Percent(s.Reversed, s.Total)
	return s
}

// StatsScope reduces a log filter to the only field allowed to scope the
// reversal statistics.
func StatsScope(f LogFilter) string {
	return f.ModeratorID
}
