package moderation

import (
	"time"

	"tunewave-backend/internal/models"
)

// SLATargets maps report priority to the maximum acceptable resolution time.
var SLATargets = map[int]time.Duration{
	1: 2 * time.Hour,
	2: 8 * time.Hour,
	3: 24 * time.Hour,
	4: 48 * time.Hour,
	5: 72 * time.Hour,
}

// ResolutionTime is the time between a report's creation and its resolution.
// ok is false for reports that are not resolved.
func ResolutionTime(r models.Report) (d time.Duration, ok bool) {
	if r.Status != models.ReportResolved || r.ReviewedAt == nil {
		return 0, false
	}
	return r.ReviewedAt.Sub(r.CreatedAt), true
}

// WithinSLA reports whether a resolved report met its priority target.
// Resolving in exactly the target counts as met.
func WithinSLA(r models.Report) bool {
	d, ok := ResolutionTime(r)
	if !ok {
		return false
	}
	target, known := SLATargets[r.Priority]
	if !known {
		return false
	}
	return d <= target
}

type SLAStat struct {
	Priority   int     `json:"priority"`
	TargetHrs  int     `json:"target_hours"`
	Total      int     `json:"total"`
	WithinSLA  int     `json:"within_sla"`
	Percentage float64 `json:"percentage"`
}

// SLACompliance reports, per priority 1-5, how many resolved reports met the target.
func SLACompliance(reports []models.Report) []SLAStat {
	stats := make([]SLAStat, 5)
	for i := range stats {
		p := i + 1
		stats[i] = SLAStat{Priority: p, TargetHrs: int(SLATargets[p].Hours())}
	}
	for _, r := range reports {
		if r.Priority < 1 || r.Priority > 5 {
			continue
		}
		if _, ok := ResolutionTime(r); !ok {
			continue
		}
		s := &stats[r.Priority-1]
		s.Total++
		if WithinSLA(r) {
			s.WithinSLA++
		}
	}
	for i := range stats {
		stats[i].Percentage = Percent(stats[i].WithinSLA, stats[i].Total)
	}
	return stats
}
