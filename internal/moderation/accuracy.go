package moderation

import "tunewave-backend/internal/models"

// ReporterAccuracy summarises how often a reporter's reports led to action.
type ReporterAccuracy struct {
	TotalReports    int `json:"total_reports"`
	AccurateReports int `json:"accurate_reports"`
	AccuracyRate    int `json:"accuracy_rate"`
}

// IsAccurate is true for a report that was resolved with an action.
func IsAccurate(r models.Report) bool {
	return r.Status == models.ReportResolved && r.ActionTaken != nil
}

// CalculateReporterAccuracy returns nil when there is nothing to measure,
// which callers must keep distinct from a 0% rate.
func CalculateReporterAccuracy(reports []models.Report) *ReporterAccuracy {
	if len(reports) == 0 {
		return nil
	}
	acc := &ReporterAccuracy{TotalReports: len(reports)}
	for _, r := range reports {
		if IsAccurate(r) {
			acc.AccurateReports++
		}
	}
	acc.AccuracyRate = WholePercent(acc.AccurateReports, acc.TotalReports)
	return acc
}

type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// AccuracyBand buckets a rate. Lower bounds are inclusive: 80 is high, 50 is medium.
func AccuracyBand(rate int) Band {
	switch {
	case rate >= 80:
		return BandHigh
	case rate >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

// AccuracyBadge is what a report view shows next to the reporter.
type AccuracyBadge struct {
	ReporterAccuracy
	Band Band `json:"band"`
}

func NewAccuracyBadge(acc *ReporterAccuracy) *AccuracyBadge {
	if acc == nil {
		return nil
	}
	return &AccuracyBadge{ReporterAccuracy: *acc, Band: AccuracyBand(acc.AccuracyRate)}
}

// Snapshot is the badge as stored in report metadata at review time.
func (b AccuracyBadge) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"total_reports":    b.TotalReports,
		"accurate_reports": b.AccurateReports,
		"accuracy_rate":    b.AccuracyRate,
		"band":             string(b.Band),
	}
}
