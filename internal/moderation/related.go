package moderation

import (
	"sort"

	"tunewave-backend/internal/models"
)

// RelatedLimit caps each related-reports section.
const RelatedLimit = 5

// RelatedQuery is one of the two related-report lookups.
type RelatedQuery struct {
	// Field is "target_id" or "reported_user_id".
	Field     string
	Value     string
	ExcludeID string
	Limit     int
}

const (
	RelatedByTarget = "target_id"
	RelatedByUser   = "reported_user_id"
)

// RelatedQueries builds the same-content and same-user lookups for r.
func RelatedQueries(r models.Report) (byContent, byUser RelatedQuery) {
	byContent = RelatedQuery{Field: RelatedByTarget, Value: r.TargetID, ExcludeID: r.ID, Limit: RelatedLimit}
	byUser = RelatedQuery{Field: RelatedByUser, Value: r.ReportedUserID, ExcludeID: r.ID, Limit: RelatedLimit}
	return byContent, byUser
}

func (q RelatedQuery) Matches(r models.Report) bool {
	if r.ID == q.ExcludeID {
		return false
	}
	switch q.Field {
	case RelatedByTarget:
		return r.TargetID == q.Value
	case RelatedByUser:
		return r.ReportedUserID == q.Value
	}
	return false
}

// SelectRelated runs q over reports: matching rows newest first, capped at q.Limit.
func SelectRelated(reports []models.Report, q RelatedQuery) []models.Report {
	out := make([]models.Report, 0)
	for _, r := range reports {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	SortReportsNewestFirst(out)
	limit := q.Limit
	if limit <= 0 || limit > RelatedLimit {
		limit = RelatedLimit
	}
	return Paginate(out, limit, 0)
}

func SortReportsNewestFirst(reports []models.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}

// RelatedPanel groups related reports. Empty sections are nil so they are
// dropped from the JSON.
type RelatedPanel struct {
	SameContent []models.Report `json:"same_content,omitempty"`
	SameUser    []models.Report `json:"same_user,omitempty"`
}

// BuildRelatedPanel returns nil when both lookups came back empty.
func BuildRelatedPanel(byContent, byUser []models.Report) *RelatedPanel {
	if len(byContent) == 0 && len(byUser) == 0 {
		return nil
	}
	p := &RelatedPanel{}
	if len(byContent) > 0 {
		p.SameContent = truncateReports(byContent)
	}
	if len(byUser) > 0 {
		p.SameUser = truncateReports(byUser)
	}
	return p
}

func truncateReports(rs []models.Report) []models.Report {
	out := append([]models.Report(nil), rs...)
	SortReportsNewestFirst(out)
	return Paginate(out, RelatedLimit, 0)
}

// ReportContext is everything a moderator sees when opening a report.
type ReportContext struct {
	Report   models.Report  `json:"report"`
	Accuracy *AccuracyBadge `json:"reporter_accuracy,omitempty"`
	Related  *RelatedPanel  `json:"related_reports,omitempty"`
}

// NewReportContext attaches the accuracy badge and related panel to user
// reports only; moderator flags have no reporter history worth showing.
func NewReportContext(r models.Report, acc *ReporterAccuracy, byContent, byUser []models.Report) ReportContext {
	ctx := ReportContext{Report: r}
	if r.ModeratorFlagged {
		return ctx
	}
	ctx.Accuracy = NewAccuracyBadge(acc)
	ctx.Related = BuildRelatedPanel(byContent, byUser)
	return ctx
}
