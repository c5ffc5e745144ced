package moderation

import (
	"fmt"
	"sort"
	"time"

	"tunewave-backend/internal/models"
)

const (
	Week  = 7 * 24 * time.Hour
	Month = 30 * 24 * time.Hour

	TopReasonsLimit = 3
)

type MetricsOptions struct {
	StartDate *time.Time
	EndDate   *time.Time

	IncludeSLA         bool
	IncludeTrends      bool
	IncludePerformance bool
}

// HasRange reports whether both ends of the date range are set.
func (o MetricsOptions) HasRange() bool {
	return o.StartDate != nil && o.EndDate != nil
}

func (o MetricsOptions) inRange(t time.Time) bool {
	if o.StartDate != nil && t.Before(*o.StartDate) {
		return false
	}
	if o.EndDate != nil && t.After(*o.EndDate) {
		return false
	}
	return true
}

// Buckets counts events in rolling windows ending at now. Today is the
// current UTC calendar day; week and month are 7 and 30 days back from now.
type Buckets struct {
	Today int `json:"today"`
	Week  int `json:"week"`
	Month int `json:"month"`
}

func (b *Buckets) add(t, now time.Time) {
	if t.After(now) {
		return
	}
	if SameUTCDay(t, now) {
		b.Today++
	}
	if !t.Before(now.Add(-Week)) {
		b.Week++
	}
	if !t.Before(now.Add(-Month)) {
		b.Month++
	}
}

func SameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

type ResolutionDuration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

func SplitDuration(d time.Duration) ResolutionDuration {
	total := int(RoundHalfUp(d.Minutes(), 0))
	return ResolutionDuration{Hours: total / 60, Minutes: total % 60}
}

type CountShare struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type ModeratorStat struct {
	ModeratorID            string  `json:"moderator_id"`
	ActionsCount           int     `json:"actions_count"`
	AverageResolutionHours float64 `json:"average_resolution_hours"`
	AverageResolution      string  `json:"average_resolution"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DailyRate struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}

type Trends struct {
	ReportVolume   []DailyCount `json:"report_volume"`
	ResolutionRate []DailyRate  `json:"resolution_rate"`
}

type Metrics struct {
	ReportsReceived       Buckets            `json:"reports_received"`
	ReportsResolved       Buckets            `json:"reports_resolved"`
	AverageResolutionTime ResolutionDuration `json:"average_resolution_time"`
	ActionsByType         []CountShare       `json:"actions_by_type"`
	TopReasons            []CountShare       `json:"top_reasons"`
	SLACompliance         []SLAStat          `json:"sla_compliance,omitempty"`
	ModeratorPerformance  []ModeratorStat    `json:"moderator_performance,omitempty"`
	Trends                *Trends            `json:"trends,omitempty"`
	GeneratedAt           time.Time          `json:"generated_at"`
}

// CalculateMetrics derives the moderation dashboard from reports and actions.
// Rows outside the option's date range are ignored.
func CalculateMetrics(reports []models.Report, actions []models.ModerationAction, opts MetricsOptions, now time.Time) Metrics {
	m := Metrics{GeneratedAt: now.UTC()}

	scoped := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if opts.inRange(r.CreatedAt) {
			scoped = append(scoped, r)
		}
	}
	scopedActions := make([]models.ModerationAction, 0, len(actions))
	for _, a := range actions {
		if opts.inRange(a.CreatedAt) {
			scopedActions = append(scopedActions, a)
		}
	}

	var resolvedTotal time.Duration
	var resolvedCount int
	reasons := map[string]int{}
	for _, r := range scoped {
		m.ReportsReceived.add(r.CreatedAt, now)
		reasons[string(r.Reason)]++
		if d, ok := ResolutionTime(r); ok {
			m.ReportsResolved.add(*r.ReviewedAt, now)
			resolvedTotal += d
			resolvedCount++
		}
	}
	if resolvedCount > 0 {
		m.AverageResolutionTime = SplitDuration(resolvedTotal / time.Duration(resolvedCount))
	}

	byType := map[string]int{}
	for _, a := range scopedActions {
		byType[string(a.ActionType)]++
	}
	m.ActionsByType = shares(byType, len(scopedActions), 0)
	m.TopReasons = shares(reasons, len(scoped), TopReasonsLimit)

	if opts.IncludeSLA {
		m.SLACompliance = SLACompliance(scoped)
	}
	if opts.IncludePerformance {
		m.ModeratorPerformance = ModeratorPerformance(scoped, scopedActions)
	}
	if opts.IncludeTrends && opts.HasRange() {
		t := DailyTrends(scoped)
		m.Trends = &t
	}
	return m
}

// shares turns counts into a list sorted by count descending then key, with
// each entry's share of total. limit <= 0 keeps every entry.
func shares(counts map[string]int, total, limit int) []CountShare {
	out := make([]CountShare, 0, len(counts))
	for k, c := range counts {
		out = append(out, CountShare{Key: k, Count: c, Percentage: Percent(c, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ModeratorPerformance ranks moderators by the number of actions taken.
// Resolution time comes from the resolved reports each moderator reviewed.
func ModeratorPerformance(reports []models.Report, actions []models.ModerationAction) []ModeratorStat {
	type acc struct {
		actions  int
		resolved int
		total    time.Duration
	}
	per := map[string]*acc{}
	get := func(id string) *acc {
		if per[id] == nil {
			per[id] = &acc{}
		}
		return per[id]
	}

	for _, a := range actions {
		get(a.ModeratorID).actions++
	}
	for _, r := range reports {
		if r.ReviewedBy == nil {
			continue
		}
		if d, ok := ResolutionTime(r); ok {
			st := get(*r.ReviewedBy)
			st.resolved++
			st.total += d
		}
	}

	out := make([]ModeratorStat, 0, len(per))
	for id, st := range per {
		var hours float64
		if st.resolved > 0 {
			hours = RoundHalfUp((st.total / time.Duration(st.resolved)).Hours(), 1)
		}
		out = append(out, ModeratorStat{
			ModeratorID:            id,
			ActionsCount:           st.actions,
			AverageResolutionHours: hours,
			AverageResolution:      FormatHours(hours),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActionsCount != out[j].ActionsCount {
			return out[i].ActionsCount > out[j].ActionsCount
		}
		return out[i].ModeratorID < out[j].ModeratorID
	})
	return out
}

// FormatHours renders an average resolution time; zero means no data.
func FormatHours(h float64) string {
	if h == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1fh", h)
}

// DailyTrends groups reports by UTC creation day. Days without reports are
// left out rather than zero-filled.
func DailyTrends(reports []models.Report) Trends {
	type day struct {
		count    int
		resolved int
	}
	days := map[string]*day{}
	for _, r := range reports {
		key := r.CreatedAt.UTC().Format(time.DateOnly)
		if days[key] == nil {
			days[key] = &day{}
		}
		days[key].count++
		if r.Status == models.ReportResolved {
			days[key].resolved++
		}
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := Trends{
		ReportVolume:   make([]DailyCount, 0, len(keys)),
		ResolutionRate: make([]DailyRate, 0, len(keys)),
	}
	for _, k := range keys {
		d := days[k]
		t.ReportVolume = append(t.ReportVolume, DailyCount{Date: k, Count: d.count})
		t.ResolutionRate = append(t.ResolutionRate, DailyRate{Date: k, Rate: Percent(d.resolved, d.count)})
	}
	return t
}
