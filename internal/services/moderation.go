package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tunewave-backend/internal/cache"
	"tunewave-backend/internal/database"
	"tunewave-backend/internal/metrics"
	"tunewave-backend/internal/models"
	"tunewave-backend/internal/moderation"
	"tunewave-backend/internal/queue"
)

const (
	// AccuracyCacheName is the cache name reporter accuracy is stored under.
	AccuracyCacheName = "reporter_accuracy"
	exportLinkExpiry  = time.Hour
)

var ErrExportStorageDisabled = errors.New("export storage is not configured")

// ExportUploader stores a finished export and returns a download link.
type ExportUploader interface {
	PutExport(ctx context.Context, key string, body []byte, expiresIn time.Duration) (string, error)
}

// ModerationService answers the moderation dashboard: the action ledger,
// metrics, report review and reporter accuracy.
type ModerationService struct {
	repo    database.ModerationRepository
	cache   cache.Store
	events  queue.Publisher
	exports ExportUploader
	now     func() time.Time
	log     *zap.Logger
}

type Option func(*ModerationService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ModerationService) { s.now = now }
}

func WithExportStorage(u ExportUploader) Option {
	return func(s *ModerationService) { s.exports = u }
}

func NewModerationService(repo database.ModerationRepository, store cache.Store, events queue.Publisher, log *zap.Logger, opts ...Option) *ModerationService {
	s := &ModerationService{
		repo:   repo,
		cache:  store,
		events: events,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = queue.NopPublisher{}
	}
	return s
}

// LogsResult is one page of the moderation log with the reversal summary.
type LogsResult struct {
	Actions []models.ModerationAction  `json:"actions"`
	Total   int                        `json:"total"`
	Stats   moderation.ReversalSummary `json:"stats"`
}

// FetchModerationLogs returns the filtered page together with reversal stats
// scoped only by the filter's moderator.
func (s *ModerationService) FetchModerationLogs(ctx context.Context, f moderation.LogFilter) (LogsResult, error) {
	start := time.Now()
	defer func() { metrics.LogFetchDuration.Observe(time.Since(start).Seconds()) }()

	page, err := s.repo.FetchModerationLogs(ctx, f, s.now())
	if err != nil {
		return LogsResult{}, err
	}
	stats, err := s.repo.ReversalStats(ctx, moderation.StatsScope(f))
	if err != nil {
		return LogsResult{}, err
	}
	return LogsResult{Actions: page.Actions, Total: page.Total, Stats: stats}, nil
}

func (s *ModerationService) ReversalStats(ctx context.Context, moderatorID string) (moderation.ReversalSummary, error) {
	return s.repo.ReversalStats(ctx, moderatorID)
}

// CalculateModerationMetrics loads the reports and actions in the optional
// date range and derives the dashboard metrics.
func (s *ModerationService) CalculateModerationMetrics(ctx context.Context, opts moderation.MetricsOptions) (moderation.Metrics, error) {
	reports, err := s.repo.ListReports(ctx, opts.StartDate, opts.EndDate)
	if err != nil {
		return moderation.Metrics{}, err
	}
	actions, err := s.repo.ListActions(ctx, opts.StartDate, opts.EndDate)
	if err != nil {
		return moderation.Metrics{}, err
	}
	return moderation.CalculateMetrics(reports, actions, opts, s.now()), nil
}

// CalculateReporterAccuracy returns nil without error for an empty id or a
// reporter with no reports. Results are cached for the store's TTL and
// dropped whenever one of the reporter's reports is reviewed.
func (s *ModerationService) CalculateReporterAccuracy(ctx context.Context, reporterID string) (*moderation.ReporterAccuracy, error) {
	reporterID = strings.TrimSpace(reporterID)
	if reporterID == "" {
		return nil, nil
	}

	var cached moderation.ReporterAccuracy
	found, err := cache.GetJSON(ctx, s.cache, AccuracyCacheName, reporterID, &cached)
	if err != nil {
		s.log.Warn("accuracy cache read failed", zap.String("reporter_id", reporterID), zap.Error(err))
	}
	if found {
		metrics.CacheLookups.WithLabelValues(AccuracyCacheName, "hit").Inc()
		return &cached, nil
	}
	metrics.CacheLookups.WithLabelValues(AccuracyCacheName, "miss").Inc()

	reports, err := s.repo.ReportsByReporter(ctx, reporterID)
	if err != nil {
		return nil, err
	}
	acc := moderation.CalculateReporterAccuracy(reports)
	if acc == nil {
		return nil, nil
	}
	if err := cache.SetJSON(ctx, s.cache, AccuracyCacheName, reporterID, acc); err != nil {
		s.log.Warn("accuracy cache write failed", zap.String("reporter_id", reporterID), zap.Error(err))
	}
	return acc, nil
}

// ReportContext loads a report with its reporter's accuracy badge and the
// related reports on the same content and the same user.
func (s *ModerationService) ReportContext(ctx context.Context, reportID string) (moderation.ReportContext, error) {
	r, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		return moderation.ReportContext{}, err
	}
	if r.ModeratorFlagged {
		return moderation.NewReportContext(r, nil, nil, nil), nil
	}

	acc, err := s.CalculateReporterAccuracy(ctx, r.ReporterID)
	if err != nil {
		return moderation.ReportContext{}, err
	}
	qContent, qUser := moderation.RelatedQueries(r)
	byContent, err := s.repo.RelatedReports(ctx, qContent)
	if err != nil {
		return moderation.ReportContext{}, fmt.Errorf("related by content: %w", err)
	}
	byUser, err := s.repo.RelatedReports(ctx, qUser)
	if err != nil {
		return moderation.ReportContext{}, fmt.Errorf("related by user: %w", err)
	}
	return moderation.NewReportContext(r, acc, byContent, byUser), nil
}

// ReviewReport records a moderator's decision on a report. A resolution that
// carries an action type also creates the action, linked to the report.
func (s *ModerationService) ReviewReport(ctx context.Context, reportID, moderatorID string, d moderation.ReviewDecision) (models.Report, *models.ModerationAction, error) {
	r, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		return models.Report{}, nil, err
	}
	now := s.now()
	if err := moderation.ApplyReview(&r, moderatorID, d, now); err != nil {
		return models.Report{}, nil, err
	}
	s.snapshotAccuracy(ctx, &r)

	var action *models.ModerationAction
	if d.ActionType != nil {
		a, err := moderation.NewAction(moderation.ActionForReview(r, moderatorID, d), now)
		if err != nil {
			return models.Report{}, nil, err
		}
		a.ID = uuid.New().String()
		action = &a
	}

	if err := s.repo.ResolveReport(ctx, &r, action); err != nil {
		return models.Report{}, nil, err
	}
	metrics.ReportsReviewed.WithLabelValues(string(r.Status)).Inc()

	if err := s.cache.Purge(ctx, AccuracyCacheName, r.ReporterID); err != nil {
		s.log.Warn("accuracy cache purge failed", zap.String("reporter_id", r.ReporterID), zap.Error(err))
	}
	if action != nil {
		metrics.ActionsApplied.WithLabelValues(string(action.ActionType)).Inc()
		s.publish(ctx, queue.NewActionEvent(queue.EventActionApplied, *action, now))
	}

	s.log.Info("report reviewed",
		zap.String("report_id", r.ID),
		zap.String("moderator_id", moderatorID),
		zap.String("status", string(r.Status)))
	return r, action, nil
}

// snapshotAccuracy records the reporter's accuracy as the reviewer saw it.
// Moderator-flagged reports carry no badge, and lookup failures only skip it.
func (s *ModerationService) snapshotAccuracy(ctx context.Context, r *models.Report) {
	if r.ModeratorFlagged {
		return
	}
	acc, err := s.CalculateReporterAccuracy(ctx, r.ReporterID)
	if err != nil {
		s.log.Warn("accuracy snapshot skipped", zap.String("report_id", r.ID), zap.Error(err))
		return
	}
	badge := moderation.NewAccuracyBadge(acc)
	if badge == nil {
		return
	}
	if r.Metadata == nil {
		r.Metadata = models.JSONMap{}
	}
	r.Metadata[models.MetaReporterAccuracy] = badge.Snapshot()
}

// ApplyAction validates and stores a new moderation action.
func (s *ModerationService) ApplyAction(ctx context.Context, in moderation.ActionInput) (models.ModerationAction, error) {
	now := s.now()
	a, err := moderation.NewAction(in, now)
	if err != nil {
		return models.ModerationAction{}, err
	}
	if err := s.repo.CreateAction(ctx, &a); err != nil {
		return models.ModerationAction{}, err
	}
	metrics.ActionsApplied.WithLabelValues(string(a.ActionType)).Inc()
	s.publish(ctx, queue.NewActionEvent(queue.EventActionApplied, a, now))

	s.log.Info("moderation action applied",
		zap.String("action_id", a.ID),
		zap.String("moderator_id", a.ModeratorID),
		zap.String("action_type", string(a.ActionType)),
		zap.String("target_user_id", a.TargetUserID))
	return a, nil
}

// ReverseAction revokes an action. A second reversal, including one that
// loses a race with a concurrent reversal, fails with ErrAlreadyReversed.
func (s *ModerationService) ReverseAction(ctx context.Context, actionID, moderatorID, reason string) (models.ModerationAction, error) {
	a, err := s.repo.GetAction(ctx, actionID)
	if err != nil {
		return models.ModerationAction{}, err
	}
	now := s.now()
	if err := moderation.Reverse(&a, moderatorID, reason, now); err != nil {
		if errors.Is(err, moderation.ErrAlreadyReversed) {
			metrics.ReversalConflicts.Inc()
		}
		return models.ModerationAction{}, err
	}
	if err := s.repo.SaveReversal(ctx, a); err != nil {
		if errors.Is(err, moderation.ErrAlreadyReversed) {
			metrics.ReversalConflicts.Inc()
		}
		return models.ModerationAction{}, err
	}
	metrics.ActionsReversed.Inc()
	s.publish(ctx, queue.NewActionEvent(queue.EventActionReversed, a, now))

	s.log.Info("moderation action reversed",
		zap.String("action_id", a.ID),
		zap.String("reversed_by", moderatorID),
		zap.Bool("self_reversal", moderation.IsSelfReversed(a)))
	return a, nil
}

func (s *ModerationService) ListPendingReports(ctx context.Context, limit, offset int) ([]models.Report, int, error) {
	return s.repo.PendingReports(ctx, limit, offset)
}

// ExportActionLogsToCSV writes every action matching f, ignoring its
// pagination, as CSV.
func (s *ModerationService) ExportActionLogsToCSV(ctx context.Context, f moderation.LogFilter) ([]byte, error) {
	now := s.now()
	page, err := s.repo.FetchModerationLogs(ctx, f.Unpaged(), now)
	if err != nil {
		return nil, fmt.Errorf("export moderation logs: %w", err)
	}
	data, err := moderation.WriteActionsCSV(page.Actions, now)
	if err != nil {
		return nil, fmt.Errorf("export moderation logs: %w", err)
	}
	metrics.ExportRows.Add(float64(len(page.Actions)))
	return data, nil
}

// StoreActionLogExport uploads the CSV export and returns a link valid for
// an hour.
func (s *ModerationService) StoreActionLogExport(ctx context.Context, f moderation.LogFilter) (string, error) {
	if s.exports == nil {
		return "", ErrExportStorageDisabled
	}
	data, err := s.ExportActionLogsToCSV(ctx, f)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("moderation-logs/%s/%s.csv", s.now().UTC().Format(time.DateOnly), uuid.New().String())
	url, err := s.exports.PutExport(ctx, key, data, exportLinkExpiry)
	if err != nil {
		return "", fmt.Errorf("store export: %w", err)
	}
	s.log.Info("moderation log export stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return url, nil
}

// publish is best effort; the action is already stored.
func (s *ModerationService) publish(ctx context.Context, ev queue.ModerationEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Error("failed to publish moderation event",
			zap.String("type", string(ev.Type)),
			zap.String("action_id", ev.ActionID),
			zap.Error(err))
	}
}
