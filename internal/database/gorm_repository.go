package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"tunewave-backend/internal/models"
	"tunewave-backend/internal/moderation"
)

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository returns the postgres-backed repository.
func NewGormRepository(db *gorm.DB) ModerationRepository {
	return &gormRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *gormRepository) CreateAction(ctx context.Context, action *models.ModerationAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *gormRepository) GetAction(ctx context.Context, id string) (models.ModerationAction, error) {
	var action models.ModerationAction
	err := r.db.WithContext(ctx).First(&action, "id = ?", id).Error
	return action, notFound(err)
}

func (r *gormRepository) SaveReversal(ctx context.Context, action models.ModerationAction) error {
	res := r.db.WithContext(ctx).Model(&models.ModerationAction{}).
		Where("id = ? AND revoked_at IS NULL", action.ID).
		Updates(map[string]interface{}{
			"revoked_at": action.RevokedAt,
			"revoked_by": action.RevokedBy,
			"metadata":   action.Metadata,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetAction(ctx, action.ID); err != nil {
			return err
		}
		return moderation.ErrAlreadyReversed
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// applyLogFilter mirrors moderation.Matches as SQL predicates.
func applyLogFilter(q *gorm.DB, f moderation.LogFilter, now time.Time) *gorm.DB {
	if f.ActionType != "" {
		q = q.Where("action_type = ?", f.ActionType)
	}
	if f.ModeratorID != "" {
		q = q.Where("moderator_id = ?", f.ModeratorID)
	}
	if s := strings.TrimSpace(f.SearchQuery); s != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where("(LOWER(target_user_id) LIKE ? OR LOWER(target_id) LIKE ?)", pattern, pattern)
	}
	if f.StartDate != nil {
		q = q.Where("created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("created_at <= ?", *f.EndDate)
	}

	switch f.Reversal {
	case moderation.ReversalReversed:
		q = q.Where("revoked_at IS NOT NULL")
	case moderation.ReversalNonReversed:
		q = q.Where("revoked_at IS NULL")
	case moderation.ReversalRecentlyReversed:
		q = q.Where("revoked_at IS NOT NULL AND revoked_at >= ?", now.Add(-moderation.RecentReversalWindow))
	}

	switch f.Expiry {
	case moderation.ExpiryExpired:
		q = q.Where("expires_at IS NOT NULL AND expires_at <= ?", now)
	case moderation.ExpiryNonExpired:
		q = q.Where("(expires_at IS NULL OR expires_at > ?)", now)
	}
	return q
}

func (r *gormRepository) FetchModerationLogs(ctx context.Context, f moderation.LogFilter, now time.Time) (moderation.Page, error) {
	base := applyLogFilter(r.db.WithContext(ctx).Model(&models.ModerationAction{}), f, now)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return moderation.Page{}, fmt.Errorf("count moderation logs: %w", err)
	}

	q := base.Session(&gorm.Session{}).Order("created_at DESC").Order("id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	actions := make([]models.ModerationAction, 0)
	if err := q.Find(&actions).Error; err != nil {
		return moderation.Page{}, fmt.Errorf("fetch moderation logs: %w", err)
	}
	return moderation.Page{Actions: actions, Total: int(total)}, nil
}

// reversalStatsQuery counts over every action, or one moderator's actions;
// log filters never reach it.
func reversalStatsQuery(db *gorm.DB, moderatorID string) *gorm.DB {
	q := db.Model(&models.ModerationAction{}).
		Select(`COUNT(*) AS total,
			COUNT(revoked_at) AS reversed,
			COALESCE(SUM(CASE WHEN revoked_at IS NOT NULL AND revoked_by = moderator_id THEN 1 ELSE 0 END), 0) AS self_reversed`)
	if moderatorID != "" {
		q = q.Where("moderator_id = ?", moderatorID)
	}
	return q
}

func (r *gormRepository) ReversalStats(ctx context.Context, moderatorID string) (moderation.ReversalSummary, error) {
	var row struct {
		Total        int
		Reversed     int
		SelfReversed int
	}
	if err := reversalStatsQuery(r.db.WithContext(ctx), moderatorID).Scan(&row).Error; err != nil {
		return moderation.ReversalSummary{}, fmt.Errorf("reversal stats: %w", err)
	}
	return moderation.ReversalSummary{
		Total:        row.Total,
		Reversed:     row.Reversed,
		SelfReversed: row.SelfReversed,
		ReversalRate: moderation.Percent(row.Reversed, row.Total),
	}, nil
}

func inRange(q *gorm.DB, start, end *time.Time) *gorm.DB {
	if start != nil {
		q = q.Where("created_at >= ?", *start)
	}
	if end != nil {
		q = q.Where("created_at <= ?", *end)
	}
	return q
}

func (r *gormRepository) ListActions(ctx context.Context, start, end *time.Time) ([]models.ModerationAction, error) {
	var actions []models.ModerationAction
	err := inRange(r.db.WithContext(ctx), start, end).Order("created_at DESC").Find(&actions).Error
	return actions, err
}

func (r *gormRepository) CreateReport(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *gormRepository) GetReport(ctx context.Context, id string) (models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error
	return report, notFound(err)
}

var closedStatuses = []models.ReportStatus{models.ReportResolved, models.ReportDismissed}

// reviewUpdate writes the review fields only while the stored report is
// still open, so concurrent reviews race on the row and one of them wins.
func reviewUpdate(tx *gorm.DB, report *models.Report) *gorm.DB {
	return tx.Model(&models.Report{}).
		Where("id = ? AND status NOT IN ?", report.ID, closedStatuses).
		Updates(map[string]interface{}{
			"status":           report.Status,
			"action_taken":     report.ActionTaken,
			"reviewed_by":      report.ReviewedBy,
			"reviewed_at":      report.ReviewedAt,
			"resolution_notes": report.ResolutionNotes,
			"metadata":         report.Metadata,
		})
}

func (r *gormRepository) ResolveReport(ctx context.Context, report *models.Report, action *models.ModerationAction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := reviewUpdate(tx, report)
		if res.Error != nil {
			return fmt.Errorf("save report: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var stored models.Report
			if err := tx.First(&stored, "id = ?", report.ID).Error; err != nil {
				return notFound(err)
			}
			return moderation.ErrReportClosed
		}
		if action != nil {
			if err := tx.Create(action).Error; err != nil {
				return fmt.Errorf("create action: %w", err)
			}
		}
		return nil
	})
}

func (r *gormRepository) ReportsByReporter(ctx context.Context, reporterID string) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).Where("reporter_id = ?", reporterID).Find(&reports).Error
	return reports, err
}

func relatedQuery(db *gorm.DB, q moderation.RelatedQuery) (*gorm.DB, error) {
	var column string
	switch q.Field {
	case moderation.RelatedByTarget:
		column = "target_id"
	case moderation.RelatedByUser:
		column = "reported_user_id"
	default:
		return nil, fmt.Errorf("unknown related field %q", q.Field)
	}
	limit := q.Limit
	if limit <= 0 || limit > moderation.RelatedLimit {
		limit = moderation.RelatedLimit
	}
	return db.Model(&models.Report{}).
		Where(column+" = ? AND id <> ?", q.Value, q.ExcludeID).
		Order("created_at DESC").
		Limit(limit), nil
}

func (r *gormRepository) RelatedReports(ctx context.Context, q moderation.RelatedQuery) ([]models.Report, error) {
	query, err := relatedQuery(r.db.WithContext(ctx), q)
	if err != nil {
		return nil, err
	}
	var reports []models.Report
	err = query.Find(&reports).Error
	return reports, err
}

func (r *gormRepository) ListReports(ctx context.Context, start, end *time.Time) ([]models.Report, error) {
	var reports []models.Report
	err := inRange(r.db.WithContext(ctx), start, end).Find(&reports).Error
	return reports, err
}

func (r *gormRepository) PendingReports(ctx context.Context, limit, offset int) ([]models.Report, int, error) {
	base := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("status IN ?", []models.ReportStatus{models.ReportPending, models.ReportUnderReview})

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.Report
	q := base.Session(&gorm.Session{}).Order("priority ASC").Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, int(total), nil
}

func (r *gormRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	return user, notFound(err)
}

func (r *gormRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "telegram_id = ?", telegramID).Error
	return user, notFound(err)
}

func (r *gormRepository) SaveUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}
