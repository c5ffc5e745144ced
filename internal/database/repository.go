package database

import (
	"context"
	"errors"
	"time"

	"tunewave-backend/internal/models"
	"tunewave-backend/internal/moderation"
)

var ErrNotFound = errors.New("record not found")

// ModerationRepository is the data store behind the moderation service.
// Filters passed to FetchModerationLogs are applied as a logical AND.
type ModerationRepository interface {
	CreateAction(ctx context.Context, action *models.ModerationAction) error
	GetAction(ctx context.Context, id string) (models.ModerationAction, error)
	// SaveReversal persists the revoked_* fields of an action once. It
	// returns moderation.ErrAlreadyReversed if the stored row is already
	// reversed.
	SaveReversal(ctx context.Context, action models.ModerationAction) error
	FetchModerationLogs(ctx context.Context, filter moderation.LogFilter, now time.Time) (moderation.Page, error)
	ReversalStats(ctx context.Context, moderatorID string) (moderation.ReversalSummary, error)
	ListActions(ctx context.Context, start, end *time.Time) ([]models.ModerationAction, error)

	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (models.Report, error)
	// ResolveReport saves the reviewed report and, when action is non-nil,
	// creates the resulting action in the same transaction. It returns
	// moderation.ErrReportClosed if the stored report is already resolved
	// or dismissed, and then creates nothing.
	ResolveReport(ctx context.Context, report *models.Report, action *models.ModerationAction) error
	ReportsByReporter(ctx context.Context, reporterID string) ([]models.Report, error)
	RelatedReports(ctx context.Context, q moderation.RelatedQuery) ([]models.Report, error)
	ListReports(ctx context.Context, start, end *time.Time) ([]models.Report, error)
	PendingReports(ctx context.Context, limit, offset int) ([]models.Report, int, error)

	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
}
