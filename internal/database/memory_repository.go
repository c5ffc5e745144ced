package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tunewave-backend/internal/models"
	"tunewave-backend/internal/moderation"
)

// MemoryRepository keeps everything in process memory. It backs the tests
// and APP_STORE=memory local runs, and answers queries with the same
// moderation predicates the postgres repository translates to SQL.
type MemoryRepository struct {
	mu      sync.RWMutex
	actions []models.ModerationAction
	reports []models.Report
	users   map[string]models.User
}

var _ ModerationRepository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: map[string]models.User{}}
}

func cloneMeta(m models.JSONMap) models.JSONMap {
	if m == nil {
		return nil
	}
	out := make(models.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneAction(a models.ModerationAction) models.ModerationAction {
	a.Metadata = cloneMeta(a.Metadata)
	return a
}

func cloneReport(r models.Report) models.Report {
	r.Metadata = cloneMeta(r.Metadata)
	return r
}

func (m *MemoryRepository) snapshotActions() []models.ModerationAction {
	out := make([]models.ModerationAction, len(m.actions))
	for i, a := range m.actions {
		out[i] = cloneAction(a)
	}
	return out
}

func (m *MemoryRepository) snapshotReports() []models.Report {
	out := make([]models.Report, len(m.reports))
	for i, r := range m.reports {
		out[i] = cloneReport(r)
	}
	return out
}

func prepareAction(a *models.ModerationAction) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
}

func (m *MemoryRepository) CreateAction(ctx context.Context, action *models.ModerationAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prepareAction(action)
	m.actions = append(m.actions, cloneAction(*action))
	return nil
}

func (m *MemoryRepository) GetAction(ctx context.Context, id string) (models.ModerationAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.actions {
		if a.ID == id {
			return cloneAction(a), nil
		}
	}
	return models.ModerationAction{}, ErrNotFound
}

func (m *MemoryRepository) SaveReversal(ctx context.Context, action models.ModerationAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.actions {
		if m.actions[i].ID != action.ID {
			continue
		}
		if moderation.IsReversed(m.actions[i]) {
			return moderation.ErrAlreadyReversed
		}
		m.actions[i].RevokedAt = action.RevokedAt
		m.actions[i].RevokedBy = action.RevokedBy
		m.actions[i].Metadata = cloneMeta(action.Metadata)
		return nil
	}
	return ErrNotFound
}

func (m *MemoryRepository) FetchModerationLogs(ctx context.Context, f moderation.LogFilter, now time.Time) (moderation.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return moderation.ApplyFilter(m.snapshotActions(), f, now), nil
}

func (m *MemoryRepository) ReversalStats(ctx context.Context, moderatorID string) (moderation.ReversalSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return moderation.ReversalStats(m.actions, moderatorID), nil
}

func within(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

func (m *MemoryRepository) ListActions(ctx context.Context, start, end *time.Time) ([]models.ModerationAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ModerationAction, 0)
	for _, a := range m.actions {
		if within(a.CreatedAt, start, end) {
			out = append(out, cloneAction(a))
		}
	}
	moderation.SortNewestFirst(out)
	return out, nil
}

func (m *MemoryRepository) CreateReport(ctx context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if report.Status == "" {
		report.Status = models.ReportPending
	}
	m.reports = append(m.reports, cloneReport(*report))
	return nil
}

func (m *MemoryRepository) GetReport(ctx context.Context, id string) (models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reports {
		if r.ID == id {
			return cloneReport(r), nil
		}
	}
	return models.Report{}, ErrNotFound
}

func (m *MemoryRepository) ResolveReport(ctx context.Context, report *models.Report, action *models.ModerationAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i := range m.reports {
		if m.reports[i].ID == report.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	if m.reports[idx].Status.Closed() {
		return moderation.ErrReportClosed
	}
	if action != nil {
		prepareAction(action)
		m.actions = append(m.actions, cloneAction(*action))
	}
	m.reports[idx] = cloneReport(*report)
	return nil
}

func (m *MemoryRepository) ReportsByReporter(ctx context.Context, reporterID string) ([]models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Report, 0)
	for _, r := range m.reports {
		if r.ReporterID == reporterID {
			out = append(out, cloneReport(r))
		}
	}
	return out, nil
}

func (m *MemoryRepository) RelatedReports(ctx context.Context, q moderation.RelatedQuery) ([]models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return moderation.SelectRelated(m.snapshotReports(), q), nil
}

func (m *MemoryRepository) ListReports(ctx context.Context, start, end *time.Time) ([]models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Report, 0)
	for _, r := range m.reports {
		if within(r.CreatedAt, start, end) {
			out = append(out, cloneReport(r))
		}
	}
	return out, nil
}

func (m *MemoryRepository) PendingReports(ctx context.Context, limit, offset int) ([]models.Report, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	open := make([]models.Report, 0)
	for _, r := range m.reports {
		if !r.Status.Closed() {
			open = append(open, cloneReport(r))
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].Priority != open[j].Priority {
			return open[i].Priority < open[j].Priority
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})
	return moderation.Paginate(open, limit, offset), len(open), nil
}

func (m *MemoryRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m *MemoryRepository) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	m.users[user.ID] = *user
	return nil
}
