package services

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"tunewave-backend/internal/database"
	"tunewave-backend/internal/metrics"
	"tunewave-backend/internal/queue"
)

const (
	noticeDedupeTTL  = 10 * time.Minute
	noticeDedupeSize = 4096
)

// ModerationSubscriber turns moderation events into Telegram notices for
// the affected user.
type ModerationSubscriber struct {
	repo     database.ModerationRepository
	notifier Notifier
	sent     *expirable.LRU[string, struct{}]
	log      *zap.Logger
}

func NewModerationSubscriber(repo database.ModerationRepository, notifier Notifier, log *zap.Logger) *ModerationSubscriber {
	return &ModerationSubscriber{
		repo:     repo,
		notifier: notifier,
		sent:     expirable.NewLRU[string, struct{}](noticeDedupeSize, nil, noticeDedupeTTL),
		log:      log,
	}
}

// Run consumes events until ctx is cancelled.
func (s *ModerationSubscriber) Run(ctx context.Context, sub queue.Subscriber) error {
	events, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	s.log.Info("moderation subscriber started", zap.String("channel", queue.ModerationEventsChannel))

	for ev := range events {
		if err := s.Handle(ctx, ev); err != nil {
			s.log.Error("failed to handle moderation event",
				zap.String("event_id", ev.EventID),
				zap.String("type", string(ev.Type)),
				zap.Error(err))
		}
	}
	s.log.Info("moderation subscriber stopped")
	return ctx.Err()
}

// Handle sends the notice for one event. Redelivery of the same notice is
// suppressed for a while.
func (s *ModerationSubscriber) Handle(ctx context.Context, ev queue.ModerationEvent) error {
	dedupeKey := string(ev.Type) + ":" + ev.ActionID
	if _, seen := s.sent.Get(dedupeKey); seen {
		s.log.Debug("skipping duplicate notice", zap.String("key", dedupeKey))
		return nil
	}

	var text string
	switch ev.Type {
	case queue.EventActionReversed:
		text = ReversalMessage(ev.ActionType, ev.ReversalReason)
	case queue.EventActionApplied:
		action, err := s.repo.GetAction(ctx, ev.ActionID)
		if err != nil {
			return err
		}
		if !notifiesOnApply(action) {
			return nil
		}
		var expires string
		if action.ExpiresAt != nil {
			expires = action.ExpiresAt.UTC().Format(time.DateOnly)
		}
		text = ActionMessage(action.ActionType, action.Reason, expires)
	default:
		return nil
	}

	user, err := s.repo.GetUser(ctx, ev.TargetUserID)
	if errors.Is(err, database.ErrNotFound) {
		s.log.Debug("no profile for notice target", zap.String("user_id", ev.TargetUserID))
		return nil
	}
	if err != nil {
		return err
	}
	if user.TelegramID == nil || *user.TelegramID <= 0 {
		return nil
	}

	if err := s.notifier.Notify(ctx, *user.TelegramID, text); err != nil {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		return err
	}
	s.sent.Add(dedupeKey, struct{}{})
	metrics.NotificationsSent.WithLabelValues("sent").Inc()
	s.log.Info("sent moderation notice",
		zap.String("user_id", user.ID),
		zap.String("type", string(ev.Type)),
		zap.String("action_id", ev.ActionID))
	return nil
}
