package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tunewave-backend/internal/models"
)

const ModerationEventsChannel = "moderation_events"

type EventType string

const (
	EventActionApplied  EventType = "action_applied"
	EventActionReversed EventType = "action_reversed"
)

// ModerationEvent is published after an action is applied or reversed.
type ModerationEvent struct {
	EventID        string            `json:"event_id"`
	Type           EventType         `json:"type"`
	ActionID       string            `json:"action_id"`
	ActionType     models.ActionType `json:"action_type"`
	Reason         models.ReasonCode `json:"reason"`
	ModeratorID    string            `json:"moderator_id"`
	TargetUserID   string            `json:"target_user_id"`
	ReversedBy     string            `json:"reversed_by,omitempty"`
	ReversalReason string            `json:"reversal_reason,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// NewActionEvent builds the event for a stored action. Reversal fields are
// filled in when the action carries them.
func NewActionEvent(t EventType, a models.ModerationAction, at time.Time) ModerationEvent {
	ev := ModerationEvent{
		EventID:      uuid.New().String(),
		Type:         t,
		ActionID:     a.ID,
		ActionType:   a.ActionType,
		Reason:       a.Reason,
		ModeratorID:  a.ModeratorID,
		TargetUserID: a.TargetUserID,
		OccurredAt:   at,
	}
	if a.RevokedBy != nil {
		ev.ReversedBy = *a.RevokedBy
	}
	ev.ReversalReason = a.Metadata.String(models.MetaReversalReason)
	return ev
}

type Publisher interface {
	Publish(ctx context.Context, ev ModerationEvent) error
}

// Subscriber delivers events until ctx is cancelled, then closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan ModerationEvent, error)
}

// Bus is both ends of the moderation event stream.
type Bus interface {
	Publisher
	Subscriber
}

// RedisBus carries events over a redis pub/sub channel.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisBus(rdb *redis.Client, log *zap.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, channel: ModerationEventsChannel, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, ev ModerationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	b.log.Debug("published moderation event",
		zap.String("type", string(ev.Type)),
		zap.String("action_id", ev.ActionID))
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan ModerationEvent, error) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	out := make(chan ModerationEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev ModerationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn("dropping malformed moderation event", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// MemoryBus fans events out to in-process subscribers. Used when redis is
// not configured and in tests.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[chan ModerationEvent]struct{}
	buf  int
}

func NewMemoryBus(buffer int) *MemoryBus {
	return &MemoryBus{subs: map[chan ModerationEvent]struct{}{}, buf: buffer}
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (b *MemoryBus) Publish(ctx context.Context, ev ModerationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan ModerationEvent, error) {
	ch := make(chan ModerationEvent, b.buf)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ModerationEvent) error { return nil }
