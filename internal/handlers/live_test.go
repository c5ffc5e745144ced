package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tunewave-backend/internal/moderation"
	"tunewave-backend/internal/services"
)

// gatedFetcher blocks each fetch for a moderator id until its gate is released.
type gatedFetcher struct {
	gates map[string]chan struct{}
}

func (g *gatedFetcher) FetchModerationLogs(ctx context.Context, f moderation.LogFilter) (services.LogsResult, error) {
	if gate, ok := g.gates[f.ModeratorID]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return services.LogsResult{}, ctx.Err()
		}
	}
	return services.LogsResult{Total: len(f.ModeratorID)}, nil
}

type capture struct {
	mu  sync.Mutex
	out []liveResponse
}

func (c *capture) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, v.(liveResponse))
	return nil
}

func (c *capture) responses() []liveResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]liveResponse(nil), c.out...)
}

func TestLiveSessionDropsStaleResponses(t *testing.T) {
	slow := make(chan struct{})
	fetcher := &gatedFetcher{gates: map[string]chan struct{}{"slow": slow}}
	out := &capture{}
	s := newLiveSession(context.Background(), fetcher, out.write, zap.NewNop())

	s.submit(liveRequest{RequestID: "first", logFilterRequest: logFilterRequest{ModeratorID: "slow"}})
	s.submit(liveRequest{RequestID: "second", logFilterRequest: logFilterRequest{ModeratorID: "fast"}})

	require.Eventually(t, func() bool { return len(out.responses()) == 1 }, time.Second, 5*time.Millisecond)

	// the slow first answer arrives last and must be discarded
	close(slow)
	s.wait()

	got := out.responses()
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].RequestID)
	assert.Equal(t, uint64(2), got[0].Seq)
	require.NotNil(t, got[0].Result)
	assert.Equal(t, len("fast"), got[0].Result.Total)
}

func TestLiveSessionReportsBadFilters(t *testing.T) {
	out := &capture{}
	s := newLiveSession(context.Background(), &gatedFetcher{}, out.write, zap.NewNop())

	s.submit(liveRequest{RequestID: "bad", logFilterRequest: logFilterRequest{Expiry: "soon"}})
	s.wait()

	got := out.responses()
	require.Len(t, got, 1)
	assert.Equal(t, "bad", got[0].RequestID)
	assert.Contains(t, got[0].Error, "expiry")
	assert.Nil(t, got[0].Result)
}

func TestLiveSessionCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &gatedFetcher{gates: map[string]chan struct{}{"never": make(chan struct{})}}
	out := &capture{}
	s := newLiveSession(ctx, fetcher, out.write, zap.NewNop())

	s.submit(liveRequest{logFilterRequest: logFilterRequest{ModeratorID: "never"}})
	cancel()
	s.wait()

	got := out.responses()
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].Error)
}
