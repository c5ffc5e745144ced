package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"tunewave-backend/internal/metrics"
	"tunewave-backend/internal/moderation"
	"tunewave-backend/internal/services"
)

type logFetcher interface {
	FetchModerationLogs(ctx context.Context, f moderation.LogFilter) (services.LogsResult, error)
}

// LiveLogsHandler serves the moderation log over a websocket. Every message
// from the client is a filter; each is fetched concurrently and only the
// answer to the newest filter is sent back.
type LiveLogsHandler struct {
	logs logFetcher
	log  *zap.Logger
}

func NewLiveLogsHandler(logs logFetcher, log *zap.Logger) *LiveLogsHandler {
	return &LiveLogsHandler{logs: logs, log: log}
}

type liveRequest struct {
	RequestID string `json:"request_id"`
	logFilterRequest
}

type liveResponse struct {
	RequestID string               `json:"request_id,omitempty"`
	Seq       uint64               `json:"seq"`
	Result    *services.LogsResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// Upgrade rejects plain HTTP requests to the websocket route.
func (h *LiveLogsHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *LiveLogsHandler) Handle(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newLiveSession(ctx, h.logs, conn.WriteJSON, h.log)
	defer func() {
		cancel()
		s.wait()
	}()

	h.log.Debug("live logs connected", zap.String("remote", conn.RemoteAddr().String()))
	for {
		var req liveRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("live logs read failed", zap.Error(err))
			}
			return
		}
		s.submit(req)
	}
}

// liveSession owns the request sequence of one connection.
type liveSession struct {
	ctx   context.Context
	logs  logFetcher
	seq   moderation.Sequencer
	mu    sync.Mutex
	write func(v interface{}) error
	wg    sync.WaitGroup
	log   *zap.Logger
}

func newLiveSession(ctx context.Context, logs logFetcher, write func(v interface{}) error, log *zap.Logger) *liveSession {
	return &liveSession{ctx: ctx, logs: logs, write: write, log: log}
}

func (s *liveSession) submit(req liveRequest) {
	ticket := s.seq.Next()
	f, err := req.toFilter()
	if err != nil {
		s.deliver(ticket, liveResponse{RequestID: req.RequestID, Seq: ticket, Error: err.Error()})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.logs.FetchModerationLogs(s.ctx, f)
		resp := liveResponse{RequestID: req.RequestID, Seq: ticket}
		if err != nil {
			s.log.Error("live logs fetch failed", zap.Error(err))
			resp.Error = "failed to fetch moderation logs"
		} else {
			resp.Result = &res
		}
		s.deliver(ticket, resp)
	}()
}

// deliver writes resp unless a newer request has been issued since ticket.
func (s *liveSession) deliver(ticket uint64, resp liveResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.Current(ticket) {
		metrics.StaleLogResponses.Inc()
		return
	}
	if err := s.write(resp); err != nil {
		s.log.Debug("live logs write failed", zap.Error(err))
	}
}

func (s *liveSession) wait() {
	s.wg.Wait()
}
