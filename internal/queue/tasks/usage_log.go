package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devflowhub/engine/internal/services"
	"github.com/devflowhub/engine/internal/usage"
	appErr "github.com/devflowhub/engine/pkg/errors"
	"github.com/devflowhub/engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeUsageLog is the asynq task type carrying one normalized usage event.
const TypeUsageLog = "usage:log"

// UsageLogPayload is the task payload for usage:log tasks.
type UsageLogPayload struct {
	UserID     string      `json:"user_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Event      usage.Event `json:"event"`
}

// NewUsageLogTask builds a usage:log task.
func NewUsageLogTask(userID string, e usage.Event, at time.Time) (*asynq.Task, error) {
	b, err := json.Marshal(UsageLogPayload{UserID: userID, OccurredAt: at.UTC(), Event: e})
	if err != nil {
		return nil, fmt.Errorf("marshal usage payload: %w", err)
	}
	return asynq.NewTask(TypeUsageLog, b), nil
}

// enqueuer is the subset of *asynq.Client used by UsageEnqueuer.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// UsageEnqueuer implements usage.EventLogger on top of asynq.
type UsageEnqueuer struct {
	client enqueuer
	queue  string
	now    func() time.Time
}

func NewUsageEnqueuer(client *asynq.Client, queue string) *UsageEnqueuer {
	return &UsageEnqueuer{client: client, queue: queue, now: time.Now}
}

var _ usage.EventLogger = (*UsageEnqueuer)(nil)

func (q *UsageEnqueuer) Log(ctx context.Context, userID string, e usage.Event) error {
	t, err := NewUsageLogTask(userID, e, q.now())
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, t, asynq.Queue(q.queue), asynq.MaxRetry(3), asynq.Timeout(30*time.Second))
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue usage event failed")
	}
	logger.L().Debug("usage event enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}

// UsageLogTaskHandler persists usage:log tasks.
type UsageLogTaskHandler struct {
	usage services.UsageService
}

func NewUsageLogTaskHandler(usage services.UsageService) *UsageLogTaskHandler {
	return &UsageLogTaskHandler{usage: usage}
}

func (h *UsageLogTaskHandler) HandleUsageLog(ctx context.Context, t *asynq.Task) error {
	var p UsageLogPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid usage task payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	uid, err := uuid.Parse(p.UserID)
	if err != nil {
		logger.L().Error("invalid user id in usage task", zap.String("user_id", p.UserID), zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if p.OccurredAt.IsZero() {
		p.OccurredAt = time.Now().UTC()
	}

	if err := h.usage.Record(ctx, uid, p.Event, p.OccurredAt); err != nil {
		logger.L().Error("persist usage event failed", zap.String("user_id", p.UserID), zap.Stringer("event", p.Event), zap.Error(err))
		return err
	}
	logger.L().Debug("usage event persisted", zap.String("user_id", p.UserID), zap.Stringer("event", p.Event))
	return nil
}
