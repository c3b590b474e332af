package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/repository"
	"github.com/devflowhub/engine/internal/usage"
	appErr "github.com/devflowhub/engine/pkg/errors"
	"github.com/devflowhub/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	deliveryTimeout    = 5 * time.Second
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// UsageService normalizes client tool actions, hands them to the event log and
// advances onboarding. It also persists delivered events on the worker side.
type UsageService interface {
	// Track never fails because of delivery or onboarding errors; only invalid
	// metadata is rejected.
	Track(ctx context.Context, userID uuid.UUID, input *TrackInput) (usage.Event, error)
	Record(ctx context.Context, userID uuid.UUID, e usage.Event, occurredAt time.Time) error
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageEvent, error)
	Summary(ctx context.Context, userID uuid.UUID, since time.Time) ([]repository.ToolUsage, error)
	// Drain waits for in-flight deliveries, up to ctx's deadline.
	Drain(ctx context.Context) error
}

type TrackInput struct {
	ProjectID  string
	Tool       string
	Action     string
	DurationMs *int64
	Metadata   usage.Metadata
}

type usageService struct {
	events     repository.UsageEventRepository
	log        usage.EventLogger
	onboarding OnboardingService

	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

func NewUsageService(events repository.UsageEventRepository, log usage.EventLogger, onboarding OnboardingService) UsageService {
	return &usageService{events: events, log: log, onboarding: onboarding}
}

var _ UsageService = (*usageService)(nil)

func (s *usageService) Track(ctx context.Context, userID uuid.UUID, in *TrackInput) (usage.Event, error) {
	if err := usage.ValidateMetadata(in.Metadata); err != nil {
		return usage.Event{}, err
	}
	e := usage.Normalize(in.ProjectID, in.Tool, in.Action, in.DurationMs, in.Metadata)
	if !e.Resolved() {
		logger.L().Warn("usage event with unresolved tool", zap.String("user_id", userID.String()), zap.String("tool", e.Tool))
	}

	if s.log != nil {
		s.startDelivery(context.WithoutCancel(ctx), userID, e)
	}

	if step, ok := usage.StepFor(e); ok && s.onboarding != nil {
		if _, err := s.onboarding.CompleteStep(ctx, userID, string(step)); err != nil {
			logger.L().Warn("onboarding update from usage failed", zap.String("user_id", userID.String()), zap.String("step", string(step)), zap.Error(err))
		}
	}
	return e, nil
}

// startDelivery spawns a delivery unless Drain has begun. Add and Wait never
// overlap because both happen under mu.
func (s *usageService) startDelivery(ctx context.Context, userID uuid.UUID, e usage.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		logger.L().Warn("usage event dropped during shutdown", zap.String("user_id", userID.String()), zap.Stringer("event", e))
		return
	}
	s.inflight.Add(1)
	go s.deliver(ctx, userID, e)
}

func (s *usageService) deliver(ctx context.Context, userID uuid.UUID, e usage.Event) {
	defer s.inflight.Done()
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	if err := s.log.Log(ctx, userID.String(), e); err != nil {
		logger.L().Error("usage event delivery failed", zap.String("user_id", userID.String()), zap.Stringer("event", e), zap.Error(err))
	}
}

func (s *usageService) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return appErr.Wrap(ctx.Err(), appErr.CodeDeadline, "usage deliveries still in flight")
	}
}

func (s *usageService) Record(ctx context.Context, userID uuid.UUID, e usage.Event, occurredAt time.Time) error {
	var md datatypes.JSON
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "invalid usage metadata")
		}
		md = datatypes.JSON(b)
	}
	row := &models.UsageEvent{
		UserID:     userID,
		ProjectID:  e.ProjectID,
		Tool:       e.Tool,
		Action:     string(e.Action),
		DurationMs: e.DurationMs,
		Metadata:   md,
		OccurredAt: occurredAt,
	}
	return s.events.Create(ctx, row)
}

func (s *usageService) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	} else if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.events.ListByUser(ctx, userID, limit)
}

func (s *usageService) Summary(ctx context.Context, userID uuid.UUID, since time.Time) ([]repository.ToolUsage, error) {
	return s.events.SummarizeByUser(ctx, userID, since)
}
