package services

import (
	"context"
	"time"

	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/notify"
	"github.com/devflowhub/engine/internal/onboarding"
	"github.com/devflowhub/engine/internal/repository"
	"github.com/devflowhub/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OnboardingService exposes the per-user onboarding state machine.
type OnboardingService interface {
	GetProgress(ctx context.Context, userID uuid.UUID) (*ProgressView, error)
	// CompleteStep marks step done and returns the post-transition record.
	// Unknown step names fail with CodeInvalid without touching the store.
	CompleteStep(ctx context.Context, userID uuid.UUID, step string) (*ProgressView, error)
}

// ProgressView is a progress record with its derived completion summary.
type ProgressView struct {
	Progress   *models.OnboardingProgress `json:"progress"`
	Completion onboarding.Completion      `json:"completion"`
}

func newProgressView(p *models.OnboardingProgress) *ProgressView {
	return &ProgressView{Progress: p, Completion: onboarding.ComputeCompletion(p)}
}

type onboardingService struct {
	repo     repository.OnboardingRepository
	users    repository.UserRepository
	notifier notify.Notifier
	now      func() time.Time
}

func NewOnboardingService(repo repository.OnboardingRepository, users repository.UserRepository, notifier notify.Notifier) OnboardingService {
	return &onboardingService{repo: repo, users: users, notifier: notifier, now: time.Now}
}

var _ OnboardingService = (*onboardingService)(nil)

func (s *onboardingService) GetProgress(ctx context.Context, userID uuid.UUID) (*ProgressView, error) {
	p, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newProgressView(p), nil
}

func (s *onboardingService) CompleteStep(ctx context.Context, userID uuid.UUID, name string) (*ProgressView, error) {
	step, err := onboarding.ParseStep(name)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.MarkStep(ctx, userID, step)
	if err != nil {
		return nil, err
	}
	logger.L().Info("onboarding step completed", zap.String("user_id", userID.String()), zap.String("step", string(step)))

	if p.CompletedAt == nil && onboarding.Complete(p) {
		at := s.now().UTC()
		stamped, err := s.repo.MarkCompleted(ctx, userID, at)
		if err != nil {
			return nil, err
		}
		if stamped {
			p.CompletedAt = &at
			logger.L().Info("onboarding finished", zap.String("user_id", userID.String()))
			s.notifyCompleted(ctx, userID)
		}
	}
	return newProgressView(p), nil
}

// notifyCompleted is best-effort; failures are logged and dropped.
func (s *onboardingService) notifyCompleted(ctx context.Context, userID uuid.UUID) {
	if s.notifier == nil || s.users == nil {
		return
	}
	var u models.User
	if err := s.users.GetByID(ctx, userID, &u); err != nil {
		logger.L().Warn("onboarding notification skipped", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	if err := s.notifier.Send(ctx, notify.OnboardingComplete(u.Email, u.Name)); err != nil {
		logger.L().Warn("onboarding notification failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
