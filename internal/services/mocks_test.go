package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/notify"
	"github.com/devflowhub/engine/internal/onboarding"
	"github.com/devflowhub/engine/internal/repository"
	"github.com/devflowhub/engine/internal/toolmap"
	"github.com/devflowhub/engine/internal/usage"
	appErr "github.com/devflowhub/engine/pkg/errors"
	"github.com/devflowhub/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Set(zap.NewNop())
	os.Exit(m.Run())
}

// memOnboardingRepo mimics the upsert semantics of the Postgres repository.
type memOnboardingRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*models.OnboardingProgress
	calls int
}

func newMemOnboardingRepo() *memOnboardingRepo {
	return &memOnboardingRepo{rows: map[uuid.UUID]*models.OnboardingProgress{}}
}

func (r *memOnboardingRepo) row(userID uuid.UUID) *models.OnboardingProgress {
	p, ok := r.rows[userID]
	if !ok {
		now := time.Now()
		p = &models.OnboardingProgress{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		r.rows[userID] = p
	}
	return p
}

func (r *memOnboardingRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.OnboardingProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	cp := *r.row(userID)
	return &cp, nil
}

func (r *memOnboardingRepo) MarkStep(ctx context.Context, userID uuid.UUID, step onboarding.Step) (*models.OnboardingProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	var probe models.OnboardingProgress
	if _, err := onboarding.Apply(&probe, step); err != nil {
		return nil, err
	}
	p := r.row(userID)
	if changed, _ := onboarding.Apply(p, step); changed {
		p.UpdatedAt = time.Now()
	}
	cp := *p
	return &cp, nil
}

func (r *memOnboardingRepo) MarkCompleted(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[userID]
	if !ok || p.CompletedAt != nil || !onboarding.Complete(p) {
		return false, nil
	}
	p.CompletedAt = &at
	return true, nil
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, obj *models.User) error {
	args := m.Called(ctx, obj)
	if args.Error(0) == nil && obj.ID == uuid.Nil {
		obj.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id any, dest *models.User) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.User)
	}
	return args.Error(0)
}

func (m *mockUserRepository) Update(ctx context.Context, obj *models.User) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	args := m.Called(ctx, email, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.User)
	}
	return args.Error(0)
}

type mockProjectRepository struct {
	mock.Mock
}

func (m *mockProjectRepository) Create(ctx context.Context, obj *models.Project) error {
	args := m.Called(ctx, obj)
	if args.Error(0) == nil && obj.ID == uuid.Nil {
		obj.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockProjectRepository) GetByID(ctx context.Context, id any, dest *models.Project) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.Project)
	}
	return args.Error(0)
}

func (m *mockProjectRepository) Update(ctx context.Context, obj *models.Project) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockProjectRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProjectRepository) ListByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]models.Project, error) {
	args := m.Called(ctx, userID, includeArchived)
	if v := args.Get(0); v != nil {
		return v.([]models.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockProjectRepository) Archive(ctx context.Context, projectID uuid.UUID) error {
	return m.Called(ctx, projectID).Error(0)
}

func (m *mockProjectRepository) SetTool(ctx context.Context, projectID uuid.UUID, tool toolmap.StorageEnum) error {
	return m.Called(ctx, projectID, tool).Error(0)
}

type mockUsageEventRepository struct {
	mock.Mock
}

func (m *mockUsageEventRepository) Create(ctx context.Context, obj *models.UsageEvent) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockUsageEventRepository) GetByID(ctx context.Context, id any, dest *models.UsageEvent) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockUsageEventRepository) Update(ctx context.Context, obj *models.UsageEvent) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockUsageEventRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUsageEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageEvent, error) {
	args := m.Called(ctx, userID, limit)
	if v := args.Get(0); v != nil {
		return v.([]models.UsageEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsageEventRepository) SummarizeByUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]repository.ToolUsage, error) {
	args := m.Called(ctx, userID, since)
	if v := args.Get(0); v != nil {
		return v.([]repository.ToolUsage), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEventLogger struct {
	mock.Mock
}

func (m *mockEventLogger) Log(ctx context.Context, userID string, e usage.Event) error {
	return m.Called(ctx, userID, e).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockOnboardingService struct {
	mock.Mock
}

func (m *mockOnboardingService) GetProgress(ctx context.Context, userID uuid.UUID) (*ProgressView, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*ProgressView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOnboardingService) CompleteStep(ctx context.Context, userID uuid.UUID, step string) (*ProgressView, error) {
	args := m.Called(ctx, userID, step)
	if v := args.Get(0); v != nil {
		return v.(*ProgressView), args.Error(1)
	}
	return nil, args.Error(1)
}

var errStoreDown = appErr.New(appErr.CodeUnavailable, "store unavailable")
