package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/repository"
	"github.com/devflowhub/engine/internal/services"
	"github.com/devflowhub/engine/internal/usage"
	"github.com/devflowhub/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if v := args.Get(0); v != nil {
		return v.(*asynq.TaskInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUsageService struct {
	mock.Mock
}

func (m *mockUsageService) Track(ctx context.Context, userID uuid.UUID, input *services.TrackInput) (usage.Event, error) {
	args := m.Called(ctx, userID, input)
	return args.Get(0).(usage.Event), args.Error(1)
}

func (m *mockUsageService) Record(ctx context.Context, userID uuid.UUID, e usage.Event, occurredAt time.Time) error {
	return m.Called(ctx, userID, e, occurredAt).Error(0)
}

func (m *mockUsageService) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageEvent, error) {
	args := m.Called(ctx, userID, limit)
	return nil, args.Error(1)
}

func (m *mockUsageService) Summary(ctx context.Context, userID uuid.UUID, since time.Time) ([]repository.ToolUsage, error) {
	args := m.Called(ctx, userID, since)
	return nil, args.Error(1)
}

func (m *mockUsageService) Drain(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestEnqueuerBuildsTask(t *testing.T) {
	client := &mockClient{}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &UsageEnqueuer{client: client, queue: "usage", now: func() time.Time { return at }}
	e := usage.Normalize("p1", "bolt", "deploy", nil, usage.Metadata{usage.KeyEnvironment: "staging"})

	client.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		var p UsageLogPayload
		if task.Type() != TypeUsageLog || json.Unmarshal(task.Payload(), &p) != nil {
			return false
		}
		return p.UserID == "u1" && p.OccurredAt.Equal(at) && p.Event.Tool == "deployer" &&
			p.Event.Metadata[usage.KeyEnvironment] == "staging"
	}), mock.Anything).Return(&asynq.TaskInfo{ID: "t1", Queue: "usage"}, nil).Once()

	require.NoError(t, q.Log(context.Background(), "u1", e))
	client.AssertExpectations(t)
}

func TestEnqueuerWrapsError(t *testing.T) {
	client := &mockClient{}
	q := &UsageEnqueuer{client: client, queue: "usage", now: time.Now}
	client.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused"))

	require.Error(t, q.Log(context.Background(), "u1", usage.Event{Tool: "editor", Action: usage.ActionOpen}))
}

func TestHandleUsageLogPersists(t *testing.T) {
	svc := &mockUsageService{}
	h := NewUsageLogTaskHandler(svc)
	uid := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := usage.Normalize("p1", "replit", "run", nil, nil)

	task, err := NewUsageLogTask(uid.String(), e, at)
	require.NoError(t, err)

	svc.On("Record", mock.Anything, uid, e, at).Return(nil).Once()
	require.NoError(t, h.HandleUsageLog(context.Background(), task))
	svc.AssertExpectations(t)
}

func TestHandleUsageLogSkipsRetryOnBadPayload(t *testing.T) {
	h := NewUsageLogTaskHandler(&mockUsageService{})

	err := h.HandleUsageLog(context.Background(), asynq.NewTask(TypeUsageLog, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	b, _ := json.Marshal(UsageLogPayload{UserID: "not-a-uuid"})
	err = h.HandleUsageLog(context.Background(), asynq.NewTask(TypeUsageLog, b))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleUsageLogReturnsStoreErrorForRetry(t *testing.T) {
	svc := &mockUsageService{}
	h := NewUsageLogTaskHandler(svc)
	uid := uuid.New()
	task, err := NewUsageLogTask(uid.String(), usage.Event{Tool: "editor", Action: usage.ActionEdit}, time.Now())
	require.NoError(t, err)

	boom := errors.New("db down")
	svc.On("Record", mock.Anything, uid, mock.Anything, mock.Anything).Return(boom)
	require.ErrorIs(t, h.HandleUsageLog(context.Background(), task), boom)
}
