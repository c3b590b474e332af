package repository

import (
	"context"
	"flag"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/onboarding"
	"github.com/devflowhub/engine/internal/toolmap"
	"github.com/devflowhub/engine/pkg/database"
	appErr "github.com/devflowhub/engine/pkg/errors"
	"github.com/devflowhub/engine/pkg/logger"
)

var (
	testDB    *gorm.DB
	dbErr     error
	container *postgres.PostgresContainer
)

func TestMain(m *testing.M) {
	flag.Parse()
	logger.Set(zap.NewNop())

	if !testing.Short() {
		ctx := context.Background()
		container, dbErr = postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("devflow"),
			postgres.WithUsername("devflow"),
			postgres.WithPassword("devflow"),
			postgres.BasicWaitStrategies(),
		)
		if dbErr == nil {
			var dsn string
			dsn, dbErr = container.ConnectionString(ctx, "sslmode=disable")
			if dbErr == nil {
				testDB, dbErr = database.OpenForTest(ctx, dsn)
			}
			if dbErr == nil {
				dbErr = testDB.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
			}
			if dbErr == nil {
				dbErr = testDB.AutoMigrate(models.All()...)
			}
		}
	}

	code := m.Run()
	if container != nil {
		_ = container.Terminate(context.Background())
	}
	os.Exit(code)
}

func requireDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres tests skipped in short mode")
	}
	if dbErr != nil || testDB == nil {
		t.Skipf("postgres container unavailable: %v", dbErr)
	}
	return testDB
}

func TestOnboardingGetOrCreateStartsPending(t *testing.T) {
	repo := NewOnboardingRepository(requireDB(t))
	ctx := context.Background()
	uid := uuid.New()

	p, err := repo.GetOrCreate(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, uid, p.UserID)
	require.Equal(t, 0, onboarding.ComputeCompletion(p).Completed)
	require.Nil(t, p.CompletedAt)

	again, err := repo.GetOrCreate(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, p.ID, again.ID)
}

func TestOnboardingConcurrentFirstAccessCreatesOneRow(t *testing.T) {
	db := requireDB(t)
	repo := NewOnboardingRepository(db)
	ctx := context.Background()
	uid := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = repo.GetOrCreate(ctx, uid)
			} else {
				_, err = repo.MarkStep(ctx, uid, onboarding.UsedAssistant)
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var n int64
	require.NoError(t, db.Model(&models.OnboardingProgress{}).Where("user_id = ?", uid).Count(&n).Error)
	require.Equal(t, int64(1), n)

	p, err := repo.GetOrCreate(ctx, uid)
	require.NoError(t, err)
	require.True(t, p.UsedAssistant)
}

func TestOnboardingMarkStepIsIdempotentAndMonotonic(t *testing.T) {
	repo := NewOnboardingRepository(requireDB(t))
	ctx := context.Background()
	uid := uuid.New()

	first, err := repo.MarkStep(ctx, uid, onboarding.CreatedFirstProject)
	require.NoError(t, err)
	require.True(t, first.CreatedFirstProject)
	require.False(t, first.RanInSandbox)

	second, err := repo.MarkStep(ctx, uid, onboarding.CreatedFirstProject)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, onboarding.ComputeCompletion(first), onboarding.ComputeCompletion(second))

	third, err := repo.MarkStep(ctx, uid, onboarding.RanInSandbox)
	require.NoError(t, err)
	require.True(t, third.CreatedFirstProject)
	require.True(t, third.RanInSandbox)

	_, err = repo.MarkStep(ctx, uid, onboarding.Step("bogus"))
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestOnboardingMarkCompletedOnlyOnce(t *testing.T) {
	repo := NewOnboardingRepository(requireDB(t))
	ctx := context.Background()
	uid := uuid.New()

	for _, s := range onboarding.Steps()[:4] {
		_, err := repo.MarkStep(ctx, uid, s)
		require.NoError(t, err)
	}
	stamped, err := repo.MarkCompleted(ctx, uid, time.Now())
	require.NoError(t, err)
	require.False(t, stamped, "four of five steps must not stamp completion")

	_, err = repo.MarkStep(ctx, uid, onboarding.Steps()[4])
	require.NoError(t, err)

	stamped, err = repo.MarkCompleted(ctx, uid, time.Now())
	require.NoError(t, err)
	require.True(t, stamped)

	stamped, err = repo.MarkCompleted(ctx, uid, time.Now())
	require.NoError(t, err)
	require.False(t, stamped)
}

func TestProjectToolAndUniqueName(t *testing.T) {
	repo := NewProjectRepository(requireDB(t))
	ctx := context.Background()
	uid := uuid.New()

	p := models.Project{UserID: uid, Name: "landing-page"}
	require.NoError(t, repo.Create(ctx, &p))
	require.NoError(t, repo.SetTool(ctx, p.ID, toolmap.StorageUIStudio))

	var got models.Project
	require.NoError(t, repo.GetByID(ctx, p.ID, &got))
	require.NotNil(t, got.Tool)
	require.Equal(t, toolmap.StorageUIStudio, *got.Tool)

	dup := models.Project{UserID: uid, Name: "landing-page"}
	err := repo.Create(ctx, &dup)
	require.True(t, appErr.IsCode(err, appErr.CodeAlreadyExists), "got %v", err)

	require.True(t, appErr.IsCode(repo.SetTool(ctx, uuid.New(), toolmap.StorageEditor), appErr.CodeNotFound))

	n, err := repo.CountByUser(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestUsageEventSummary(t *testing.T) {
	repo := NewUsageEventRepository(requireDB(t))
	ctx := context.Background()
	uid := uuid.New()
	d := int64(250)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.UsageEvent{
			UserID: uid, ProjectID: "p1", Tool: "sandbox", Action: "run",
			DurationMs: &d, Metadata: datatypes.JSON(`{}`), OccurredAt: time.Now(),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.UsageEvent{
		UserID: uid, ProjectID: "p1", Tool: "editor", Action: "open", OccurredAt: time.Now(),
	}))

	sum, err := repo.SummarizeByUser(ctx, uid, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, []ToolUsage{
		{Tool: "editor", Action: "open", Events: 1, TotalDurationMs: 0},
		{Tool: "sandbox", Action: "run", Events: 3, TotalDurationMs: 750},
	}, sum)

	list, err := repo.ListByUser(ctx, uid, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
