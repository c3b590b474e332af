package repository

import (
	"context"
	"errors"
	"time"

	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/onboarding"
	appErr "github.com/devflowhub/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OnboardingRepository persists one progress row per user. Creation and step
// completion are single INSERT ... ON CONFLICT statements, so concurrent first
// access cannot produce duplicate rows.
type OnboardingRepository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.OnboardingProgress, error)
	MarkStep(ctx context.Context, userID uuid.UUID, step onboarding.Step) (*models.OnboardingProgress, error)
	// MarkCompleted stamps completed_at once every flag is set. It reports
	// true only for the call that performed the stamp.
	MarkCompleted(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error)
}

type onboardingRepository struct {
	db *gorm.DB
}

func NewOnboardingRepository(db *gorm.DB) OnboardingRepository {
	return &onboardingRepository{db: db}
}

var userIDConflict = []clause.Column{{Name: "user_id"}}

func (r *onboardingRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.OnboardingProgress, error) {
	row := models.OnboardingProgress{UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: userIDConflict, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, storeError(err, "create onboarding progress failed")
	}
	return r.get(ctx, userID)
}

func (r *onboardingRepository) MarkStep(ctx context.Context, userID uuid.UUID, step onboarding.Step) (*models.OnboardingProgress, error) {
	row := models.OnboardingProgress{UserID: userID}
	if _, err := onboarding.Apply(&row, step); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   userIDConflict,
			DoUpdates: clause.Assignments(map[string]interface{}{step.Column(): true, "updated_at": now}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, storeError(err, "complete onboarding step failed")
	}
	return r.get(ctx, userID)
}

func (r *onboardingRepository) MarkCompleted(ctx context.Context, userID uuid.UUID, at time.Time) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.OnboardingProgress{}).
		Where("user_id = ? AND completed_at IS NULL", userID)
	for _, s := range onboarding.Steps() {
		q = q.Where(s.Column() + " = true")
	}
	res := q.Update("completed_at", at)
	if res.Error != nil {
		return false, storeError(res.Error, "mark onboarding completed failed")
	}
	return res.RowsAffected == 1, nil
}

func (r *onboardingRepository) get(ctx context.Context, userID uuid.UUID) (*models.OnboardingProgress, error) {
	var out models.OnboardingProgress
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "onboarding progress not found")
		}
		return nil, storeError(err, "get onboarding progress failed")
	}
	return &out, nil
}
