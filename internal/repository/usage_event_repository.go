package repository

import (
	"context"
	"time"

	"github.com/devflowhub/engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ToolUsage is one row of a per-tool usage aggregate.
type ToolUsage struct {
	Tool            string `json:"tool"`
	Action          string `json:"action"`
	Events          int64  `json:"events"`
	TotalDurationMs int64  `json:"total_duration_ms"`
}

type UsageEventRepository interface {
	BaseRepository[models.UsageEvent]
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageEvent, error)
	SummarizeByUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]ToolUsage, error)
}

type usageEventRepository struct {
	BaseRepository[models.UsageEvent]
	db *gorm.DB
}

func NewUsageEventRepository(db *gorm.DB) UsageEventRepository {
	return &usageEventRepository{BaseRepository: NewBaseRepository[models.UsageEvent](db), db: db}
}

func (r *usageEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageEvent, error) {
	var out []models.UsageEvent
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("occurred_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, storeError(err, "list usage events failed")
	}
	return out, nil
}

func (r *usageEventRepository) SummarizeByUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]ToolUsage, error) {
	var out []ToolUsage
	err := r.db.WithContext(ctx).Model(&models.UsageEvent{}).
		Select("tool, action, COUNT(*) AS events, COALESCE(SUM(duration_ms), 0) AS total_duration_ms").
		Where("user_id = ? AND occurred_at >= ?", userID, since).
		Group("tool, action").
		Order("tool, action").
		Scan(&out).Error
	if err != nil {
		return nil, storeError(err, "summarize usage failed")
	}
	return out, nil
}
