package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UsageEvent is one persisted tool action reported by a dashboard client.
type UsageEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;index:idx_usage_user_time,priority:1;not null" json:"user_id"`
	ProjectID  string         `gorm:"type:varchar(64);index" json:"project_id"`
	Tool       string         `gorm:"type:varchar(64);index;not null" json:"tool"`
	Action     string         `gorm:"type:varchar(32);index;not null" json:"action"`
	DurationMs *int64         `json:"duration_ms,omitempty"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	OccurredAt time.Time      `gorm:"not null;index:idx_usage_user_time,priority:2" json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (UsageEvent) TableName() string { return "usage_events" }
