package models

import (
	"time"

	"github.com/google/uuid"
)

// OnboardingProgress tracks which onboarding milestones a user has reached.
// Flags only ever move from false to true.
type OnboardingProgress struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID               uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	CreatedFirstProject  bool       `gorm:"not null;default:false" json:"created_first_project"`
	ConnectedIntegration bool       `gorm:"not null;default:false" json:"connected_integration"`
	RanInSandbox         bool       `gorm:"not null;default:false" json:"ran_in_sandbox"`
	DeployedToStaging    bool       `gorm:"not null;default:false" json:"deployed_to_staging"`
	UsedAssistant        bool       `gorm:"not null;default:false" json:"used_assistant"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (OnboardingProgress) TableName() string { return "onboarding_progress" }
