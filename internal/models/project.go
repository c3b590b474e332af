package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/devflowhub/engine/internal/toolmap"
)

// Project is a dashboard workspace owned by a user. Tool holds the storage
// enum of the integration selected for it, if any.
type Project struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID            `gorm:"type:uuid;index;not null;index:idx_projects_user_name,unique,priority:1" json:"user_id" validate:"required"`
	Name        string               `gorm:"not null;index:idx_projects_user_name,unique,priority:2" json:"name" validate:"required"`
	Description string               `gorm:"type:text" json:"description"`
	Tool        *toolmap.StorageEnum `gorm:"type:varchar(16);index" json:"tool,omitempty"`
	Archived    bool                 `gorm:"not null;default:false;index" json:"archived"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	DeletedAt   gorm.DeletedAt       `gorm:"index" json:"-"`
}
