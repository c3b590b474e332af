package repository

import (
	"context"

	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/toolmap"
	appErr "github.com/devflowhub/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	ListByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]models.Project, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Archive(ctx context.Context, projectID uuid.UUID) error
	SetTool(ctx context.Context, projectID uuid.UUID, tool toolmap.StorageEnum) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) ListByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]models.Project, error) {
	var out []models.Project
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeArchived {
		q = q.Where("archived = false")
	}
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, storeError(err, "list projects by user failed")
	}
	return out, nil
}

func (r *projectRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, storeError(err, "count projects failed")
	}
	return n, nil
}

func (r *projectRepository) Archive(ctx context.Context, projectID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Update("archived", true)
	if res.Error != nil {
		return storeError(res.Error, "archive project failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	return nil
}

// SetTool updates only the tool column, leaving concurrent edits to other fields intact.
func (r *projectRepository) SetTool(ctx context.Context, projectID uuid.UUID, tool toolmap.StorageEnum) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Update("tool", tool)
	if res.Error != nil {
		return storeError(res.Error, "set project tool failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	return nil
}
