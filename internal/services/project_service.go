package services

import (
	"context"

	"github.com/devflowhub/engine/internal/models"
	"github.com/devflowhub/engine/internal/onboarding"
	"github.com/devflowhub/engine/internal/repository"
	"github.com/devflowhub/engine/internal/toolmap"
	appErr "github.com/devflowhub/engine/pkg/errors"
	"github.com/devflowhub/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service interface and related DTOs
type ProjectService interface {
	CreateProject(ctx context.Context, userID uuid.UUID, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID, filters *ProjectFilters) ([]models.Project, error)
	UpdateProject(ctx context.Context, projectID, userID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error

	// SetTool selects the integration for a project. tool may be any spelling
	// of a module, provider or storage enum; unknown input is CodeInvalid.
	SetTool(ctx context.Context, projectID, userID uuid.UUID, tool string) (*models.Project, error)
}

type CreateProjectInput struct {
	Name        string
	Description string
	Tool        string
}

type UpdateProjectInput struct {
	Description *string
	Archived    *bool
}

type ProjectFilters struct {
	IncludeArchived bool
}

type projectService struct {
	projectRepo repository.ProjectRepository
	onboarding  OnboardingService
}

func NewProjectService(projectRepo repository.ProjectRepository, onboarding OnboardingService) ProjectService {
	return &projectService{projectRepo: projectRepo, onboarding: onboarding}
}

// Ensure interfaces are satisfied at compile time
var _ ProjectService = (*projectService)(nil)

// CreateProject creates a new project for the given user and marks the
// createdFirstProject milestone.
func (s *projectService) CreateProject(ctx context.Context, userID uuid.UUID, input *CreateProjectInput) (*models.Project, error) {
	logger.L().Info("create project called", zap.String("user_id", userID.String()), zap.String("name", input.Name))

	p := &models.Project{
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
	}
	if input.Tool != "" {
		e, ok := toolmap.ToDBEnum(input.Tool)
		if !ok {
			return nil, unknownTool(input.Tool)
		}
		p.Tool = &e
	}

	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	logger.L().Info("project created", zap.String("project_id", p.ID.String()), zap.String("user_id", userID.String()))
	s.advance(ctx, userID, onboarding.CreatedFirstProject)
	if p.Tool != nil {
		s.advance(ctx, userID, onboarding.ConnectedIntegration)
	}
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeForbidden, "user does not own project")
	}
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context, userID uuid.UUID, filters *ProjectFilters) ([]models.Project, error) {
	includeArchived := filters != nil && filters.IncludeArchived
	return s.projectRepo.ListByUser(ctx, userID, includeArchived)
}

func (s *projectService) UpdateProject(ctx context.Context, projectID, userID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error) {
	logger.L().Info("update project", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	p, err := s.GetProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	if updates.Description != nil {
		p.Description = *updates.Description
	}
	if updates.Archived != nil {
		p.Archived = *updates.Archived
	}

	if err := s.projectRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *projectService) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	logger.L().Info("delete project", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return err
	}
	logger.L().Info("project deleted", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	return nil
}

func (s *projectService) SetTool(ctx context.Context, projectID, userID uuid.UUID, tool string) (*models.Project, error) {
	e, ok := toolmap.ToDBEnum(tool)
	if !ok {
		return nil, unknownTool(tool)
	}
	p, err := s.GetProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.projectRepo.SetTool(ctx, projectID, e); err != nil {
		return nil, err
	}
	p.Tool = &e

	logger.L().Info("project tool set",
		zap.String("project_id", projectID.String()),
		zap.String("tool", string(e)),
		zap.String("label", toolmap.BrandLabelFromAny(string(e))),
	)
	s.advance(ctx, userID, onboarding.ConnectedIntegration)
	return p, nil
}

func (s *projectService) advance(ctx context.Context, userID uuid.UUID, step onboarding.Step) {
	if s.onboarding == nil {
		return
	}
	if _, err := s.onboarding.CompleteStep(ctx, userID, string(step)); err != nil {
		logger.L().Warn("onboarding update failed", zap.String("user_id", userID.String()), zap.String("step", string(step)), zap.Error(err))
	}
}

func unknownTool(input string) error {
	_, err := toolmap.Resolve(input)
	return err
}
