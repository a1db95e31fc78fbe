package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
	"github.com/ignatzorin/arbitration-backend/internal/validation"
)

// ProjectRepository описывает зависимости ProjectService от слоя хранилища.
type ProjectRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Project, error)
	Create(ctx context.Context, clientID uuid.UUID, budget int64, requirementsURI string) (*models.Project, error)
	Assign(ctx context.Context, projectID int64, freelancerID uuid.UUID) (*models.Project, error)
	SubmitWork(ctx context.Context, projectID int64, workHash, workURI string) (*models.Project, error)
	Accept(ctx context.Context, projectID int64) (*models.Project, error)
	Reject(ctx context.Context, projectID int64, reason string) (*models.Project, error)
	Cancel(ctx context.Context, projectID int64) (*models.Project, error)
}

// CreateProjectInput — данные нового проекта.
type CreateProjectInput struct {
	Budget          int64  `json:"budget"`
	RequirementsURI string `json:"requirements_uri"`
}

// SubmitWorkInput — сдача работы фрилансером.
type SubmitWorkInput struct {
	WorkHash string `json:"work_hash"`
	WorkURI  string `json:"work_uri"`
}

// ProjectService управляет жизненным циклом проекта.
// Права сторон проверяются здесь: клиент создаёт, принимает и отклоняет,
// фрилансер сдаёт работу.
type ProjectService struct {
	repo ProjectRepository
}

// NewProjectService создаёт сервис проектов.
func NewProjectService(repo ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

// GetProject возвращает проект по идентификатору.
func (s *ProjectService) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// ListProjects возвращает проекты аккаунта.
func (s *ProjectService) ListProjects(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByAccount(ctx, accountID, limit, offset)
}

// CreateProject создаёт проект, бюджет уходит в эскроу.
func (s *ProjectService) CreateProject(ctx context.Context, clientID uuid.UUID, input CreateProjectInput) (*models.Project, error) {
	if err := validation.ValidateBudget(input.Budget); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateURI(input.RequirementsURI); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	return s.repo.Create(ctx, clientID, input.Budget, input.RequirementsURI)
}

// AssignFreelancer назначает исполнителя. Доступно только клиенту проекта.
func (s *ProjectService) AssignFreelancer(ctx context.Context, projectID int64, actorID, freelancerID uuid.UUID) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "исполнителя назначает клиент проекта")
	}
	return s.repo.Assign(ctx, projectID, freelancerID)
}

// SubmitWork фиксирует сданную работу. Доступно только исполнителю.
func (s *ProjectService) SubmitWork(ctx context.Context, projectID int64, actorID uuid.UUID, input SubmitWorkInput) (*models.Project, error) {
	if err := validation.ValidateContentHash(input.WorkHash); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateURI(input.WorkURI); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.FreelancerID == nil || *project.FreelancerID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "работу сдаёт исполнитель проекта")
	}
	return s.repo.SubmitWork(ctx, projectID, input.WorkHash, input.WorkURI)
}

// AcceptWork принимает работу, эскроу уходит исполнителю.
func (s *ProjectService) AcceptWork(ctx context.Context, projectID int64, actorID uuid.UUID) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "работу принимает клиент проекта")
	}
	return s.repo.Accept(ctx, projectID)
}

// RejectWork отклоняет работу с указанием причины.
func (s *ProjectService) RejectWork(ctx context.Context, projectID int64, actorID uuid.UUID, reason string) (*models.Project, error) {
	if err := validation.ValidateRejectionReason(reason); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "работу отклоняет клиент проекта")
	}
	return s.repo.Reject(ctx, projectID, reason)
}

// CancelProject отменяет проект до начала работы, эскроу возвращается.
func (s *ProjectService) CancelProject(ctx context.Context, projectID int64, actorID uuid.UUID) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != actorID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "проект отменяет клиент")
	}
	return s.repo.Cancel(ctx, projectID)
}
