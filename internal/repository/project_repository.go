package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

// ProjectRepository управляет жизненным циклом проекта и его эскроу.
// Бюджет замораживается у клиента при создании и покидает эскроу только
// через accept, cancel или исполнение вердикта арбитража.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository создаёт экземпляр репозитория.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, client_id, freelancer_id, budget, status, requirements_uri,
	rejection_reason, work_hash, work_uri, submitted_at, created_at, updated_at`

// GetByID возвращает проект по идентификатору.
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1`, projectColumns)
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("project repository: get by id %w", err)
	}
	return &project, nil
}

// ListByAccount возвращает проекты, где аккаунт — клиент или фрилансер.
func (r *ProjectRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Project, error) {
	var projects []models.Project
	query := fmt.Sprintf(`
		SELECT %s FROM projects
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, projectColumns)
	if err := r.db.SelectContext(ctx, &projects, query, accountID, limit, offset); err != nil {
		return nil, fmt.Errorf("project repository: list by account %w", err)
	}
	return projects, nil
}

// Create создаёт проект и замораживает бюджет клиента в эскроу.
func (r *ProjectRepository) Create(ctx context.Context, clientID uuid.UUID, budget int64, requirementsURI string) (*models.Project, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := freezeTx(ctx, tx, clientID, budget); err != nil {
		return nil, err
	}

	var project models.Project
	query := fmt.Sprintf(`
		INSERT INTO projects (client_id, budget, status, requirements_uri)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, projectColumns)
	if err := tx.GetContext(ctx, &project, query, clientID, budget, models.ProjectStatusCreated, requirementsURI); err != nil {
		return nil, fmt.Errorf("project repository: create %w", err)
	}

	if err := logTransactionTx(ctx, tx, clientID, &project.ID, models.TransactionTypeEscrowHold, budget,
		fmt.Sprintf("Эскроу по проекту #%d", project.ID)); err != nil {
		return nil, err
	}
	return &project, tx.Commit()
}

// Assign назначает фрилансера и переводит проект в in_progress.
func (r *ProjectRepository) Assign(ctx context.Context, projectID int64, freelancerID uuid.UUID) (*models.Project, error) {
	return r.transition(ctx, projectID, models.ProjectStatusInProgress, func(ctx context.Context, tx *sqlx.Tx, p *models.Project) error {
		if p.FreelancerID != nil {
			return apperror.New(apperror.ErrCodeConflict, "фрилансер уже назначен")
		}
		if p.ClientID == freelancerID {
			return apperror.New(apperror.ErrCodeValidation, "клиент не может быть исполнителем своего проекта")
		}
		_, err := tx.ExecContext(ctx, `UPDATE projects SET freelancer_id = $2 WHERE id = $1`, projectID, freelancerID)
		return err
	})
}

// SubmitWork фиксирует сданную работу и переводит проект в in_review.
// Повторная сдача после rejected проходит тем же путём.
func (r *ProjectRepository) SubmitWork(ctx context.Context, projectID int64, workHash, workURI string) (*models.Project, error) {
	return r.transition(ctx, projectID, models.ProjectStatusInReview, func(ctx context.Context, tx *sqlx.Tx, p *models.Project) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE projects SET work_hash = $2, work_uri = $3, submitted_at = NOW() WHERE id = $1
		`, projectID, workHash, workURI)
		return err
	})
}

// Accept принимает работу: эскроу уходит фрилансеру, репутация обеих
// сторон обновляется.
func (r *ProjectRepository) Accept(ctx context.Context, projectID int64) (*models.Project, error) {
	return r.transition(ctx, projectID, models.ProjectStatusCompleted, func(ctx context.Context, tx *sqlx.Tx, p *models.Project) error {
		if p.FreelancerID == nil {
			return apperror.Newf(apperror.ErrCodeConsistency, "проект #%d в in_review без фрилансера", projectID)
		}
		return releaseEscrowTx(ctx, tx, p, *p.FreelancerID)
	})
}

// Reject отклоняет работу с указанием причины. Эскроу остаётся заморожен,
// фрилансер может пересдать работу или открыть спор.
func (r *ProjectRepository) Reject(ctx context.Context, projectID int64, reason string) (*models.Project, error) {
	return r.transition(ctx, projectID, models.ProjectStatusRejected, func(ctx context.Context, tx *sqlx.Tx, p *models.Project) error {
		_, err := tx.ExecContext(ctx, `UPDATE projects SET rejection_reason = $2 WHERE id = $1`, projectID, reason)
		return err
	})
}

// Cancel отменяет проект до начала работы и возвращает эскроу клиенту.
func (r *ProjectRepository) Cancel(ctx context.Context, projectID int64) (*models.Project, error) {
	return r.transition(ctx, projectID, models.ProjectStatusCancelled, func(ctx context.Context, tx *sqlx.Tx, p *models.Project) error {
		if err := unfreezeTx(ctx, tx, p.ClientID, p.Budget); err != nil {
			return err
		}
		return logTransactionTx(ctx, tx, p.ClientID, &p.ID, models.TransactionTypeEscrowRefund, p.Budget,
			fmt.Sprintf("Возврат эскроу по отменённому проекту #%d", p.ID))
	})
}

// transition выполняет переход статуса проекта атомарно: блокирует строку,
// проверяет допустимость перехода, применяет побочные эффекты mutate.
func (r *ProjectRepository) transition(ctx context.Context, projectID int64, next string, mutate func(context.Context, *sqlx.Tx, *models.Project) error) (*models.Project, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	project, err := lockProjectTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionTo(project.Status, next) {
		return nil, apperror.Newf(apperror.ErrCodeConflict, "переход проекта из %q в %q недопустим", project.Status, next)
	}

	if mutate != nil {
		if err := mutate(ctx, tx, project); err != nil {
			return nil, err
		}
	}

	var updated models.Project
	query := fmt.Sprintf(`
		UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1
		RETURNING %s
	`, projectColumns)
	if err := tx.GetContext(ctx, &updated, query, projectID, next); err != nil {
		return nil, fmt.Errorf("project repository: transition to %s %w", next, err)
	}
	return &updated, tx.Commit()
}

// lockProjectTx читает проект под блокировкой строки.
func lockProjectTx(ctx context.Context, tx *sqlx.Tx, projectID int64) (*models.Project, error) {
	var project models.Project
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 FOR UPDATE`, projectColumns)
	if err := tx.GetContext(ctx, &project, query, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("project repository: lock %w", err)
	}
	return &project, nil
}

// releaseEscrowTx выплачивает эскроу победителю и обновляет репутацию сторон.
// Используется и при приёмке работы, и при исполнении вердикта арбитража.
func releaseEscrowTx(ctx context.Context, tx *sqlx.Tx, p *models.Project, winnerID uuid.UUID) error {
	if err := transferFrozenTx(ctx, tx, p.ClientID, winnerID, p.Budget); err != nil {
		return err
	}

	txType := models.TransactionTypeEscrowRelease
	if winnerID == p.ClientID {
		txType = models.TransactionTypeEscrowRefund
	}
	if err := logTransactionTx(ctx, tx, winnerID, &p.ID, txType, p.Budget,
		fmt.Sprintf("Выплата эскроу по проекту #%d", p.ID)); err != nil {
		return err
	}

	if p.FreelancerID == nil {
		return nil
	}
	if winnerID == *p.FreelancerID {
		if err := bumpStatsTx(ctx, tx, *p.FreelancerID, "projects_completed", 1); err != nil {
			return err
		}
		return bumpStatsTx(ctx, tx, *p.FreelancerID, "total_earned", p.Budget)
	}
	return bumpStatsTx(ctx, tx, *p.FreelancerID, "projects_failed", 1)
}
