package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/arbitration-backend/internal/arbitration"
	"github.com/ignatzorin/arbitration-backend/internal/config"
	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

// DisputeRepository реализует машину состояний спора. Каждый публичный
// метод — один переход, выполняемый в одной транзакции: строка спора
// блокируется, предусловия проверяются на заблокированном состоянии,
// эффекты (балансы, залоги, репутация, проект) применяются вместе с
// переходом. Конкурентные вызовы одного перехода: один применяет,
// остальные получают ошибку предусловия.
type DisputeRepository struct {
	db  *sqlx.DB
	cfg config.ArbitrationConfig
}

// NewDisputeRepository создаёт экземпляр репозитория.
func NewDisputeRepository(db *sqlx.DB, cfg config.ArbitrationConfig) *DisputeRepository {
	return &DisputeRepository{db: db, cfg: cfg}
}

const disputeColumns = `project_id, initiator_id, status, round, ruling,
	round_deadline, appeal_by, created_at, resolved_at`

// EvidenceParams — указатель на доказательство, записываемый вместе
// с переходом (открытие спора, апелляция) или отдельной операцией.
type EvidenceParams struct {
	ContentHash string
	URI         string
	Note        *string
}

// DisputeDetail — спор со всей историей раундов для выдачи клиенту.
type DisputeDetail struct {
	Dispute  models.Dispute             `json:"dispute"`
	Rounds   []models.DisputeRound      `json:"rounds"`
	Jurors   []models.DisputeJuror      `json:"jurors"`
	Votes    []models.DisputeVote       `json:"votes"`
	Bonds    []models.BondRecord        `json:"bonds"`
	Evidence []models.EvidenceReference `json:"evidence"`
}

// GetByProject возвращает спор по идентификатору проекта.
func (r *DisputeRepository) GetByProject(ctx context.Context, projectID int64) (*models.Dispute, error) {
	var dispute models.Dispute
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE project_id = $1`, disputeColumns)
	if err := r.db.GetContext(ctx, &dispute, query, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get by project %w", err)
	}
	return &dispute, nil
}

// GetDetail возвращает спор вместе с раундами, составами жюри, голосами,
// залогами и доказательствами.
func (r *DisputeRepository) GetDetail(ctx context.Context, projectID int64) (*DisputeDetail, error) {
	dispute, err := r.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	detail := &DisputeDetail{Dispute: *dispute}
	if err := r.db.SelectContext(ctx, &detail.Rounds, `
		SELECT dispute_id, round, mode, tier, bond_amount, selection_seed,
		       ruling, unanimous, no_quorum, started_at, deadline
		FROM dispute_rounds WHERE dispute_id = $1 ORDER BY round
	`, projectID); err != nil {
		return nil, fmt.Errorf("dispute repository: detail rounds %w", err)
	}
	if err := r.db.SelectContext(ctx, &detail.Jurors, `
		SELECT dispute_id, round, juror_id, has_voted
		FROM dispute_jurors WHERE dispute_id = $1 ORDER BY round, juror_id
	`, projectID); err != nil {
		return nil, fmt.Errorf("dispute repository: detail jurors %w", err)
	}
	if err := r.db.SelectContext(ctx, &detail.Votes, `
		SELECT dispute_id, round, juror_id, choice, cast_at
		FROM dispute_votes WHERE dispute_id = $1 ORDER BY round, cast_at
	`, projectID); err != nil {
		return nil, fmt.Errorf("dispute repository: detail votes %w", err)
	}
	if err := r.db.SelectContext(ctx, &detail.Bonds, `
		SELECT id, account_id, dispute_id, round, amount, disposition, created_at, disposed_at
		FROM bond_records WHERE dispute_id = $1 ORDER BY round, created_at
	`, projectID); err != nil {
		return nil, fmt.Errorf("dispute repository: detail bonds %w", err)
	}
	if err := r.db.SelectContext(ctx, &detail.Evidence, `
		SELECT id, dispute_id, round, submitter_id, content_hash, uri, note, created_at
		FROM evidence_references WHERE dispute_id = $1 ORDER BY created_at
	`, projectID); err != nil {
		return nil, fmt.Errorf("dispute repository: detail evidence %w", err)
	}
	return detail, nil
}

// Create открывает спор по отклонённому проекту: залог первого раунда
// замораживается у инициатора, проект уходит в in_dispute, спор стартует
// в ai_processing с дедлайном ожидания вердикта. Приложенное доказательство
// записывается той же транзакцией — спор не попадает к оракулу пустым.
func (r *DisputeRepository) Create(ctx context.Context, projectID int64, initiatorID uuid.UUID, evidence *EvidenceParams) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	project, err := lockProjectTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if err := arbitration.CheckCreate(project, initiatorID); err != nil {
		return nil, err
	}

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM disputes WHERE project_id = $1)`, projectID); err != nil {
		return nil, fmt.Errorf("dispute repository: create existence check %w", err)
	}
	if exists {
		return nil, apperror.ErrAlreadyDisputed
	}

	bond, err := arbitration.BondForRound(1, project.Budget, r.cfg.MinAiBond, r.cfg.MinAppealBond)
	if err != nil {
		return nil, err
	}
	if err := reserveBondTx(ctx, tx, initiatorID, projectID, 1, bond); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, apperror.ErrInsufficientBond
		}
		return nil, err
	}

	now := time.Now()
	deadline := now.Add(r.cfg.AiProcessingPeriod)

	var dispute models.Dispute
	query := fmt.Sprintf(`
		INSERT INTO disputes (project_id, initiator_id, status, round, round_deadline)
		VALUES ($1, $2, $3, 1, $4)
		RETURNING %s
	`, disputeColumns)
	if err := tx.GetContext(ctx, &dispute, query, projectID, initiatorID, models.DisputeStatusAiProcessing, deadline); err != nil {
		return nil, fmt.Errorf("dispute repository: create %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dispute_rounds (dispute_id, round, mode, bond_amount, deadline)
		VALUES ($1, 1, $2, $3, $4)
	`, projectID, models.RoundModeAi, bond, deadline); err != nil {
		return nil, fmt.Errorf("dispute repository: create round %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1
	`, projectID, models.ProjectStatusInDispute); err != nil {
		return nil, fmt.Errorf("dispute repository: create project status %w", err)
	}

	if err := bumpStatsTx(ctx, tx, initiatorID, "disputes_initiated", 1); err != nil {
		return nil, err
	}
	if evidence != nil {
		if err := insertEvidenceTx(ctx, tx, projectID, 1, initiatorID, evidence); err != nil {
			return nil, err
		}
	}
	return &dispute, tx.Commit()
}

// SubmitAiVerdict фиксирует вердикт ИИ-оракула и открывает окно апелляции.
// Валидность самого вердикта (решение, уверенность) проверяет сервис,
// здесь только переход ai_processing -> appealable.
func (r *DisputeRepository) SubmitAiVerdict(ctx context.Context, disputeID int64, ruling string) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := arbitration.CheckSubmitAiVerdict(dispute); err != nil {
		return nil, err
	}

	appealBy := time.Now().Add(r.cfg.AppealPeriod)

	var updated models.Dispute
	query := fmt.Sprintf(`
		UPDATE disputes SET status = $2, ruling = $3, appeal_by = $4 WHERE project_id = $1
		RETURNING %s
	`, disputeColumns)
	if err := tx.GetContext(ctx, &updated, query, disputeID, models.DisputeStatusAppealable, ruling, appealBy); err != nil {
		return nil, fmt.Errorf("dispute repository: submit ai verdict %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE dispute_rounds SET ruling = $3, unanimous = TRUE WHERE dispute_id = $1 AND round = $2
	`, disputeID, dispute.Round, ruling); err != nil {
		return nil, fmt.Errorf("dispute repository: submit ai verdict round %w", err)
	}
	return &updated, tx.Commit()
}

// Appeal эскалирует спор на следующий раунд: залог замораживается у
// апеллянта, жюри жеребьёвится детерминированно от свежего seed,
// спор уходит в voting. Новое доказательство апеллянта записывается
// той же транзакцией к открываемому раунду.
func (r *DisputeRepository) Appeal(ctx context.Context, disputeID int64, appellantID uuid.UUID, evidence *EvidenceParams) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	project, err := lockProjectTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	if project.FreelancerID == nil {
		return nil, apperror.Newf(apperror.ErrCodeConsistency, "спор #%d по проекту без фрилансера", disputeID)
	}
	if err := arbitration.CheckAppeal(dispute, appellantID, project.ClientID, *project.FreelancerID, time.Now()); err != nil {
		return nil, err
	}

	policy, err := arbitration.NextRound(dispute.Round)
	if err != nil {
		return nil, err
	}
	bond, err := arbitration.BondForRound(policy.Round, project.Budget, r.cfg.MinAiBond, r.cfg.MinAppealBond)
	if err != nil {
		return nil, err
	}
	if err := reserveBondTx(ctx, tx, appellantID, disputeID, policy.Round, bond); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, apperror.ErrInsufficientBond
		}
		return nil, err
	}

	updated, err := startJuryRoundTx(ctx, tx, r.cfg, dispute, project, policy, bond)
	if err != nil {
		return nil, err
	}
	if evidence != nil {
		if err := insertEvidenceTx(ctx, tx, disputeID, policy.Round, appellantID, evidence); err != nil {
			return nil, err
		}
	}
	return updated, tx.Commit()
}

// TimeoutAiRound принудительно выводит спор из ожидания ИИ после дедлайна:
// спор эскалируется на жюри первого уровня без дополнительного залога.
// Вызов доступен любому — таймаут двигает машину, а не чья-то привилегия.
func (r *DisputeRepository) TimeoutAiRound(ctx context.Context, disputeID int64) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	project, err := lockProjectTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := arbitration.CheckAiTimeout(dispute, time.Now()); err != nil {
		return nil, err
	}

	policy, err := arbitration.NextRound(dispute.Round)
	if err != nil {
		return nil, err
	}

	updated, err := startJuryRoundTx(ctx, tx, r.cfg, dispute, project, policy, 0)
	if err != nil {
		return nil, err
	}
	return updated, tx.Commit()
}

// CastVote принимает голос присяжного текущего раунда.
// Возвращает обновлённый спор и число отданных голосов раунда.
func (r *DisputeRepository) CastVote(ctx context.Context, disputeID int64, jurorID uuid.UUID, choice string) (*models.Dispute, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, disputeID)
	if err != nil {
		return nil, 0, err
	}

	var roster []models.DisputeJuror
	if err := tx.SelectContext(ctx, &roster, `
		SELECT dispute_id, round, juror_id, has_voted
		FROM dispute_jurors
		WHERE dispute_id = $1 AND round = $2
		ORDER BY juror_id
		FOR UPDATE
	`, disputeID, dispute.Round); err != nil {
		return nil, 0, fmt.Errorf("dispute repository: cast vote roster %w", err)
	}

	if err := arbitration.CheckCastVote(dispute, roster, jurorID, time.Now()); err != nil {
		return nil, 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dispute_votes (dispute_id, round, juror_id, choice)
		VALUES ($1, $2, $3, $4)
	`, disputeID, dispute.Round, jurorID, choice); err != nil {
		return nil, 0, fmt.Errorf("dispute repository: cast vote %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE dispute_jurors SET has_voted = TRUE
		WHERE dispute_id = $1 AND round = $2 AND juror_id = $3
	`, disputeID, dispute.Round, jurorID); err != nil {
		return nil, 0, fmt.Errorf("dispute repository: cast vote mark %w", err)
	}

	var votesCast int
	if err := tx.GetContext(ctx, &votesCast, `
		SELECT COUNT(*) FROM dispute_votes WHERE dispute_id = $1 AND round = $2
	`, disputeID, dispute.Round); err != nil {
		return nil, 0, fmt.Errorf("dispute repository: cast vote count %w", err)
	}
	return dispute, votesCast, tx.Commit()
}

// FinalizeRound подводит итог раунда голосования: при кворуме или по
// истечении срока голоса считаются, спор переходит в appealable либо
// finalized. Отсутствие голосов — no-quorum: восстанавливается решение
// предыдущего раунда, залог апеллянта возвращается. Не проголосовавшие
// присяжные слэшатся только когда раунд закрыт по дедлайну: при досрочном
// закрытии по кворуму их срок ещё не вышел.
func (r *DisputeRepository) FinalizeRound(ctx context.Context, disputeID int64) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	policy, err := arbitration.PolicyForRound(dispute.Round)
	if err != nil {
		return nil, err
	}

	var votes []models.DisputeVote
	if err := tx.SelectContext(ctx, &votes, `
		SELECT dispute_id, round, juror_id, choice, cast_at
		FROM dispute_votes WHERE dispute_id = $1 AND round = $2
	`, disputeID, dispute.Round); err != nil {
		return nil, fmt.Errorf("dispute repository: finalize votes %w", err)
	}
	now := time.Now()
	if err := arbitration.CheckFinalize(dispute, policy, len(votes), now); err != nil {
		return nil, err
	}
	deadlineDriven := now.After(dispute.RoundDeadline)

	ruling := ""
	unanimous := false
	noQuorum := false

	tally, tallyErr := arbitration.Tally(votes)
	switch {
	case tallyErr == nil:
		ruling = tally.Ruling
		unanimous = tally.Unanimous
	case errors.Is(tallyErr, arbitration.ErrNoVotes):
		// Жюри промолчало: решение предыдущего раунда восстанавливается,
		// залог апеллянта за сорванный раунд возвращается. Если решения
		// ещё не было — оракул промолчал, и раунд ИИ закрылся по таймауту, —
		// действует правило ничьей: статус-кво уже отклонённой работы.
		// Спор обязан выйти из voting в любом случае.
		noQuorum = true
		var prior sql.NullString
		if err := tx.GetContext(ctx, &prior, `
			SELECT ruling FROM dispute_rounds
			WHERE dispute_id = $1 AND round < $2 AND ruling IS NOT NULL
			ORDER BY round DESC LIMIT 1
		`, disputeID, dispute.Round); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("dispute repository: finalize prior ruling %w", err)
		}
		if prior.Valid {
			ruling = prior.String
		} else {
			ruling = models.RulingClientWins
		}

		bonds, err := listReservedBondsTx(ctx, tx, disputeID)
		if err != nil {
			return nil, err
		}
		for _, b := range bonds {
			if b.Round == dispute.Round {
				if err := refundBondTx(ctx, tx, b); err != nil {
					return nil, err
				}
			}
		}
	default:
		return nil, tallyErr
	}

	if err := finalizeJurorsTx(ctx, tx, r.cfg, disputeID, dispute.Round, ruling, noQuorum, deadlineDriven); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE dispute_rounds SET ruling = $3, unanimous = $4, no_quorum = $5
		WHERE dispute_id = $1 AND round = $2
	`, disputeID, dispute.Round, ruling, unanimous, noQuorum); err != nil {
		return nil, fmt.Errorf("dispute repository: finalize round record %w", err)
	}

	nextStatus := models.DisputeStatusAppealable
	var appealBy *time.Time
	if arbitration.IsTerminalRound(dispute.Round) {
		nextStatus = models.DisputeStatusFinalized
	} else {
		t := now.Add(r.cfg.AppealPeriod)
		appealBy = &t
	}

	var updated models.Dispute
	query := fmt.Sprintf(`
		UPDATE disputes SET status = $2, ruling = $3, appeal_by = $4 WHERE project_id = $1
		RETURNING %s
	`, disputeColumns)
	if err := tx.GetContext(ctx, &updated, query, disputeID, nextStatus, ruling, appealBy); err != nil {
		return nil, fmt.Errorf("dispute repository: finalize %w", err)
	}
	return &updated, tx.Commit()
}

// EnforceFinalRuling исполняет окончательное решение: эскроу уходит
// победителю, залоги победителя возвращаются, залоги проигравшего
// передаются победителю, репутация сторон обновляется, проект
// закрывается. Повторный вызов отклоняется до перевода средств.
func (r *DisputeRepository) EnforceFinalRuling(ctx context.Context, disputeID int64) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	project, err := lockProjectTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := arbitration.CheckEnforce(dispute, time.Now()); err != nil {
		return nil, err
	}
	if dispute.Ruling == nil {
		return nil, apperror.Newf(apperror.ErrCodeConsistency, "исполнение спора #%d без решения", disputeID)
	}
	if project.FreelancerID == nil {
		return nil, apperror.Newf(apperror.ErrCodeConsistency, "спор #%d по проекту без фрилансера", disputeID)
	}

	winnerID := models.WinnerOf(*dispute.Ruling, project.ClientID, *project.FreelancerID)
	loserID := models.LoserOf(*dispute.Ruling, project.ClientID, *project.FreelancerID)

	if err := releaseEscrowTx(ctx, tx, project, winnerID); err != nil {
		return nil, err
	}

	bonds, err := listReservedBondsTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	for _, b := range bonds {
		if b.AccountID == winnerID {
			err = refundBondTx(ctx, tx, b)
		} else {
			err = seizeBondTx(ctx, tx, b, winnerID)
		}
		if err != nil {
			return nil, err
		}
	}

	// После исполнения нераспределённых залогов быть не должно.
	unresolved, err := unresolvedBondCountTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	if unresolved != 0 {
		return nil, apperror.Newf(apperror.ErrCodeConsistency, "спор #%d: %d залогов остались нераспределёнными", disputeID, unresolved)
	}

	if err := bumpStatsTx(ctx, tx, winnerID, "disputes_won", 1); err != nil {
		return nil, err
	}
	if err := bumpStatsTx(ctx, tx, loserID, "disputes_lost", 1); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1
	`, disputeID, models.ProjectStatusCompleted); err != nil {
		return nil, fmt.Errorf("dispute repository: enforce project status %w", err)
	}

	var updated models.Dispute
	query := fmt.Sprintf(`
		UPDATE disputes SET status = $2, resolved_at = NOW() WHERE project_id = $1
		RETURNING %s
	`, disputeColumns)
	if err := tx.GetContext(ctx, &updated, query, disputeID, models.DisputeStatusResolved); err != nil {
		return nil, fmt.Errorf("dispute repository: enforce %w", err)
	}
	return &updated, tx.Commit()
}

// SubmitEvidence добавляет указатель на доказательство к текущему раунду.
func (r *DisputeRepository) SubmitEvidence(ctx context.Context, disputeID int64, submitterID uuid.UUID, params EvidenceParams) (*models.EvidenceReference, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	project, err := lockProjectTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := arbitration.CheckSubmitEvidence(dispute, project, submitterID); err != nil {
		return nil, err
	}

	var evidence models.EvidenceReference
	if err := tx.GetContext(ctx, &evidence, `
		INSERT INTO evidence_references (dispute_id, round, submitter_id, content_hash, uri, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, dispute_id, round, submitter_id, content_hash, uri, note, created_at
	`, disputeID, dispute.Round, submitterID, params.ContentHash, params.URI, params.Note); err != nil {
		return nil, fmt.Errorf("dispute repository: submit evidence %w", err)
	}
	return &evidence, tx.Commit()
}

// insertEvidenceTx записывает доказательство в рамках транзакции перехода.
func insertEvidenceTx(ctx context.Context, tx *sqlx.Tx, disputeID int64, round int, submitterID uuid.UUID, params *EvidenceParams) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO evidence_references (dispute_id, round, submitter_id, content_hash, uri, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, disputeID, round, submitterID, params.ContentHash, params.URI, params.Note); err != nil {
		return fmt.Errorf("dispute repository: insert evidence %w", err)
	}
	return nil
}

// ListExpired возвращает идентификаторы споров, которые пора двигать:
// ai_processing за дедлайном, voting за дедлайном и споры, готовые к
// исполнению — finalized либо appealable с закрытым окном апелляции.
// Используется фоновым обработчиком таймаутов.
func (r *DisputeRepository) ListExpired(ctx context.Context, now time.Time) (aiExpired, votingExpired, enforceable []int64, err error) {
	if err := r.db.SelectContext(ctx, &aiExpired, `
		SELECT project_id FROM disputes WHERE status = $1 AND round_deadline < $2
	`, models.DisputeStatusAiProcessing, now); err != nil {
		return nil, nil, nil, fmt.Errorf("dispute repository: list expired ai %w", err)
	}
	if err := r.db.SelectContext(ctx, &votingExpired, `
		SELECT project_id FROM disputes WHERE status = $1 AND round_deadline < $2
	`, models.DisputeStatusVoting, now); err != nil {
		return nil, nil, nil, fmt.Errorf("dispute repository: list expired voting %w", err)
	}
	if err := r.db.SelectContext(ctx, &enforceable, `
		SELECT project_id FROM disputes
		WHERE status = $1 OR (status = $2 AND appeal_by IS NOT NULL AND appeal_by < $3)
	`, models.DisputeStatusFinalized, models.DisputeStatusAppealable, now); err != nil {
		return nil, nil, nil, fmt.Errorf("dispute repository: list enforceable %w", err)
	}
	return aiExpired, votingExpired, enforceable, nil
}

// lockDisputeTx читает спор под блокировкой строки.
func lockDisputeTx(ctx context.Context, tx *sqlx.Tx, disputeID int64) (*models.Dispute, error) {
	var dispute models.Dispute
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE project_id = $1 FOR UPDATE`, disputeColumns)
	if err := tx.GetContext(ctx, &dispute, query, disputeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: lock %w", err)
	}
	return &dispute, nil
}

// startJuryRoundTx запускает раунд жюри: жеребьёвка состава от свежего
// seed, запись раунда, спор переводится в voting. Стороны спора и
// присяжные прошлых раундов из пула исключаются.
func startJuryRoundTx(ctx context.Context, tx *sqlx.Tx, cfg config.ArbitrationConfig, dispute *models.Dispute, project *models.Project, policy arbitration.RoundPolicy, bond int64) (*models.Dispute, error) {
	seed, err := arbitration.NewSelectionSeed()
	if err != nil {
		return nil, err
	}

	excluded := []uuid.UUID{project.ClientID}
	if project.FreelancerID != nil {
		excluded = append(excluded, *project.FreelancerID)
	}
	var priorJurors []uuid.UUID
	if err := tx.SelectContext(ctx, &priorJurors, `
		SELECT DISTINCT juror_id FROM dispute_jurors WHERE dispute_id = $1
	`, dispute.ProjectID); err != nil {
		return nil, fmt.Errorf("dispute repository: prior jurors %w", err)
	}
	excluded = append(excluded, priorJurors...)

	pool, err := eligiblePoolTx(ctx, tx, policy.Tier, cfg.MinJurorStake, excluded)
	if err != nil {
		return nil, err
	}
	jury, err := arbitration.SelectJury(pool, policy.JurySize, seed)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	deadline := now.Add(cfg.VotingPeriod)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dispute_rounds (dispute_id, round, mode, tier, bond_amount, selection_seed, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, dispute.ProjectID, policy.Round, policy.Mode, policy.Tier, bond, seed, deadline); err != nil {
		return nil, fmt.Errorf("dispute repository: start round %w", err)
	}
	for _, jurorID := range jury {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dispute_jurors (dispute_id, round, juror_id) VALUES ($1, $2, $3)
		`, dispute.ProjectID, policy.Round, jurorID); err != nil {
			return nil, fmt.Errorf("dispute repository: seat juror %w", err)
		}
	}

	var updated models.Dispute
	query := fmt.Sprintf(`
		UPDATE disputes SET status = $2, round = $3, round_deadline = $4, appeal_by = NULL
		WHERE project_id = $1
		RETURNING %s
	`, disputeColumns)
	if err := tx.GetContext(ctx, &updated, query, dispute.ProjectID, models.DisputeStatusVoting, policy.Round, deadline); err != nil {
		return nil, fmt.Errorf("dispute repository: start round status %w", err)
	}
	return &updated, nil
}

// finalizeJurorsTx закрывает раунд для присяжных: проголосовавшим
// засчитывается участие, совпавшим с большинством — голос с большинством.
// При no-quorum большинства нет. Не проголосовавшие слэшатся только при
// slashAbsent — когда раунд закрыт по дедлайну, а не досрочно по кворуму.
func finalizeJurorsTx(ctx context.Context, tx *sqlx.Tx, cfg config.ArbitrationConfig, disputeID int64, round int, ruling string, noQuorum, slashAbsent bool) error {
	var roster []models.DisputeJuror
	if err := tx.SelectContext(ctx, &roster, `
		SELECT dispute_id, round, juror_id, has_voted
		FROM dispute_jurors WHERE dispute_id = $1 AND round = $2
	`, disputeID, round); err != nil {
		return fmt.Errorf("dispute repository: finalize roster %w", err)
	}

	majority := arbitration.MajorityChoice(ruling)
	for _, seat := range roster {
		if !seat.HasVoted {
			if slashAbsent {
				if err := slashJurorTx(ctx, tx, seat.JurorID, cfg.SlashPermille, disputeID); err != nil {
					return err
				}
			}
			continue
		}
		if err := bumpStatsTx(ctx, tx, seat.JurorID, "jury_participation", 1); err != nil {
			return err
		}
		if noQuorum {
			continue
		}
		var choice string
		if err := tx.GetContext(ctx, &choice, `
			SELECT choice FROM dispute_votes
			WHERE dispute_id = $1 AND round = $2 AND juror_id = $3
		`, disputeID, round, seat.JurorID); err != nil {
			return fmt.Errorf("dispute repository: finalize juror vote %w", err)
		}
		if choice == majority {
			if err := bumpStatsTx(ctx, tx, seat.JurorID, "jury_majority_votes", 1); err != nil {
				return err
			}
		}
	}
	return nil
}
