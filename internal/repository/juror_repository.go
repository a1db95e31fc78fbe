package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/arbitration-backend/internal/arbitration"
	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

// JurorRepository ведёт реестр присяжных: стейки, тиры и репутацию.
type JurorRepository struct {
	db *sqlx.DB
}

// NewJurorRepository создаёт экземпляр репозитория.
func NewJurorRepository(db *sqlx.DB) *JurorRepository {
	return &JurorRepository{db: db}
}

// GetByAccount возвращает запись присяжного или nil, если её нет.
func (r *JurorRepository) GetByAccount(ctx context.Context, accountID uuid.UUID) (*models.Juror, error) {
	var juror models.Juror
	query := `SELECT account_id, tier, staked, registered_at FROM jurors WHERE account_id = $1`
	if err := r.db.GetContext(ctx, &juror, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("juror repository: get by account %w", err)
	}
	return &juror, nil
}

// GetStats возвращает репутационные счётчики аккаунта, нулевые если записи нет.
func (r *JurorRepository) GetStats(ctx context.Context, accountID uuid.UUID) (*models.ReputationStats, error) {
	var stats models.ReputationStats
	query := `
		SELECT account_id, projects_completed, projects_failed, total_earned,
		       disputes_initiated, disputes_won, disputes_lost,
		       jury_participation, jury_majority_votes
		FROM reputation_stats WHERE account_id = $1
	`
	if err := r.db.GetContext(ctx, &stats, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ReputationStats{AccountID: accountID}, nil
		}
		return nil, fmt.Errorf("juror repository: get stats %w", err)
	}
	return &stats, nil
}

// Register ставит аккаунт в реестр присяжных, замораживая стейк.
// Тир вычисляется по репутации на момент регистрации.
func (r *JurorRepository) Register(ctx context.Context, accountID uuid.UUID, stake int64) (*models.Juror, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var registered bool
	if err := tx.GetContext(ctx, &registered, `SELECT EXISTS(SELECT 1 FROM jurors WHERE account_id = $1)`, accountID); err != nil {
		return nil, fmt.Errorf("juror repository: register existence check %w", err)
	}
	if registered {
		return nil, apperror.ErrJurorRegistered
	}

	var stats models.ReputationStats
	err = tx.GetContext(ctx, &stats, `
		SELECT account_id, projects_completed, projects_failed, total_earned,
		       disputes_initiated, disputes_won, disputes_lost,
		       jury_participation, jury_majority_votes
		FROM reputation_stats WHERE account_id = $1
	`, accountID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("juror repository: register read stats %w", err)
	}

	tier := arbitration.TierFromStats(stats)
	if tier == models.TierIneligible {
		return nil, apperror.ErrJurorIneligible
	}

	if err := freezeTx(ctx, tx, accountID, stake); err != nil {
		return nil, err
	}

	var juror models.Juror
	err = tx.GetContext(ctx, &juror, `
		INSERT INTO jurors (account_id, tier, staked)
		VALUES ($1, $2, $3)
		RETURNING account_id, tier, staked, registered_at
	`, accountID, tier, stake)
	if err != nil {
		return nil, fmt.Errorf("juror repository: register %w", err)
	}

	if err := logTransactionTx(ctx, tx, accountID, nil, models.TransactionTypeJurorStake, stake, "Стейк присяжного"); err != nil {
		return nil, err
	}
	return &juror, tx.Commit()
}

// Unstake снимает аккаунт с реестра и возвращает стейк.
// Запрещён, пока у присяжного есть место в незавершённом раунде голосования.
func (r *JurorRepository) Unstake(ctx context.Context, accountID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var juror models.Juror
	err = tx.GetContext(ctx, &juror, `
		SELECT account_id, tier, staked, registered_at FROM jurors WHERE account_id = $1 FOR UPDATE
	`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrNotJuror
		}
		return fmt.Errorf("juror repository: unstake read %w", err)
	}

	var activeSeats int
	err = tx.GetContext(ctx, &activeSeats, `
		SELECT COUNT(*)
		FROM dispute_jurors dj
		JOIN disputes d ON d.project_id = dj.dispute_id AND d.round = dj.round
		WHERE dj.juror_id = $1 AND d.status = $2
	`, accountID, models.DisputeStatusVoting)
	if err != nil {
		return fmt.Errorf("juror repository: unstake active seats %w", err)
	}
	if activeSeats > 0 {
		return apperror.ErrJurorSeated
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM jurors WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("juror repository: unstake delete %w", err)
	}
	if err := unfreezeTx(ctx, tx, accountID, juror.Staked); err != nil {
		return err
	}
	if err := logTransactionTx(ctx, tx, accountID, nil, models.TransactionTypeJurorUnstake, juror.Staked, "Возврат стейка присяжного"); err != nil {
		return err
	}
	return tx.Commit()
}

// RefreshTier пересчитывает тир присяжного по текущей репутации.
// Аккаунт, ставший неизбираемым (проигранный спор), снимается с реестра
// с возвратом стейка; пока у него есть место в активном раунде — отказ,
// раунд сначала должен завершиться.
func (r *JurorRepository) RefreshTier(ctx context.Context, accountID uuid.UUID) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var juror models.Juror
	err = tx.GetContext(ctx, &juror, `
		SELECT account_id, tier, staked, registered_at FROM jurors WHERE account_id = $1 FOR UPDATE
	`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.ErrNotJuror
		}
		return "", fmt.Errorf("juror repository: refresh tier read %w", err)
	}

	var stats models.ReputationStats
	err = tx.GetContext(ctx, &stats, `
		SELECT account_id, projects_completed, projects_failed, total_earned,
		       disputes_initiated, disputes_won, disputes_lost,
		       jury_participation, jury_majority_votes
		FROM reputation_stats WHERE account_id = $1
	`, accountID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("juror repository: refresh tier stats %w", err)
	}

	tier := arbitration.TierFromStats(stats)
	if tier == models.TierIneligible {
		var activeSeats int
		err = tx.GetContext(ctx, &activeSeats, `
			SELECT COUNT(*)
			FROM dispute_jurors dj
			JOIN disputes d ON d.project_id = dj.dispute_id AND d.round = dj.round
			WHERE dj.juror_id = $1 AND d.status = $2
		`, accountID, models.DisputeStatusVoting)
		if err != nil {
			return "", fmt.Errorf("juror repository: refresh tier active seats %w", err)
		}
		if activeSeats > 0 {
			return "", apperror.ErrJurorSeated
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM jurors WHERE account_id = $1`, accountID); err != nil {
			return "", fmt.Errorf("juror repository: refresh tier delete %w", err)
		}
		if err := unfreezeTx(ctx, tx, accountID, juror.Staked); err != nil {
			return "", err
		}
		if err := logTransactionTx(ctx, tx, accountID, nil, models.TransactionTypeJurorUnstake, juror.Staked, "Возврат стейка: присяжный утратил избираемость"); err != nil {
			return "", err
		}
		return tier, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `UPDATE jurors SET tier = $2 WHERE account_id = $1`, accountID, tier); err != nil {
		return "", fmt.Errorf("juror repository: refresh tier %w", err)
	}
	return tier, tx.Commit()
}

// eligiblePoolTx возвращает кандидатов с тиром не ниже требуемого и
// достаточным стейком. Стороны спора исключаются из пула.
func eligiblePoolTx(ctx context.Context, tx *sqlx.Tx, tier string, minStake int64, excluded []uuid.UUID) ([]uuid.UUID, error) {
	var tiers []string
	for _, t := range []string{models.TierBronze, models.TierSilver, models.TierGold} {
		if models.TierRank(t) >= models.TierRank(tier) {
			tiers = append(tiers, t)
		}
	}

	query, args, err := sqlx.In(`
		SELECT account_id FROM jurors
		WHERE tier IN (?) AND staked >= ?
	`, tiers, minStake)
	if err != nil {
		return nil, fmt.Errorf("juror repository: eligible pool query %w", err)
	}
	if len(excluded) > 0 {
		extra, moreArgs, inErr := sqlx.In(` AND account_id NOT IN (?)`, excluded)
		if inErr != nil {
			return nil, fmt.Errorf("juror repository: eligible pool exclusion %w", inErr)
		}
		query += extra
		args = append(args, moreArgs...)
	}
	query = tx.Rebind(query)

	var pool []uuid.UUID
	if err := tx.SelectContext(ctx, &pool, query, args...); err != nil {
		return nil, fmt.Errorf("juror repository: eligible pool %w", err)
	}
	return pool, nil
}

// slashJurorTx списывает долю стейка не проголосовавшего присяжного.
// Слэшится permille тысячных от стейка, остаток остаётся заморожен.
func slashJurorTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, permille int64, disputeID int64) error {
	var staked int64
	err := tx.GetContext(ctx, &staked, `SELECT staked FROM jurors WHERE account_id = $1 FOR UPDATE`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("juror repository: slash read %w", err)
	}

	amount := staked * permille / 1000
	if amount == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE jurors SET staked = staked - $2 WHERE account_id = $1`, accountID, amount); err != nil {
		return fmt.Errorf("juror repository: slash stake %w", err)
	}
	if err := burnFrozenTx(ctx, tx, accountID, amount); err != nil {
		return err
	}
	return logTransactionTx(ctx, tx, accountID, nil, models.TransactionTypeJurorSlash, amount,
		fmt.Sprintf("Слэш за пропуск голосования по спору #%d", disputeID))
}

// bumpStatsTx инкрементирует репутационные счётчики аккаунта.
// column задаётся только из фиксированного набора вызывающим кодом.
func bumpStatsTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, column string, delta int64) error {
	query := fmt.Sprintf(`
		INSERT INTO reputation_stats (account_id, %s)
		VALUES ($1, $2)
		ON CONFLICT (account_id) DO UPDATE SET %s = reputation_stats.%s + $2
	`, column, column, column)
	if _, err := tx.ExecContext(ctx, query, accountID, delta); err != nil {
		return fmt.Errorf("juror repository: bump %s %w", column, err)
	}
	return nil
}
