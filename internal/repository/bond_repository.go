package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/arbitration-backend/internal/models"
)

// BondRepository ведёт залоги сторон спора. Это единственная точка,
// через которую резервируются и распределяются залоги: каждая запись
// bond_records проходит путь reserved -> refunded | seized.
type BondRepository struct {
	db *sqlx.DB
}

// NewBondRepository создаёт экземпляр репозитория.
func NewBondRepository(db *sqlx.DB) *BondRepository {
	return &BondRepository{db: db}
}

// ListByDispute возвращает все залоги по спору в порядке раундов.
func (r *BondRepository) ListByDispute(ctx context.Context, disputeID int64) ([]models.BondRecord, error) {
	var records []models.BondRecord
	query := `
		SELECT id, account_id, dispute_id, round, amount, disposition, created_at, disposed_at
		FROM bond_records
		WHERE dispute_id = $1
		ORDER BY round, created_at
	`
	if err := r.db.SelectContext(ctx, &records, query, disputeID); err != nil {
		return nil, fmt.Errorf("bond repository: list by dispute %w", err)
	}
	return records, nil
}

// reserveBondTx замораживает залог и создаёт запись в статусе reserved.
// Возвращает ErrInsufficientFunds, если доступного баланса не хватает.
func reserveBondTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, disputeID int64, round int, amount int64) error {
	if err := freezeTx(ctx, tx, accountID, amount); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bond_records (account_id, dispute_id, round, amount, disposition)
		VALUES ($1, $2, $3, $4, 'reserved')
	`, accountID, disputeID, round, amount); err != nil {
		return fmt.Errorf("bond repository: reserve %w", err)
	}
	return logTransactionTx(ctx, tx, accountID, nil, models.TransactionTypeBondReserve, amount,
		fmt.Sprintf("Залог за раунд %d спора #%d", round, disputeID))
}

// refundBondTx возвращает залог владельцу и помечает запись refunded.
func refundBondTx(ctx context.Context, tx *sqlx.Tx, record models.BondRecord) error {
	if err := unfreezeTx(ctx, tx, record.AccountID, record.Amount); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE bond_records
		SET disposition = 'refunded', disposed_at = NOW()
		WHERE id = $1 AND disposition = 'reserved'
	`, record.ID); err != nil {
		return fmt.Errorf("bond repository: refund %w", err)
	}
	return logTransactionTx(ctx, tx, record.AccountID, nil, models.TransactionTypeBondRefund, record.Amount,
		fmt.Sprintf("Возврат залога за раунд %d спора #%d", record.Round, record.DisputeID))
}

// seizeBondTx передаёт замороженный залог победителю и помечает запись seized.
func seizeBondTx(ctx context.Context, tx *sqlx.Tx, record models.BondRecord, winnerID uuid.UUID) error {
	if err := transferFrozenTx(ctx, tx, record.AccountID, winnerID, record.Amount); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE bond_records
		SET disposition = 'seized', disposed_at = NOW()
		WHERE id = $1 AND disposition = 'reserved'
	`, record.ID); err != nil {
		return fmt.Errorf("bond repository: seize %w", err)
	}
	return logTransactionTx(ctx, tx, record.AccountID, nil, models.TransactionTypeBondSeize, record.Amount,
		fmt.Sprintf("Удержание залога за раунд %d спора #%d", record.Round, record.DisputeID))
}

// listReservedBondsTx возвращает нераспределённые залоги спора внутри транзакции.
func listReservedBondsTx(ctx context.Context, tx *sqlx.Tx, disputeID int64) ([]models.BondRecord, error) {
	var records []models.BondRecord
	query := `
		SELECT id, account_id, dispute_id, round, amount, disposition, created_at, disposed_at
		FROM bond_records
		WHERE dispute_id = $1 AND disposition = 'reserved'
		ORDER BY round
		FOR UPDATE
	`
	if err := tx.SelectContext(ctx, &records, query, disputeID); err != nil {
		return nil, fmt.Errorf("bond repository: list reserved %w", err)
	}
	return records, nil
}

// unresolvedBondCountTx считает залоги спора, оставшиеся в статусе reserved.
// После исполнения вердикта их быть не должно.
func unresolvedBondCountTx(ctx context.Context, tx *sqlx.Tx, disputeID int64) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM bond_records WHERE dispute_id = $1 AND disposition = 'reserved'
	`, disputeID)
	if err != nil {
		return 0, fmt.Errorf("bond repository: unresolved count %w", err)
	}
	return count, nil
}
