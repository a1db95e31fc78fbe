package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/arbitration-backend/internal/models"
)

// ErrInsufficientFunds возвращается при нехватке доступного баланса.
var ErrInsufficientFunds = errors.New("insufficient funds")

// BalanceRepository отвечает за балансы аккаунтов и журнал транзакций.
// Все движения средств проходят через журнал, прямых правок балансов
// за пределами репозиториев нет.
type BalanceRepository struct {
	db *sqlx.DB
}

// NewBalanceRepository создаёт экземпляр репозитория.
func NewBalanceRepository(db *sqlx.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// GetBalance возвращает баланс аккаунта, создаёт запись если её нет.
func (r *BalanceRepository) GetBalance(ctx context.Context, accountID uuid.UUID) (*models.AccountBalance, error) {
	var balance models.AccountBalance
	query := `
		INSERT INTO account_balances (account_id, available, frozen)
		VALUES ($1, 0, 0)
		ON CONFLICT (account_id) DO UPDATE SET updated_at = NOW()
		RETURNING account_id, available, frozen, updated_at
	`
	if err := r.db.GetContext(ctx, &balance, query, accountID); err != nil {
		return nil, fmt.Errorf("balance repository: get balance %w", err)
	}
	return &balance, nil
}

// Deposit пополняет доступный баланс аккаунта.
func (r *BalanceRepository) Deposit(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO account_balances (account_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (account_id) DO UPDATE SET available = account_balances.available + $2, updated_at = NOW()
	`, accountID, amount); err != nil {
		return nil, fmt.Errorf("balance repository: deposit update balance %w", err)
	}

	var transaction models.Transaction
	if err := tx.GetContext(ctx, &transaction, `
		INSERT INTO transactions (account_id, type, amount, description)
		VALUES ($1, 'deposit', $2, $3)
		RETURNING id, account_id, project_id, type, amount, description, created_at
	`, accountID, amount, description); err != nil {
		return nil, fmt.Errorf("balance repository: deposit create transaction %w", err)
	}

	return &transaction, tx.Commit()
}

// ListTransactions возвращает журнал движения средств аккаунта.
func (r *BalanceRepository) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var txs []models.Transaction
	query := `
		SELECT id, account_id, project_id, type, amount, description, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &txs, query, accountID, limit, offset); err != nil {
		return nil, fmt.Errorf("balance repository: list transactions %w", err)
	}
	return txs, nil
}

// freezeTx переводит amount из available в frozen внутри транзакции вызывающего.
// Возвращает ErrInsufficientFunds, если доступного баланса не хватает.
func freezeTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, amount int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE account_balances
		SET available = available - $2, frozen = frozen + $2, updated_at = NOW()
		WHERE account_id = $1 AND available >= $2
	`, accountID, amount)
	if err != nil {
		return fmt.Errorf("balance repository: freeze %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// unfreezeTx возвращает amount из frozen в available владельца.
func unfreezeTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, amount int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE account_balances
		SET available = available + $2, frozen = frozen - $2, updated_at = NOW()
		WHERE account_id = $1
	`, accountID, amount); err != nil {
		return fmt.Errorf("balance repository: unfreeze %w", err)
	}
	return nil
}

// transferFrozenTx переводит amount из frozen одного аккаунта в available другого.
func transferFrozenTx(ctx context.Context, tx *sqlx.Tx, from, to uuid.UUID, amount int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE account_balances
		SET frozen = frozen - $2, updated_at = NOW()
		WHERE account_id = $1
	`, from, amount); err != nil {
		return fmt.Errorf("balance repository: transfer frozen debit %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO account_balances (account_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (account_id) DO UPDATE SET available = account_balances.available + $2, updated_at = NOW()
	`, to, amount); err != nil {
		return fmt.Errorf("balance repository: transfer frozen credit %w", err)
	}
	return nil
}

// burnFrozenTx списывает amount из frozen без зачисления кому-либо (слэш стейка).
func burnFrozenTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, amount int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE account_balances
		SET frozen = frozen - $2, updated_at = NOW()
		WHERE account_id = $1
	`, accountID, amount); err != nil {
		return fmt.Errorf("balance repository: burn frozen %w", err)
	}
	return nil
}

// logTransactionTx пишет запись журнала внутри транзакции вызывающего.
func logTransactionTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, projectID *int64, txType string, amount int64, description string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (account_id, project_id, type, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`, accountID, projectID, txType, amount, description); err != nil {
		return fmt.Errorf("balance repository: log transaction %w", err)
	}
	return nil
}
