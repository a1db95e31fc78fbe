package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

// BalanceRepository описывает зависимости BalanceService от слоя хранилища.
type BalanceRepository interface {
	GetBalance(ctx context.Context, accountID uuid.UUID) (*models.AccountBalance, error)
	Deposit(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Transaction, error)
}

// BalanceService управляет балансами аккаунтов.
type BalanceService struct {
	repo BalanceRepository
}

// NewBalanceService создаёт сервис балансов.
func NewBalanceService(repo BalanceRepository) *BalanceService {
	return &BalanceService{repo: repo}
}

// GetBalance возвращает баланс аккаунта.
func (s *BalanceService) GetBalance(ctx context.Context, accountID uuid.UUID) (*models.AccountBalance, error) {
	return s.repo.GetBalance(ctx, accountID)
}

// Deposit пополняет баланс.
func (s *BalanceService) Deposit(ctx context.Context, accountID uuid.UUID, amount int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	return s.repo.Deposit(ctx, accountID, amount, "Пополнение баланса")
}

// ListTransactions возвращает историю движения средств.
func (s *BalanceService) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, accountID, limit, offset)
}
