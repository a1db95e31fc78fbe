package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

// JurorRepository описывает зависимости JurorService от слоя хранилища.
type JurorRepository interface {
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*models.Juror, error)
	GetStats(ctx context.Context, accountID uuid.UUID) (*models.ReputationStats, error)
	Register(ctx context.Context, accountID uuid.UUID, stake int64) (*models.Juror, error)
	Unstake(ctx context.Context, accountID uuid.UUID) error
	RefreshTier(ctx context.Context, accountID uuid.UUID) (string, error)
}

// JurorService управляет реестром присяжных.
type JurorService struct {
	repo     JurorRepository
	minStake int64
}

// NewJurorService создаёт сервис присяжных.
func NewJurorService(repo JurorRepository, minStake int64) *JurorService {
	return &JurorService{repo: repo, minStake: minStake}
}

// GetJuror возвращает запись присяжного с репутацией.
func (s *JurorService) GetJuror(ctx context.Context, accountID uuid.UUID) (*models.Juror, *models.ReputationStats, error) {
	juror, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if juror == nil {
		return nil, nil, apperror.ErrNotJuror
	}
	stats, err := s.repo.GetStats(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	return juror, stats, nil
}

// Register ставит аккаунт в реестр присяжных со стейком.
func (s *JurorService) Register(ctx context.Context, accountID uuid.UUID, stake int64) (*models.Juror, error) {
	if stake < s.minStake {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "стейк должен быть не меньше %d", s.minStake)
	}
	return s.repo.Register(ctx, accountID, stake)
}

// Unstake снимает аккаунт с реестра и возвращает стейк.
func (s *JurorService) Unstake(ctx context.Context, accountID uuid.UUID) error {
	return s.repo.Unstake(ctx, accountID)
}

// RefreshTier пересчитывает тир по текущей репутации.
func (s *JurorService) RefreshTier(ctx context.Context, accountID uuid.UUID) (string, error) {
	juror, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if juror == nil {
		return "", apperror.ErrNotJuror
	}
	return s.repo.RefreshTier(ctx, accountID)
}
