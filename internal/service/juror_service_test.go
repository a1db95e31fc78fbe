package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

type mockJurorRepo struct {
	mock.Mock
}

func (m *mockJurorRepo) GetByAccount(ctx context.Context, accountID uuid.UUID) (*models.Juror, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Juror), args.Error(1)
}

func (m *mockJurorRepo) GetStats(ctx context.Context, accountID uuid.UUID) (*models.ReputationStats, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReputationStats), args.Error(1)
}

func (m *mockJurorRepo) Register(ctx context.Context, accountID uuid.UUID, stake int64) (*models.Juror, error) {
	args := m.Called(ctx, accountID, stake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Juror), args.Error(1)
}

func (m *mockJurorRepo) Unstake(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *mockJurorRepo) RefreshTier(ctx context.Context, accountID uuid.UUID) (string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.Error(1)
}

func TestJurorService_Register(t *testing.T) {
	repo := new(mockJurorRepo)
	svc := NewJurorService(repo, 10_000)
	ctx := context.Background()
	accountID := uuid.New()

	expected := &models.Juror{AccountID: accountID, Tier: models.TierBronze, Staked: 10_000}
	repo.On("Register", ctx, accountID, int64(10_000)).Return(expected, nil)

	juror, err := svc.Register(ctx, accountID, 10_000)
	assert.NoError(t, err)
	assert.Equal(t, expected, juror)
	repo.AssertExpectations(t)
}

func TestJurorService_Register_StakeBelowMinimum(t *testing.T) {
	repo := new(mockJurorRepo)
	svc := NewJurorService(repo, 10_000)
	ctx := context.Background()

	_, err := svc.Register(ctx, uuid.New(), 9_999)
	assert.Equal(t, apperror.ErrCodeValidation, apperror.Code(err))
	repo.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestJurorService_Register_Ineligible(t *testing.T) {
	repo := new(mockJurorRepo)
	svc := NewJurorService(repo, 10_000)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("Register", ctx, accountID, int64(10_000)).Return(nil, apperror.ErrJurorIneligible)

	_, err := svc.Register(ctx, accountID, 10_000)
	assert.ErrorIs(t, err, apperror.ErrJurorIneligible)
}

func TestJurorService_GetJuror(t *testing.T) {
	repo := new(mockJurorRepo)
	svc := NewJurorService(repo, 10_000)
	ctx := context.Background()
	accountID := uuid.New()

	expectedJuror := &models.Juror{AccountID: accountID, Tier: models.TierSilver, Staked: 15_000}
	expectedStats := &models.ReputationStats{AccountID: accountID, ProjectsCompleted: 25, TotalEarned: 12_000}
	repo.On("GetByAccount", ctx, accountID).Return(expectedJuror, nil)
	repo.On("GetStats", ctx, accountID).Return(expectedStats, nil)

	juror, stats, err := svc.GetJuror(ctx, accountID)
	assert.NoError(t, err)
	assert.Equal(t, expectedJuror, juror)
	assert.Equal(t, expectedStats, stats)
}

func TestJurorService_GetJuror_NotRegistered(t *testing.T) {
	repo := new(mockJurorRepo)
	svc := NewJurorService(repo, 10_000)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("GetByAccount", ctx, accountID).Return(nil, nil)

	_, _, err := svc.GetJuror(ctx, accountID)
	assert.ErrorIs(t, err, apperror.ErrNotJuror)
	repo.AssertNotCalled(t, "GetStats", mock.Anything, mock.Anything)
}

func TestJurorService_Unstake(t *testing.T) {
	repo := new(mockJurorRepo)
	svc := NewJurorService(repo, 10_000)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("Unstake", ctx, accountID).Return(nil)
	assert.NoError(t, svc.Unstake(ctx, accountID))
}

func TestJurorService_Unstake_Seated(t *testing.T) {
	repo := new(mockJurorRepo)
	svc := NewJurorService(repo, 10_000)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("Unstake", ctx, accountID).Return(apperror.ErrJurorSeated)
	assert.ErrorIs(t, svc.Unstake(ctx, accountID), apperror.ErrJurorSeated)
}

func TestJurorService_RefreshTier(t *testing.T) {
	repo := new(mockJurorRepo)
	svc := NewJurorService(repo, 10_000)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("GetByAccount", ctx, accountID).Return(&models.Juror{AccountID: accountID, Tier: models.TierBronze}, nil)
	repo.On("RefreshTier", ctx, accountID).Return(models.TierSilver, nil)

	tier, err := svc.RefreshTier(ctx, accountID)
	assert.NoError(t, err)
	assert.Equal(t, models.TierSilver, tier)
}

func TestJurorService_RefreshTier_NotRegistered(t *testing.T) {
	repo := new(mockJurorRepo)
	svc := NewJurorService(repo, 10_000)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("GetByAccount", ctx, accountID).Return(nil, nil)

	_, err := svc.RefreshTier(ctx, accountID)
	assert.ErrorIs(t, err, apperror.ErrNotJuror)
	repo.AssertNotCalled(t, "RefreshTier", mock.Anything, mock.Anything)
}
