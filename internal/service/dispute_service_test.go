package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
	"github.com/ignatzorin/arbitration-backend/internal/repository"
)

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) GetByProject(ctx context.Context, projectID int64) (*models.Dispute, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetDetail(ctx context.Context, projectID int64) (*repository.DisputeDetail, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.DisputeDetail), args.Error(1)
}

func (m *mockDisputeRepo) Create(ctx context.Context, projectID int64, initiatorID uuid.UUID, evidence *repository.EvidenceParams) (*models.Dispute, error) {
	args := m.Called(ctx, projectID, initiatorID, evidence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) SubmitAiVerdict(ctx context.Context, disputeID int64, ruling string) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID, ruling)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Appeal(ctx context.Context, disputeID int64, appellantID uuid.UUID, evidence *repository.EvidenceParams) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID, appellantID, evidence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) CastVote(ctx context.Context, disputeID int64, jurorID uuid.UUID, choice string) (*models.Dispute, int, error) {
	args := m.Called(ctx, disputeID, jurorID, choice)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).(*models.Dispute), args.Int(1), args.Error(2)
}

func (m *mockDisputeRepo) FinalizeRound(ctx context.Context, disputeID int64) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) EnforceFinalRuling(ctx context.Context, disputeID int64) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) TimeoutAiRound(ctx context.Context, disputeID int64) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) SubmitEvidence(ctx context.Context, disputeID int64, submitterID uuid.UUID, params repository.EvidenceParams) (*models.EvidenceReference, error) {
	args := m.Called(ctx, disputeID, submitterID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EvidenceReference), args.Error(1)
}

func (m *mockDisputeRepo) ListExpired(ctx context.Context, now time.Time) ([]int64, []int64, []int64, error) {
	args := m.Called(ctx, now)
	if args.Get(3) != nil {
		return nil, nil, nil, args.Error(3)
	}
	return args.Get(0).([]int64), args.Get(1).([]int64), args.Get(2).([]int64), nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyDispute(disputeID int64, event string, payload any) {
	m.Called(disputeID, event, payload)
}

func TestDisputeService_CreateDispute(t *testing.T) {
	repo := new(mockDisputeRepo)
	notifier := new(mockNotifier)
	svc := NewDisputeService(repo, notifier)
	ctx := context.Background()
	initiatorID := uuid.New()

	expected := &models.Dispute{ProjectID: 7, InitiatorID: initiatorID, Status: models.DisputeStatusAiProcessing, Round: 1}
	repo.On("Create", ctx, int64(7), initiatorID, (*repository.EvidenceParams)(nil)).Return(expected, nil)
	notifier.On("NotifyDispute", int64(7), "dispute_created", expected).Return()

	dispute, err := svc.CreateDispute(ctx, 7, initiatorID, nil)
	assert.NoError(t, err)
	assert.Equal(t, expected, dispute)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestDisputeService_CreateDispute_WithEvidence(t *testing.T) {
	repo := new(mockDisputeRepo)
	notifier := new(mockNotifier)
	svc := NewDisputeService(repo, notifier)
	ctx := context.Background()
	initiatorID := uuid.New()

	hash := strings.Repeat("cd", 32)
	uri := "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
	expected := &models.Dispute{ProjectID: 7, InitiatorID: initiatorID, Status: models.DisputeStatusAiProcessing, Round: 1}
	// Доказательство инициатора уходит в хранилище вместе с открытием спора.
	repo.On("Create", ctx, int64(7), initiatorID, &repository.EvidenceParams{ContentHash: hash, URI: uri}).Return(expected, nil)
	notifier.On("NotifyDispute", int64(7), "dispute_created", expected).Return()

	dispute, err := svc.CreateDispute(ctx, 7, initiatorID, &EvidenceInput{ContentHash: hash, URI: uri})
	assert.NoError(t, err)
	assert.Equal(t, expected, dispute)
	repo.AssertExpectations(t)
}

func TestDisputeService_CreateDispute_InvalidEvidence(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateDispute(ctx, 7, uuid.New(), &EvidenceInput{ContentHash: "не-хэш", URI: "https://example.com/doc"})
	assert.Equal(t, apperror.ErrCodeValidation, apperror.Code(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_CreateDispute_RepoError(t *testing.T) {
	repo := new(mockDisputeRepo)
	notifier := new(mockNotifier)
	svc := NewDisputeService(repo, notifier)
	ctx := context.Background()
	initiatorID := uuid.New()

	repo.On("Create", ctx, int64(7), initiatorID, (*repository.EvidenceParams)(nil)).Return(nil, apperror.ErrAlreadyDisputed)

	_, err := svc.CreateDispute(ctx, 7, initiatorID, nil)
	assert.ErrorIs(t, err, apperror.ErrAlreadyDisputed)
	notifier.AssertNotCalled(t, "NotifyDispute", mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_SubmitAiVerdict(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()
	oracleID := uuid.New()

	expected := &models.Dispute{ProjectID: 7, Status: models.DisputeStatusAppealable}
	repo.On("SubmitAiVerdict", ctx, int64(7), models.RulingClientWins).Return(expected, nil)

	dispute, err := svc.SubmitAiVerdict(ctx, 7, oracleID, AiVerdictInput{
		Ruling:     models.RulingClientWins,
		Confidence: 0.87,
		Reasoning:  "работа не соответствует требованиям",
	})
	assert.NoError(t, err)
	assert.Equal(t, expected, dispute)
}

func TestDisputeService_SubmitAiVerdict_Invalid(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()
	oracleID := uuid.New()

	// Неизвестное решение.
	_, err := svc.SubmitAiVerdict(ctx, 7, oracleID, AiVerdictInput{Ruling: "draw", Confidence: 0.5, Reasoning: "x"})
	assert.Equal(t, apperror.ErrCodeValidation, apperror.Code(err))

	// Confidence вне диапазона.
	_, err = svc.SubmitAiVerdict(ctx, 7, oracleID, AiVerdictInput{Ruling: models.RulingClientWins, Confidence: 1.5, Reasoning: "x"})
	assert.Equal(t, apperror.ErrCodeValidation, apperror.Code(err))

	// Пустое обоснование.
	_, err = svc.SubmitAiVerdict(ctx, 7, oracleID, AiVerdictInput{Ruling: models.RulingClientWins, Confidence: 0.5})
	assert.Equal(t, apperror.ErrCodeValidation, apperror.Code(err))

	repo.AssertNotCalled(t, "SubmitAiVerdict", mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_Appeal_WithEvidence(t *testing.T) {
	repo := new(mockDisputeRepo)
	notifier := new(mockNotifier)
	svc := NewDisputeService(repo, notifier)
	ctx := context.Background()
	appellantID := uuid.New()

	hash := strings.Repeat("ef", 32)
	uri := "https://example.com/rebuttal.pdf"
	voting := &models.Dispute{ProjectID: 7, Status: models.DisputeStatusVoting, Round: 2}
	repo.On("Appeal", ctx, int64(7), appellantID, &repository.EvidenceParams{ContentHash: hash, URI: uri}).Return(voting, nil)
	notifier.On("NotifyDispute", int64(7), "ruling_appealed", voting).Return()

	dispute, err := svc.Appeal(ctx, 7, appellantID, &EvidenceInput{ContentHash: hash, URI: uri})
	assert.NoError(t, err)
	assert.Equal(t, voting, dispute)
	repo.AssertExpectations(t)
}

func TestDisputeService_Appeal_InvalidEvidence(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()

	// Невалидное доказательство отклоняется до резервирования залога.
	_, err := svc.Appeal(ctx, 7, uuid.New(), &EvidenceInput{ContentHash: strings.Repeat("ab", 32), URI: "без-схемы"})
	assert.Equal(t, apperror.ErrCodeValidation, apperror.Code(err))
	repo.AssertNotCalled(t, "Appeal", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_CastVote_QuorumFinalizes(t *testing.T) {
	repo := new(mockDisputeRepo)
	notifier := new(mockNotifier)
	svc := NewDisputeService(repo, notifier)
	ctx := context.Background()
	jurorID := uuid.New()

	voting := &models.Dispute{ProjectID: 7, Status: models.DisputeStatusVoting, Round: 2}
	finalized := &models.Dispute{ProjectID: 7, Status: models.DisputeStatusAppealable, Round: 2}

	repo.On("CastVote", ctx, int64(7), jurorID, models.VoteForClient).Return(voting, 2, nil)
	repo.On("FinalizeRound", ctx, int64(7)).Return(finalized, nil)
	notifier.On("NotifyDispute", int64(7), "vote_cast", mock.Anything).Return()
	notifier.On("NotifyDispute", int64(7), "round_finalized", finalized).Return()

	dispute, err := svc.CastVote(ctx, 7, jurorID, models.VoteForClient)
	assert.NoError(t, err)
	assert.Equal(t, finalized, dispute)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestDisputeService_CastVote_NoQuorumYet(t *testing.T) {
	repo := new(mockDisputeRepo)
	notifier := new(mockNotifier)
	svc := NewDisputeService(repo, notifier)
	ctx := context.Background()
	jurorID := uuid.New()

	voting := &models.Dispute{ProjectID: 7, Status: models.DisputeStatusVoting, Round: 2}

	repo.On("CastVote", ctx, int64(7), jurorID, models.VoteForFreelancer).Return(voting, 1, nil)
	// Кворума нет — TOO_EARLY проглатывается, голос остаётся принятым.
	repo.On("FinalizeRound", ctx, int64(7)).Return(nil, apperror.ErrVotingNotComplete)
	notifier.On("NotifyDispute", int64(7), "vote_cast", mock.Anything).Return()

	dispute, err := svc.CastVote(ctx, 7, jurorID, models.VoteForFreelancer)
	assert.NoError(t, err)
	assert.Equal(t, voting, dispute)
	notifier.AssertNotCalled(t, "NotifyDispute", int64(7), "round_finalized", mock.Anything)
}

func TestDisputeService_CastVote_InvalidChoice(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()

	_, err := svc.CastVote(ctx, 7, uuid.New(), "abstain")
	assert.Equal(t, apperror.ErrCodeValidation, apperror.Code(err))
	repo.AssertNotCalled(t, "CastVote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_CastVote_RepoError(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()
	jurorID := uuid.New()

	repo.On("CastVote", ctx, int64(7), jurorID, models.VoteForClient).Return(nil, 0, apperror.ErrNotJuror)

	_, err := svc.CastVote(ctx, 7, jurorID, models.VoteForClient)
	assert.ErrorIs(t, err, apperror.ErrNotJuror)
}

func TestDisputeService_SubmitEvidence(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()
	submitterID := uuid.New()

	hash := strings.Repeat("ab", 32)
	uri := "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
	expected := &models.EvidenceReference{ID: 1, DisputeID: 7, ContentHash: hash, URI: uri}
	repo.On("SubmitEvidence", ctx, int64(7), submitterID, repository.EvidenceParams{ContentHash: hash, URI: uri}).Return(expected, nil)

	ref, err := svc.SubmitEvidence(ctx, 7, submitterID, EvidenceInput{ContentHash: hash, URI: uri})
	assert.NoError(t, err)
	assert.Equal(t, expected, ref)
}

func TestDisputeService_SubmitEvidence_InvalidHash(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()

	_, err := svc.SubmitEvidence(ctx, 7, uuid.New(), EvidenceInput{ContentHash: "не-хэш", URI: "https://example.com/doc"})
	assert.Equal(t, apperror.ErrCodeValidation, apperror.Code(err))

	_, err = svc.SubmitEvidence(ctx, 7, uuid.New(), EvidenceInput{ContentHash: strings.Repeat("ab", 32), URI: "без-схемы"})
	assert.Equal(t, apperror.ErrCodeValidation, apperror.Code(err))

	repo.AssertNotCalled(t, "SubmitEvidence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_ProcessExpired(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()
	now := time.Now()

	escalated := &models.Dispute{ProjectID: 1, Status: models.DisputeStatusVoting, Round: 2}
	finalized := &models.Dispute{ProjectID: 2, Status: models.DisputeStatusAppealable, Round: 2}
	ruling := models.RulingClientWins
	resolved := &models.Dispute{ProjectID: 4, Status: models.DisputeStatusResolved, Ruling: &ruling}

	repo.On("ListExpired", ctx, now).Return([]int64{1}, []int64{2, 3}, []int64{4}, nil)
	repo.On("TimeoutAiRound", ctx, int64(1)).Return(escalated, nil)
	repo.On("FinalizeRound", ctx, int64(2)).Return(finalized, nil)
	// Ошибка одного спора не останавливает обход.
	repo.On("FinalizeRound", ctx, int64(3)).Return(nil, apperror.ErrNotVotingPhase)
	// Спор с закрытым окном апелляции исполняется без внешнего вызова.
	repo.On("EnforceFinalRuling", ctx, int64(4)).Return(resolved, nil)

	svc.ProcessExpired(ctx, now)
	repo.AssertExpectations(t)
}

func TestDisputeService_ProcessExpired_ListError(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()
	now := time.Now()

	repo.On("ListExpired", ctx, now).Return(nil, nil, nil, assert.AnError)

	svc.ProcessExpired(ctx, now)
	repo.AssertNotCalled(t, "TimeoutAiRound", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "FinalizeRound", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "EnforceFinalRuling", mock.Anything, mock.Anything)
}

func TestDisputeService_EnforceFinalRuling(t *testing.T) {
	repo := new(mockDisputeRepo)
	notifier := new(mockNotifier)
	svc := NewDisputeService(repo, notifier)
	ctx := context.Background()

	ruling := models.RulingFreelancerWins
	resolved := &models.Dispute{ProjectID: 7, Status: models.DisputeStatusResolved, Ruling: &ruling}
	repo.On("EnforceFinalRuling", ctx, int64(7)).Return(resolved, nil)
	notifier.On("NotifyDispute", int64(7), "ruling_executed", resolved).Return()

	dispute, err := svc.EnforceFinalRuling(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, dispute.Status)
	notifier.AssertExpectations(t)
}

func TestDisputeService_EnforceFinalRuling_AlreadyResolved(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, nil)
	ctx := context.Background()

	repo.On("EnforceFinalRuling", ctx, int64(7)).Return(nil, apperror.ErrAlreadyResolved)

	_, err := svc.EnforceFinalRuling(ctx, 7)
	assert.ErrorIs(t, err, apperror.ErrAlreadyResolved)
}
