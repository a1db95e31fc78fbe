package arbitration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

func strptr(s string) *string { return &s }

func timeptr(t time.Time) *time.Time { return &t }

func TestCheckCreate(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()
	project := &models.Project{
		ClientID:     clientID,
		FreelancerID: &freelancerID,
		Status:       models.ProjectStatusRejected,
	}

	assert.NoError(t, CheckCreate(project, clientID))
	assert.NoError(t, CheckCreate(project, freelancerID))

	// Посторонний аккаунт спор не открывает.
	err := CheckCreate(project, uuid.New())
	assert.Equal(t, apperror.ErrCodeForbidden, apperror.Code(err))

	project.Status = models.ProjectStatusInReview
	err = CheckCreate(project, clientID)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.Code(err))
}

func TestCheckSubmitAiVerdict(t *testing.T) {
	d := &models.Dispute{Status: models.DisputeStatusAiProcessing, Round: 1}
	assert.NoError(t, CheckSubmitAiVerdict(d))

	d.Status = models.DisputeStatusAppealable
	assert.Error(t, CheckSubmitAiVerdict(d))

	// Раунды жюри вердикт ИИ не принимают.
	d.Status = models.DisputeStatusAiProcessing
	d.Round = 2
	assert.ErrorIs(t, CheckSubmitAiVerdict(d), apperror.ErrNotAwaitingAi)
}

func TestCheckAppeal(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()
	now := time.Now()

	d := &models.Dispute{
		Status:   models.DisputeStatusAppealable,
		Round:    1,
		Ruling:   strptr(models.RulingClientWins),
		AppealBy: timeptr(now.Add(time.Hour)),
	}

	// Решение в пользу клиента — апеллирует фрилансер.
	assert.NoError(t, CheckAppeal(d, freelancerID, clientID, freelancerID, now))
	assert.ErrorIs(t, CheckAppeal(d, clientID, clientID, freelancerID, now), apperror.ErrNotLoser)

	d.Ruling = strptr(models.RulingFreelancerWins)
	assert.NoError(t, CheckAppeal(d, clientID, clientID, freelancerID, now))
	assert.ErrorIs(t, CheckAppeal(d, freelancerID, clientID, freelancerID, now), apperror.ErrNotLoser)
}

func TestCheckAppeal_WindowShut(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()
	now := time.Now()

	d := &models.Dispute{
		Status:   models.DisputeStatusAppealable,
		Round:    1,
		Ruling:   strptr(models.RulingClientWins),
		AppealBy: timeptr(now.Add(-time.Minute)),
	}
	err := CheckAppeal(d, freelancerID, clientID, freelancerID, now)
	assert.ErrorIs(t, err, apperror.ErrAppealWindowShut)
	assert.Equal(t, apperror.ErrCodeTooLate, apperror.Code(err))
}

func TestCheckAppeal_LadderExhausted(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()
	now := time.Now()

	d := &models.Dispute{
		Status:   models.DisputeStatusAppealable,
		Round:    MaxRounds,
		Ruling:   strptr(models.RulingClientWins),
		AppealBy: timeptr(now.Add(time.Hour)),
	}
	err := CheckAppeal(d, freelancerID, clientID, freelancerID, now)
	assert.ErrorIs(t, err, apperror.ErrMaxRoundsReached)
}

func TestCheckAppeal_WrongStatus(t *testing.T) {
	d := &models.Dispute{Status: models.DisputeStatusVoting}
	err := CheckAppeal(d, uuid.New(), uuid.New(), uuid.New(), time.Now())
	assert.Equal(t, apperror.ErrCodeConflict, apperror.Code(err))
}

func TestCheckCastVote(t *testing.T) {
	jurorID := uuid.New()
	now := time.Now()
	d := &models.Dispute{
		Status:        models.DisputeStatusVoting,
		Round:         2,
		RoundDeadline: now.Add(time.Hour),
	}
	roster := []models.DisputeJuror{
		{JurorID: jurorID},
		{JurorID: uuid.New()},
	}

	assert.NoError(t, CheckCastVote(d, roster, jurorID, now))

	// Аккаунт вне состава жюри.
	err := CheckCastVote(d, roster, uuid.New(), now)
	assert.ErrorIs(t, err, apperror.ErrNotJuror)

	// Повторный голос.
	roster[0].HasVoted = true
	err = CheckCastVote(d, roster, jurorID, now)
	assert.ErrorIs(t, err, apperror.ErrAlreadyVoted)
}

func TestCheckCastVote_DeadlinePassed(t *testing.T) {
	jurorID := uuid.New()
	now := time.Now()
	d := &models.Dispute{
		Status:        models.DisputeStatusVoting,
		RoundDeadline: now.Add(-time.Minute),
	}
	err := CheckCastVote(d, []models.DisputeJuror{{JurorID: jurorID}}, jurorID, now)
	assert.ErrorIs(t, err, apperror.ErrVotingClosed)
}

func TestCheckFinalize(t *testing.T) {
	now := time.Now()
	policy := roundLadder[1] // бронза: кворум 2
	d := &models.Dispute{
		Status:        models.DisputeStatusVoting,
		RoundDeadline: now.Add(time.Hour),
	}

	// Кворум достигнут — можно закрывать до срока.
	assert.NoError(t, CheckFinalize(d, policy, policy.Quorum, now))

	// Кворума нет и срок не истёк — слишком рано.
	err := CheckFinalize(d, policy, policy.Quorum-1, now)
	assert.ErrorIs(t, err, apperror.ErrVotingNotComplete)
	assert.Equal(t, apperror.ErrCodeTooEarly, apperror.Code(err))

	// Срок истёк — закрываем с любым числом голосов.
	d.RoundDeadline = now.Add(-time.Minute)
	assert.NoError(t, CheckFinalize(d, policy, 0, now))
}

func TestCheckFinalize_WrongStatus(t *testing.T) {
	d := &models.Dispute{Status: models.DisputeStatusAppealable}
	err := CheckFinalize(d, roundLadder[1], 5, time.Now())
	assert.Equal(t, apperror.ErrCodeConflict, apperror.Code(err))
}

func TestCheckEnforce(t *testing.T) {
	now := time.Now()

	// Терминальный раунд завершён — исполняем сразу.
	assert.NoError(t, CheckEnforce(&models.Dispute{Status: models.DisputeStatusFinalized}, now))

	// Окно апелляции истекло — решение стало окончательным.
	d := &models.Dispute{
		Status:   models.DisputeStatusAppealable,
		AppealBy: timeptr(now.Add(-time.Minute)),
	}
	assert.NoError(t, CheckEnforce(d, now))

	// Окно ещё открыто.
	d.AppealBy = timeptr(now.Add(time.Hour))
	assert.ErrorIs(t, CheckEnforce(d, now), apperror.ErrAppealWindowOpen)
}

func TestCheckEnforce_Idempotence(t *testing.T) {
	// Повторное исполнение — ошибка, а не второй перевод средств.
	err := CheckEnforce(&models.Dispute{Status: models.DisputeStatusResolved}, time.Now())
	assert.ErrorIs(t, err, apperror.ErrAlreadyResolved)
}

func TestCheckEnforce_WrongStatus(t *testing.T) {
	err := CheckEnforce(&models.Dispute{Status: models.DisputeStatusVoting}, time.Now())
	assert.Equal(t, apperror.ErrCodeConflict, apperror.Code(err))
}

func TestCheckAiTimeout(t *testing.T) {
	now := time.Now()
	d := &models.Dispute{
		Status:        models.DisputeStatusAiProcessing,
		RoundDeadline: now.Add(-time.Minute),
	}
	assert.NoError(t, CheckAiTimeout(d, now))

	d.RoundDeadline = now.Add(time.Hour)
	assert.ErrorIs(t, CheckAiTimeout(d, now), apperror.ErrAiNotExpired)

	d.Status = models.DisputeStatusVoting
	assert.Equal(t, apperror.ErrCodeConflict, apperror.Code(CheckAiTimeout(d, now)))
}

func TestCheckSubmitEvidence(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()
	project := &models.Project{ClientID: clientID, FreelancerID: &freelancerID}

	d := &models.Dispute{Status: models.DisputeStatusVoting}
	assert.NoError(t, CheckSubmitEvidence(d, project, clientID))
	assert.NoError(t, CheckSubmitEvidence(d, project, freelancerID))

	err := CheckSubmitEvidence(d, project, uuid.New())
	assert.Equal(t, apperror.ErrCodeForbidden, apperror.Code(err))

	d.Status = models.DisputeStatusResolved
	err = CheckSubmitEvidence(d, project, clientID)
	assert.Equal(t, apperror.ErrCodeConflict, apperror.Code(err))
}
