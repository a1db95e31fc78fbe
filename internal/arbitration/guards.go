package arbitration

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

// Проверки предусловий переходов машины состояний спора.
// Каждая проверка выполняется внутри транзакции после блокировки строки
// спора, поэтому конкурентные вызовы видят согласованное состояние:
// переход применяет ровно один вызов, остальные получают типизированную
// ошибку с текущим и ожидаемым статусом.

// statusMismatch строит ошибку несоответствия статуса с контекстом для клиента.
func statusMismatch(base *apperror.AppError, current, expected string) error {
	return apperror.Newf(base.Code, "%s: статус %q, ожидался %q", base.Message, current, expected)
}

// CheckCreate проверяет открытие спора: проект отклонён, инициатор — сторона проекта.
func CheckCreate(project *models.Project, initiator uuid.UUID) error {
	if project.Status != models.ProjectStatusRejected {
		return statusMismatch(apperror.ErrInvalidState, project.Status, models.ProjectStatusRejected)
	}
	if !project.IsParty(initiator) {
		return apperror.New(apperror.ErrCodeForbidden, "спор открывает только сторона проекта")
	}
	return nil
}

// CheckSubmitAiVerdict проверяет приём вердикта ИИ: спор ждёт ИИ в первом раунде.
// Повторная подача того же вердикта отклоняется: спор уже не в ai_processing.
func CheckSubmitAiVerdict(d *models.Dispute) error {
	if d.Status != models.DisputeStatusAiProcessing {
		return statusMismatch(apperror.ErrNotAwaitingAi, d.Status, models.DisputeStatusAiProcessing)
	}
	if d.Round != 1 {
		return apperror.ErrNotAwaitingAi
	}
	return nil
}

// CheckAppeal проверяет апелляцию: статус appealable, окно открыто,
// лестница не исчерпана, апеллянт — проигравший последнего решения.
func CheckAppeal(d *models.Dispute, appellant, clientID, freelancerID uuid.UUID, now time.Time) error {
	if d.Status != models.DisputeStatusAppealable {
		return statusMismatch(apperror.ErrNotAppealable, d.Status, models.DisputeStatusAppealable)
	}
	if d.AppealBy != nil && now.After(*d.AppealBy) {
		return apperror.ErrAppealWindowShut
	}
	if d.Round >= MaxRounds {
		return apperror.ErrMaxRoundsReached
	}
	if d.Ruling == nil {
		return apperror.New(apperror.ErrCodeConsistency, "статус appealable без зафиксированного решения")
	}
	if models.LoserOf(*d.Ruling, clientID, freelancerID) != appellant {
		return apperror.ErrNotLoser
	}
	return nil
}

// CheckCastVote проверяет голос: фаза voting, срок не истёк, аккаунт в
// составе жюри текущего раунда и ещё не голосовал.
func CheckCastVote(d *models.Dispute, roster []models.DisputeJuror, juror uuid.UUID, now time.Time) error {
	if d.Status != models.DisputeStatusVoting {
		return statusMismatch(apperror.ErrNotVotingPhase, d.Status, models.DisputeStatusVoting)
	}
	if now.After(d.RoundDeadline) {
		return apperror.ErrVotingClosed
	}
	for _, seat := range roster {
		if seat.JurorID == juror {
			if seat.HasVoted {
				return apperror.ErrAlreadyVoted
			}
			return nil
		}
	}
	return apperror.ErrNotJuror
}

// CheckFinalize проверяет подведение итогов раунда: фаза voting и
// либо достигнут кворум, либо истёк срок голосования.
func CheckFinalize(d *models.Dispute, policy RoundPolicy, votesCast int, now time.Time) error {
	if d.Status != models.DisputeStatusVoting {
		return statusMismatch(apperror.ErrNotVotingPhase, d.Status, models.DisputeStatusVoting)
	}
	if votesCast >= policy.Quorum {
		return nil
	}
	if now.After(d.RoundDeadline) {
		return nil
	}
	return apperror.ErrVotingNotComplete
}

// CheckEnforce проверяет исполнение окончательного решения: либо статус
// finalized (последний раунд), либо appealable с истёкшим окном апелляции.
// Повторный вызов по разрешённому спору — ошибка, а не второй перевод средств.
func CheckEnforce(d *models.Dispute, now time.Time) error {
	switch d.Status {
	case models.DisputeStatusResolved:
		return apperror.ErrAlreadyResolved
	case models.DisputeStatusFinalized:
		return nil
	case models.DisputeStatusAppealable:
		if d.AppealBy != nil && now.After(*d.AppealBy) {
			return nil
		}
		return apperror.ErrAppealWindowOpen
	default:
		return statusMismatch(apperror.ErrNotAppealable, d.Status, models.DisputeStatusAppealable)
	}
}

// CheckAiTimeout проверяет принудительный выход из ожидания ИИ:
// вердикт не поступил до дедлайна, спор эскалируется в жюри.
func CheckAiTimeout(d *models.Dispute, now time.Time) error {
	if d.Status != models.DisputeStatusAiProcessing {
		return statusMismatch(apperror.ErrNotAwaitingAi, d.Status, models.DisputeStatusAiProcessing)
	}
	if !now.After(d.RoundDeadline) {
		return apperror.ErrAiNotExpired
	}
	return nil
}

// CheckSubmitEvidence проверяет добавление доказательства: спор активен,
// податель — сторона спора либо присяжный текущего раунда.
func CheckSubmitEvidence(d *models.Dispute, project *models.Project, submitter uuid.UUID) error {
	if d.Status == models.DisputeStatusResolved {
		return apperror.New(apperror.ErrCodeConflict, "спор уже разрешён, доказательства не принимаются")
	}
	if !project.IsParty(submitter) {
		return apperror.New(apperror.ErrCodeForbidden, "доказательства подают только стороны спора")
	}
	return nil
}
