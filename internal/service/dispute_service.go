package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/arbitration-backend/internal/logger"
	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
	"github.com/ignatzorin/arbitration-backend/internal/repository"
	"github.com/ignatzorin/arbitration-backend/internal/validation"
)

// DisputeRepository описывает зависимости DisputeService от слоя хранилища.
// Каждый метод-переход атомарен, сервис не добавляет своих транзакций.
type DisputeRepository interface {
	GetByProject(ctx context.Context, projectID int64) (*models.Dispute, error)
	GetDetail(ctx context.Context, projectID int64) (*repository.DisputeDetail, error)
	Create(ctx context.Context, projectID int64, initiatorID uuid.UUID, evidence *repository.EvidenceParams) (*models.Dispute, error)
	SubmitAiVerdict(ctx context.Context, disputeID int64, ruling string) (*models.Dispute, error)
	Appeal(ctx context.Context, disputeID int64, appellantID uuid.UUID, evidence *repository.EvidenceParams) (*models.Dispute, error)
	CastVote(ctx context.Context, disputeID int64, jurorID uuid.UUID, choice string) (*models.Dispute, int, error)
	FinalizeRound(ctx context.Context, disputeID int64) (*models.Dispute, error)
	EnforceFinalRuling(ctx context.Context, disputeID int64) (*models.Dispute, error)
	TimeoutAiRound(ctx context.Context, disputeID int64) (*models.Dispute, error)
	SubmitEvidence(ctx context.Context, disputeID int64, submitterID uuid.UUID, params repository.EvidenceParams) (*models.EvidenceReference, error)
	ListExpired(ctx context.Context, now time.Time) (aiExpired, votingExpired, enforceable []int64, err error)
}

// DisputeNotifier рассылает события арбитража заинтересованным клиентам.
type DisputeNotifier interface {
	NotifyDispute(disputeID int64, event string, payload any)
}

// AiVerdictInput — вердикт ИИ-оракула. Confidence — степень уверенности
// модели в решении, Reasoning — человекочитаемое обоснование. На споре
// сохраняется только решение, уверенность и обоснование уходят в журнал.
type AiVerdictInput struct {
	Ruling     string  `json:"ruling"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// EvidenceInput — указатель на доказательство.
type EvidenceInput struct {
	ContentHash string  `json:"content_hash"`
	URI         string  `json:"uri"`
	Note        *string `json:"note,omitempty"`
}

// DisputeService проверяет входные данные операций арбитража и
// оркестрирует переходы машины состояний.
type DisputeService struct {
	repo     DisputeRepository
	notifier DisputeNotifier
}

// NewDisputeService создаёт сервис арбитража.
func NewDisputeService(repo DisputeRepository, notifier DisputeNotifier) *DisputeService {
	return &DisputeService{repo: repo, notifier: notifier}
}

// GetDispute возвращает спор с историей раундов.
func (s *DisputeService) GetDispute(ctx context.Context, projectID int64) (*repository.DisputeDetail, error) {
	return s.repo.GetDetail(ctx, projectID)
}

// CreateDispute открывает спор по отклонённому проекту. Инициатор может
// сразу приложить доказательство — оно записывается атомарно с открытием.
func (s *DisputeService) CreateDispute(ctx context.Context, projectID int64, initiatorID uuid.UUID, evidence *EvidenceInput) (*models.Dispute, error) {
	params, err := evidenceParams(evidence)
	if err != nil {
		return nil, err
	}
	dispute, err := s.repo.Create(ctx, projectID, initiatorID, params)
	if err != nil {
		return nil, err
	}
	s.notify(dispute.ProjectID, "dispute_created", dispute)
	return dispute, nil
}

// SubmitAiVerdict принимает вердикт оракула. Невалидный вердикт
// отклоняется без смены состояния спора.
func (s *DisputeService) SubmitAiVerdict(ctx context.Context, disputeID int64, oracleID uuid.UUID, input AiVerdictInput) (*models.Dispute, error) {
	if input.Ruling != models.RulingClientWins && input.Ruling != models.RulingFreelancerWins {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "недопустимое решение %q", input.Ruling)
	}
	if input.Confidence < 0 || input.Confidence > 1 {
		return nil, apperror.New(apperror.ErrCodeValidation, "confidence должен быть в диапазоне [0, 1]")
	}
	if input.Reasoning == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "обоснование вердикта обязательно")
	}

	dispute, err := s.repo.SubmitAiVerdict(ctx, disputeID, input.Ruling)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("dispute_id", disputeID).WithField("oracle_id", oracleID).
		WithField("ruling", input.Ruling).WithField("confidence", input.Confidence).Info("Принят вердикт ИИ")
	s.notify(disputeID, "ruling_submitted", dispute)
	return dispute, nil
}

// Appeal подаёт апелляцию от имени проигравшей стороны. Новое
// доказательство записывается к открываемому раунду той же транзакцией.
func (s *DisputeService) Appeal(ctx context.Context, disputeID int64, appellantID uuid.UUID, evidence *EvidenceInput) (*models.Dispute, error) {
	params, err := evidenceParams(evidence)
	if err != nil {
		return nil, err
	}
	dispute, err := s.repo.Appeal(ctx, disputeID, appellantID, params)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("dispute_id", disputeID).WithField("round", dispute.Round).Info("Апелляция принята")
	s.notify(disputeID, "ruling_appealed", dispute)
	return dispute, nil
}

// CastVote принимает голос присяжного. При достижении кворума раунд
// подводится сразу, не дожидаясь дедлайна.
func (s *DisputeService) CastVote(ctx context.Context, disputeID int64, jurorID uuid.UUID, choice string) (*models.Dispute, error) {
	if choice != models.VoteForClient && choice != models.VoteForFreelancer {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "недопустимый голос %q", choice)
	}

	dispute, votesCast, err := s.repo.CastVote(ctx, disputeID, jurorID, choice)
	if err != nil {
		return nil, err
	}
	s.notify(disputeID, "vote_cast", map[string]any{"dispute_id": disputeID, "votes_cast": votesCast})

	finalized, err := s.repo.FinalizeRound(ctx, disputeID)
	if err != nil {
		// Кворума ещё нет — голос принят, раунд продолжается.
		if apperror.Code(err) == apperror.ErrCodeTooEarly {
			return dispute, nil
		}
		return nil, err
	}
	s.notify(disputeID, "round_finalized", finalized)
	return finalized, nil
}

// FinalizeRound подводит итог раунда по запросу. Доступно любому:
// истёкший дедлайн двигает машину независимо от того, кто дёрнул ручку.
func (s *DisputeService) FinalizeRound(ctx context.Context, disputeID int64) (*models.Dispute, error) {
	dispute, err := s.repo.FinalizeRound(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	s.notify(disputeID, "round_finalized", dispute)
	return dispute, nil
}

// EnforceFinalRuling исполняет окончательное решение спора.
func (s *DisputeService) EnforceFinalRuling(ctx context.Context, disputeID int64) (*models.Dispute, error) {
	dispute, err := s.repo.EnforceFinalRuling(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("dispute_id", disputeID).WithField("ruling", *dispute.Ruling).Info("Решение спора исполнено")
	s.notify(disputeID, "ruling_executed", dispute)
	return dispute, nil
}

// TimeoutAiRound эскалирует спор с молчащим оракулом на жюри.
func (s *DisputeService) TimeoutAiRound(ctx context.Context, disputeID int64) (*models.Dispute, error) {
	dispute, err := s.repo.TimeoutAiRound(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("dispute_id", disputeID).Warn("Оракул не ответил в срок, спор эскалирован на жюри")
	s.notify(disputeID, "round_finalized", dispute)
	return dispute, nil
}

// SubmitEvidence добавляет указатель на доказательство.
func (s *DisputeService) SubmitEvidence(ctx context.Context, disputeID int64, submitterID uuid.UUID, input EvidenceInput) (*models.EvidenceReference, error) {
	params, err := evidenceParams(&input)
	if err != nil {
		return nil, err
	}
	return s.repo.SubmitEvidence(ctx, disputeID, submitterID, *params)
}

// evidenceParams проверяет входное доказательство и приводит его к
// параметрам хранилища. nil проходит насквозь: доказательство опционально.
func evidenceParams(input *EvidenceInput) (*repository.EvidenceParams, error) {
	if input == nil {
		return nil, nil
	}
	if err := validation.ValidateContentHash(input.ContentHash); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateURI(input.URI); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNote(input.Note); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	return &repository.EvidenceParams{ContentHash: input.ContentHash, URI: input.URI, Note: input.Note}, nil
}

// ProcessExpired обрабатывает споры с истёкшими сроками: молчание
// оракула эскалируется, затянувшиеся голосования подводятся, споры с
// окончательным решением исполняются. Ошибки отдельных споров
// логируются и не останавливают обход.
func (s *DisputeService) ProcessExpired(ctx context.Context, now time.Time) {
	aiExpired, votingExpired, enforceable, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		logger.Log.WithError(err).Error("Не удалось получить просроченные споры")
		return
	}

	for _, id := range aiExpired {
		if _, err := s.TimeoutAiRound(ctx, id); err != nil {
			logger.Log.WithError(err).WithField("dispute_id", id).Error("Не удалось эскалировать просроченный спор")
		}
	}
	for _, id := range votingExpired {
		if _, err := s.FinalizeRound(ctx, id); err != nil {
			logger.Log.WithError(err).WithField("dispute_id", id).Error("Не удалось подвести итог просроченного раунда")
		}
	}
	for _, id := range enforceable {
		if _, err := s.EnforceFinalRuling(ctx, id); err != nil {
			logger.Log.WithError(err).WithField("dispute_id", id).Error("Не удалось исполнить решение спора")
		}
	}
}

func (s *DisputeService) notify(disputeID int64, event string, payload any) {
	if s.notifier != nil {
		s.notifier.NotifyDispute(disputeID, event, payload)
	}
}
