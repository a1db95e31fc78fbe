package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы спора. Единственный допустимый порядок:
// ai_processing -> appealable -> {voting -> appealable}* -> finalized -> resolved.
const (
	DisputeStatusAiProcessing = "ai_processing"
	DisputeStatusVoting       = "voting"
	DisputeStatusAppealable   = "appealable"
	DisputeStatusFinalized    = "finalized"
	DisputeStatusResolved     = "resolved"
)

// Решения по спору.
const (
	RulingClientWins     = "client_wins"
	RulingFreelancerWins = "freelancer_wins"
)

// Варианты голоса присяжного.
const (
	VoteForClient     = "for_client"
	VoteForFreelancer = "for_freelancer"
)

// Режимы раунда арбитража.
const (
	RoundModeAi   = "ai"
	RoundModeJury = "jury"
)

// Dispute описывает спор по проекту. Связь с проектом строго 1:1,
// активный раунд всегда ровно один.
type Dispute struct {
	ProjectID     int64      `db:"project_id" json:"project_id"`
	InitiatorID   uuid.UUID  `db:"initiator_id" json:"initiator_id"`
	Status        string     `db:"status" json:"status"`
	Round         int        `db:"round" json:"round"`
	Ruling        *string    `db:"ruling" json:"ruling,omitempty"`
	RoundDeadline time.Time  `db:"round_deadline" json:"round_deadline"`
	AppealBy      *time.Time `db:"appeal_by" json:"appeal_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// DisputeRound хранит запись одного раунда арбитража.
type DisputeRound struct {
	DisputeID     int64     `db:"dispute_id" json:"dispute_id"`
	Round         int       `db:"round" json:"round"`
	Mode          string    `db:"mode" json:"mode"`
	Tier          string    `db:"tier" json:"tier"`
	BondAmount    int64     `db:"bond_amount" json:"bond_amount"`
	SelectionSeed []byte    `db:"selection_seed" json:"-"`
	Ruling        *string   `db:"ruling" json:"ruling,omitempty"`
	Unanimous     bool      `db:"unanimous" json:"unanimous"`
	NoQuorum      bool      `db:"no_quorum" json:"no_quorum"`
	StartedAt     time.Time `db:"started_at" json:"started_at"`
	Deadline      time.Time `db:"deadline" json:"deadline"`
}

// DisputeJuror — место в составе присяжных конкретного раунда.
type DisputeJuror struct {
	DisputeID int64     `db:"dispute_id" json:"dispute_id"`
	Round     int       `db:"round" json:"round"`
	JurorID   uuid.UUID `db:"juror_id" json:"juror_id"`
	HasVoted  bool      `db:"has_voted" json:"has_voted"`
}

// DisputeVote — голос присяжного в раунде.
type DisputeVote struct {
	DisputeID int64     `db:"dispute_id" json:"dispute_id"`
	Round     int       `db:"round" json:"round"`
	JurorID   uuid.UUID `db:"juror_id" json:"juror_id"`
	Choice    string    `db:"choice" json:"choice"`
	CastAt    time.Time `db:"cast_at" json:"cast_at"`
}

// EvidenceReference — неизменяемый указатель на доказательство.
// Содержимое хранится вне системы, здесь только хэш и локатор.
type EvidenceReference struct {
	ID          int64     `db:"id" json:"id"`
	DisputeID   int64     `db:"dispute_id" json:"dispute_id"`
	Round       int       `db:"round" json:"round"`
	SubmitterID uuid.UUID `db:"submitter_id" json:"submitter_id"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	URI         string    `db:"uri" json:"uri"`
	Note        *string   `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// LoserOf возвращает проигравшую сторону для данного решения.
func LoserOf(ruling string, clientID uuid.UUID, freelancerID uuid.UUID) uuid.UUID {
	if ruling == RulingClientWins {
		return freelancerID
	}
	return clientID
}

// WinnerOf возвращает выигравшую сторону для данного решения.
func WinnerOf(ruling string, clientID uuid.UUID, freelancerID uuid.UUID) uuid.UUID {
	if ruling == RulingClientWins {
		return clientID
	}
	return freelancerID
}
