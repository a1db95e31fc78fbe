package models

import (
	"time"

	"github.com/google/uuid"
)

// Уровни присяжных. Уровень пересчитывается только при stake/unstake,
// отбор в жюри использует сохранённый снимок.
const (
	TierIneligible = "ineligible"
	TierBronze     = "bronze"
	TierSilver     = "silver"
	TierGold       = "gold"
)

// TierRank возвращает порядковый ранг уровня для сравнения.
func TierRank(tier string) int {
	switch tier {
	case TierBronze:
		return 1
	case TierSilver:
		return 2
	case TierGold:
		return 3
	default:
		return 0
	}
}

// Juror — запись в реестре присяжных.
type Juror struct {
	AccountID    uuid.UUID `db:"account_id" json:"account_id"`
	Tier         string    `db:"tier" json:"tier"`
	Staked       int64     `db:"staked" json:"staked"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// ReputationStats — счётчики репутации аккаунта. Используются для
// определения уровня присяжного и ведутся по итогам проектов и споров.
type ReputationStats struct {
	AccountID         uuid.UUID `db:"account_id" json:"account_id"`
	ProjectsCompleted int       `db:"projects_completed" json:"projects_completed"`
	ProjectsFailed    int       `db:"projects_failed" json:"projects_failed"`
	TotalEarned       int64     `db:"total_earned" json:"total_earned"`
	DisputesInitiated int       `db:"disputes_initiated" json:"disputes_initiated"`
	DisputesWon       int       `db:"disputes_won" json:"disputes_won"`
	DisputesLost      int       `db:"disputes_lost" json:"disputes_lost"`
	JuryParticipation int       `db:"jury_participation" json:"jury_participation"`
	JuryMajorityVotes int       `db:"jury_majority_votes" json:"jury_majority_votes"`
}
