package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы транзакций. Каждое движение средств оставляет запись в журнале.
const (
	TransactionTypeDeposit       = "deposit"
	TransactionTypeEscrowHold    = "escrow_hold"
	TransactionTypeEscrowRelease = "escrow_release"
	TransactionTypeEscrowRefund  = "escrow_refund"
	TransactionTypeBondReserve   = "bond_reserve"
	TransactionTypeBondRefund    = "bond_refund"
	TransactionTypeBondSeize     = "bond_seize"
	TransactionTypeJurorStake    = "juror_stake"
	TransactionTypeJurorUnstake  = "juror_unstake"
	TransactionTypeJurorSlash    = "juror_slash"
)

// AccountBalance представляет баланс аккаунта в минимальных единицах валюты.
// Frozen включает эскроу проектов, залоги споров и стейк присяжного.
type AccountBalance struct {
	AccountID uuid.UUID `db:"account_id" json:"account_id"`
	Available int64     `db:"available" json:"available"`
	Frozen    int64     `db:"frozen" json:"frozen"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction представляет запись журнала движения средств.
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	AccountID   uuid.UUID `db:"account_id" json:"account_id"`
	ProjectID   *int64    `db:"project_id" json:"project_id,omitempty"`
	Type        string    `db:"type" json:"type"`
	Amount      int64     `db:"amount" json:"amount"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
