package models

import (
	"time"

	"github.com/google/uuid"
)

// Состояния залога. Disposition выставляется ровно один раз,
// при разрешении раунда или всего спора.
const (
	BondReserved = "reserved"
	BondRefunded = "refunded"
	BondSeized   = "seized"
)

// BondRecord — запись о зарезервированном залоге за раунд спора.
type BondRecord struct {
	ID          int64      `db:"id" json:"id"`
	AccountID   uuid.UUID  `db:"account_id" json:"account_id"`
	DisputeID   int64      `db:"dispute_id" json:"dispute_id"`
	Round       int        `db:"round" json:"round"`
	Amount      int64      `db:"amount" json:"amount"`
	Disposition string     `db:"disposition" json:"disposition"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	DisposedAt  *time.Time `db:"disposed_at" json:"disposed_at,omitempty"`
}
