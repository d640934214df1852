package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CashSessionStatus is a linear lifecycle: OPEN → CLOSED → RECONCILED.
type CashSessionStatus string

const (
	CashSessionOpen       CashSessionStatus = "OPEN"
	CashSessionClosed     CashSessionStatus = "CLOSED"
	CashSessionReconciled CashSessionStatus = "RECONCILED"
)

// CashSession represents one shift of a cash drawer at a clinic, optionally
// tied to a specific POS terminal. At most one OPEN session may exist per
// (clinic, terminal) pair, and sessions for a pair close in opening order.
type CashSession struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionNumber string     `gorm:"type:varchar(40);uniqueIndex;not null"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null"`
	ClinicID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	PosTerminalID *uuid.UUID `gorm:"type:uuid;index"`

	OpeningBalanceCash decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// ManualCashInput is cash added to the drawer mid-shift; CashWithdrawals
	// is cash physically removed at close and therefore not carried forward.
	ManualCashInput decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CashWithdrawals decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CashExpenses    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	CountedCash           *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CountedCard           *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CountedBankTransfer   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CountedCheck          *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CountedInternalCredit *decimal.Decimal `gorm:"type:decimal(12,2)"`
	// CountedOther holds free-form named tender counts declared at close.
	CountedOther datatypes.JSONMap `gorm:"type:jsonb"`

	// ExpectedCash and DifferenceCash are computed once, at close, rounded to
	// 2 decimals before persisting.
	ExpectedCash   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DifferenceCash *decimal.Decimal `gorm:"type:decimal(12,2)"`

	// CalculatedDeferredAtClose is the total deferred-payment exposure
	// confirmed by the debt reconciliation of this close.
	CalculatedDeferredAtClose decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	Status             CashSessionStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Notes              *string
	ReconciliationNote *string

	OpeningTime        time.Time `gorm:"not null;index"`
	ClosingTime        *time.Time
	ReconciliationTime *time.Time

	SystemID  string `gorm:"type:varchar(40);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User        *User        `gorm:"foreignKey:UserID"`
	Clinic      *Clinic      `gorm:"foreignKey:ClinicID"`
	PosTerminal *PosTerminal `gorm:"foreignKey:PosTerminalID"`
	Payments    []Payment    `gorm:"foreignKey:CashSessionID"`
	Tickets     []Ticket     `gorm:"foreignKey:CashSessionID"`
}
