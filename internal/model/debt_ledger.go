package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DebtStatus string

const (
	DebtPending       DebtStatus = "PENDING"
	DebtPartiallyPaid DebtStatus = "PARTIALLY_PAID"
	DebtPaid          DebtStatus = "PAID"
)

// DebtLedger tracks money a client owes from deferred payment on a ticket.
// At most one row exists per ticket, and PendingAmount = OriginalAmount -
// PaidAmount at all times.
type DebtLedger struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TicketID       uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	ClientID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClinicID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	OriginalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PendingAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status         DebtStatus      `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	SystemID       string          `gorm:"type:varchar(40);not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
