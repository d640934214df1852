package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType is the direction of a payment: DEBIT reduces what the client
// owes, CREDIT increases it (refunds / reversals).
type PaymentType string

const (
	PaymentDebit  PaymentType = "DEBIT"
	PaymentCredit PaymentType = "CREDIT"
)

// Payment is a single tender applied to a ticket, recorded within the cash
// session that was open when it was taken.
type Payment struct {
	ID                        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Amount                    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Type                      PaymentType     `gorm:"type:varchar(10);not null"`
	PaymentMethodDefinitionID *uuid.UUID      `gorm:"type:uuid;index"`
	TicketID                  *uuid.UUID      `gorm:"type:uuid;index"`
	CashSessionID             *uuid.UUID      `gorm:"type:uuid;index"`
	PosTerminalID             *uuid.UUID      `gorm:"type:uuid"`
	DebtLedgerID              *uuid.UUID      `gorm:"type:uuid"`
	PaymentDate               time.Time       `gorm:"not null;index"`
	SystemID                  string          `gorm:"type:varchar(40);not null;index"`
	CreatedAt                 time.Time

	PaymentMethodDefinition *PaymentMethodDefinition `gorm:"foreignKey:PaymentMethodDefinitionID"`
	PosTerminal             *PosTerminal             `gorm:"foreignKey:PosTerminalID"`
	Ticket                  *Ticket                  `gorm:"foreignKey:TicketID"`
}
