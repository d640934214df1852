package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketStatus: ACCOUNTED marks a ticket as settled into a cash session.
type TicketStatus string

const (
	TicketOpen      TicketStatus = "OPEN"
	TicketClosed    TicketStatus = "CLOSED"
	TicketAccounted TicketStatus = "ACCOUNTED"
	TicketVoid      TicketStatus = "VOID"
)

// Ticket is a sale/treatment document. HasOpenDebt and DueAmount must always
// equal the ticket's unresolved deferred-payment total; the cash-session
// close keeps them in sync.
type Ticket struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TicketNumber  *string         `gorm:"type:varchar(40);index"`
	Status        TicketStatus    `gorm:"type:varchar(20);not null;index"`
	FinalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DueAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	HasOpenDebt   bool            `gorm:"not null;default:false"`
	ClientID      *uuid.UUID      `gorm:"type:uuid;index"`
	ClinicID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	CashSessionID *uuid.UUID      `gorm:"type:uuid;index"`
	SystemID      string          `gorm:"type:varchar(40);not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Client   *Client   `gorm:"foreignKey:ClientID"`
	Clinic   *Clinic   `gorm:"foreignKey:ClinicID"`
	Payments []Payment `gorm:"foreignKey:TicketID"`
}
