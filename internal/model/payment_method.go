package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethodType string

const (
	MethodCash           PaymentMethodType = "CASH"
	MethodCard           PaymentMethodType = "CARD"
	MethodBankTransfer   PaymentMethodType = "BANK_TRANSFER"
	MethodCheck          PaymentMethodType = "CHECK"
	MethodInternalCredit PaymentMethodType = "INTERNAL_CREDIT"
	MethodDeferred       PaymentMethodType = "DEFERRED_PAYMENT"
	MethodOther          PaymentMethodType = "OTHER"
)

// CodeSystemDeferred is the well-known code of the system deferred-payment
// method. Debt reconciliation matches on it in addition to the type enum,
// because historical data contains deferred methods misclassified as OTHER.
const CodeSystemDeferred = "SYS_DEFERRED_PAYMENT"

// PaymentMethodDefinition describes a tender method available to a clinic.
type PaymentMethodDefinition struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name          string            `gorm:"type:varchar(100);not null"`
	Code          *string           `gorm:"type:varchar(50);index"`
	Type          PaymentMethodType `gorm:"type:varchar(30);not null;index"`
	PosTerminalID *uuid.UUID        `gorm:"type:uuid"`
	IsActive      bool              `gorm:"not null;default:true"`
	SystemID      string            `gorm:"type:varchar(40);not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsDeferred reports whether payments with this method represent a deferred
// (pay-later) obligation, matching by type or by the well-known code.
func (d *PaymentMethodDefinition) IsDeferred() bool {
	if d == nil {
		return false
	}
	if d.Type == MethodDeferred {
		return true
	}
	return d.Code != nil && *d.Code == CodeSystemDeferred
}
