package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit actions written by this service.
const (
	ActionClose             = "CLOSE"
	ActionReopen            = "REOPEN"
	ActionReconcile         = "RECONCILE"
	ActionDebtCreated       = "DEBT_CREATED"
	ActionAutoUpdateOpening = "AUTO_UPDATE_OPENING_BALANCE"
)

// Entity types referenced from audit entries.
const (
	EntityCashSession = "CASH_SESSION"
	EntityTicket      = "TICKET"
)

// EntityChangeLog is the append-only audit trail. Rows are written once and
// never updated or deleted by this service.
type EntityChangeLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EntityID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	EntityType string         `gorm:"type:varchar(30);not null;index"`
	Action     string         `gorm:"type:varchar(40);not null"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null"`
	SystemID   string         `gorm:"type:varchar(40);not null;index"`
	Details    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
}
