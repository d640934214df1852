package model

import (
	"time"

	"github.com/google/uuid"
)

// Clinic is the tenant-scoped operating unit a cash drawer belongs to.
// Prefix seeds session numbers (e.g. "CMO" → CMO-20260830-001).
type Clinic struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(150);not null"`
	Prefix    string    `gorm:"type:varchar(10);not null;default:'CLI'"`
	Currency  string    `gorm:"type:varchar(3);not null;default:'EUR'"`
	SystemID  string    `gorm:"type:varchar(40);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PosTerminal is a point-of-sale terminal within a clinic. A cash session
// may be bound to one; balance continuity at close is clinic-wide.
type PosTerminal struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(100);not null"`
	ClinicID  uuid.UUID `gorm:"type:uuid;not null;index"`
	IsActive  bool      `gorm:"not null;default:true"`
	SystemID  string    `gorm:"type:varchar(40);not null;index"`
	CreatedAt time.Time
}

// Client is the person a ticket (and any resulting debt) belongs to.
type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FirstName string    `gorm:"type:varchar(100);not null"`
	LastName  *string   `gorm:"type:varchar(100)"`
	Email     *string   `gorm:"type:varchar(150)"`
	ClinicID  *uuid.UUID `gorm:"type:uuid;index"`
	SystemID  string    `gorm:"type:varchar(40);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
