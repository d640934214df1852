package repository

import (
	"context"
	"errors"

	"clinicash/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DebtLedgerRepository interface {
	// FindByTicketTx returns (nil, nil) when the ticket has no debt row.
	FindByTicketTx(tx *gorm.DB, ticketID uuid.UUID) (*model.DebtLedger, error)
	CreateTx(tx *gorm.DB, d *model.DebtLedger) error
	UpdateTx(tx *gorm.DB, d *model.DebtLedger) error
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]model.DebtLedger, error)
}

type debtLedgerRepo struct{ db *gorm.DB }

func NewDebtLedgerRepository(db *gorm.DB) DebtLedgerRepository { return &debtLedgerRepo{db: db} }

func (r *debtLedgerRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *debtLedgerRepo) FindByTicketTx(tx *gorm.DB, ticketID uuid.UUID) (*model.DebtLedger, error) {
	var d model.DebtLedger
	err := r.conn(tx).Where("ticket_id = ?", ticketID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &d, err
}

func (r *debtLedgerRepo) CreateTx(tx *gorm.DB, d *model.DebtLedger) error {
	return r.conn(tx).Create(d).Error
}

func (r *debtLedgerRepo) UpdateTx(tx *gorm.DB, d *model.DebtLedger) error {
	return r.conn(tx).Save(d).Error
}

func (r *debtLedgerRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]model.DebtLedger, error) {
	var debts []model.DebtLedger
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&debts).Error
	return debts, err
}
