package repository

import (
	"clinicash/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TicketRepository interface {
	// AccountClosedTicketsTx attaches the clinic's CLOSED tickets to the
	// closing session and flips them to ACCOUNTED.
	AccountClosedTicketsTx(tx *gorm.DB, clinicID, sessionID uuid.UUID) error
	// FindAccountedBySessionTx returns the session's ACCOUNTED tickets with
	// payments and their method definitions preloaded.
	FindAccountedBySessionTx(tx *gorm.DB, sessionID uuid.UUID) ([]model.Ticket, error)
	UpdateDebtFieldsTx(tx *gorm.DB, ticketID uuid.UUID, hasOpenDebt bool, dueAmount decimal.Decimal) error
	// RevertAccountedTx puts a reopened session's tickets back to CLOSED.
	RevertAccountedTx(tx *gorm.DB, sessionID uuid.UUID) error
}

type ticketRepo struct{ db *gorm.DB }

func NewTicketRepository(db *gorm.DB) TicketRepository { return &ticketRepo{db: db} }

func (r *ticketRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ticketRepo) AccountClosedTicketsTx(tx *gorm.DB, clinicID, sessionID uuid.UUID) error {
	return r.conn(tx).Model(&model.Ticket{}).
		Where("clinic_id = ? AND status = ?", clinicID, model.TicketClosed).
		Updates(map[string]interface{}{
			"status":          model.TicketAccounted,
			"cash_session_id": sessionID,
		}).Error
}

func (r *ticketRepo) FindAccountedBySessionTx(tx *gorm.DB, sessionID uuid.UUID) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := r.conn(tx).
		Preload("Payments.PaymentMethodDefinition").
		Where("cash_session_id = ? AND status = ?", sessionID, model.TicketAccounted).
		Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepo) UpdateDebtFieldsTx(tx *gorm.DB, ticketID uuid.UUID, hasOpenDebt bool, dueAmount decimal.Decimal) error {
	return r.conn(tx).Model(&model.Ticket{}).
		Where("id = ?", ticketID).
		Updates(map[string]interface{}{
			"has_open_debt": hasOpenDebt,
			"due_amount":    dueAmount,
		}).Error
}

func (r *ticketRepo) RevertAccountedTx(tx *gorm.DB, sessionID uuid.UUID) error {
	return r.conn(tx).Model(&model.Ticket{}).
		Where("cash_session_id = ? AND status = ?", sessionID, model.TicketAccounted).
		Update("status", model.TicketClosed).Error
}
