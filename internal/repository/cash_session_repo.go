package repository

import (
	"context"
	"errors"
	"time"

	"clinicash/internal/dto"
	"clinicash/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CashSessionRepository interface {
	// DB exposes the underlying handle so services can open transactions.
	// Returns nil in unit-test fakes.
	DB() *gorm.DB

	Create(ctx context.Context, s *model.CashSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	FindOpenByClinicTerminal(ctx context.Context, clinicID uuid.UUID, posTerminalID *uuid.UUID) (*model.CashSession, error)
	LastSessionNumber(ctx context.Context, clinicID uuid.UUID, prefix string) (string, error)
	List(ctx context.Context, f dto.CashSessionFilter) ([]model.CashSession, int64, error)
	SumBilledForSessions(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	CountOpen(ctx context.Context, clinicID uuid.UUID) (int64, error)
	ListStaleOpen(ctx context.Context, openedBefore time.Time) ([]model.CashSession, error)
	HasEarlierOpen(ctx context.Context, s *model.CashSession) (bool, error)

	// Tx variants run inside the close/reopen/reconcile transaction.
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error)
	HasEarlierOpenTx(tx *gorm.DB, s *model.CashSession) (bool, error)
	FindNextOpenByClinicTx(tx *gorm.DB, clinicID uuid.UUID, after time.Time) (*model.CashSession, error)
	UpdateTx(tx *gorm.DB, s *model.CashSession) error
	ReloadTx(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error)
}

type cashSessionRepo struct{ db *gorm.DB }

func NewCashSessionRepository(db *gorm.DB) CashSessionRepository {
	return &cashSessionRepo{db: db}
}

func (r *cashSessionRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *cashSessionRepo) DB() *gorm.DB { return r.db }

func (r *cashSessionRepo) Create(ctx context.Context, s *model.CashSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *cashSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Clinic").
		Preload("PosTerminal").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC") }).
		Preload("Payments.PaymentMethodDefinition").
		Preload("Payments.PosTerminal").
		Preload("Tickets", func(db *gorm.DB) *gorm.DB { return db.Order("ticket_number ASC") }).
		Preload("Tickets.Client").
		First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *cashSessionRepo) FindOpenByClinicTerminal(ctx context.Context, clinicID uuid.UUID, posTerminalID *uuid.UUID) (*model.CashSession, error) {
	q := r.db.WithContext(ctx).Where("clinic_id = ? AND status = ?", clinicID, model.CashSessionOpen)
	if posTerminalID != nil {
		q = q.Where("pos_terminal_id = ?", *posTerminalID)
	} else {
		q = q.Where("pos_terminal_id IS NULL")
	}
	var s model.CashSession
	err := q.First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *cashSessionRepo) LastSessionNumber(ctx context.Context, clinicID uuid.UUID, prefix string) (string, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("clinic_id = ? AND session_number LIKE ?", clinicID, prefix+"%").
		Order("session_number DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return s.SessionNumber, err
}

func (r *cashSessionRepo) List(ctx context.Context, f dto.CashSessionFilter) ([]model.CashSession, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.CashSession{}).Where("clinic_id = ?", f.ClinicID)
	if f.PosTerminalID != "" {
		q = q.Where("pos_terminal_id = ?", f.PosTerminalID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.StartDate != "" {
		q = q.Where("opening_time >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		if end, err := time.Parse("2006-01-02", f.EndDate); err == nil {
			q = q.Where("opening_time <= ?", end.Add(24*time.Hour-time.Millisecond))
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []model.CashSession
	err := q.Preload("User").Preload("Clinic").Preload("PosTerminal").
		Order("opening_time DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&sessions).Error
	return sessions, total, err
}

// SumBilledForSessions totals ticket billing per session in one grouped
// query. Sessions without matching tickets are absent from the result map.
func (r *cashSessionRepo) SumBilledForSessions(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		CashSessionID uuid.UUID
		Total         decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.Ticket{}).
		Select("cash_session_id, SUM(final_amount) AS total").
		Where("cash_session_id IN ? AND status IN ?", sessionIDs,
			[]model.TicketStatus{model.TicketClosed, model.TicketAccounted}).
		Group("cash_session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CashSessionID] = row.Total
	}
	return out, nil
}

func (r *cashSessionRepo) CountOpen(ctx context.Context, clinicID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CashSession{}).
		Where("clinic_id = ? AND status = ?", clinicID, model.CashSessionOpen).
		Count(&count).Error
	return count, err
}

func (r *cashSessionRepo) ListStaleOpen(ctx context.Context, openedBefore time.Time) ([]model.CashSession, error) {
	var sessions []model.CashSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND opening_time < ?", model.CashSessionOpen, openedBefore).
		Order("opening_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *cashSessionRepo) HasEarlierOpen(ctx context.Context, s *model.CashSession) (bool, error) {
	return r.hasEarlierOpen(r.db.WithContext(ctx), s)
}

// FindForUpdateTx loads the session with a row lock (SELECT ... FOR UPDATE)
// so concurrent closes of the same session serialize on the status check.
// Cash-type payments are preloaded for the expected-cash computation.
func (r *cashSessionRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.conn(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	err = r.conn(tx).
		Preload("PaymentMethodDefinition").
		Where("cash_session_id = ?", id).
		Find(&s.Payments).Error
	return &s, err
}

func (r *cashSessionRepo) HasEarlierOpenTx(tx *gorm.DB, s *model.CashSession) (bool, error) {
	return r.hasEarlierOpen(r.conn(tx), s)
}

// hasEarlierOpen checks for an OPEN session on the same (clinic, terminal)
// pair that opened strictly before s. Nil terminal only matches nil terminal.
func (r *cashSessionRepo) hasEarlierOpen(db *gorm.DB, s *model.CashSession) (bool, error) {
	q := db.Model(&model.CashSession{}).
		Where("clinic_id = ? AND status = ? AND opening_time < ? AND id <> ?",
			s.ClinicID, model.CashSessionOpen, s.OpeningTime, s.ID)
	if s.PosTerminalID != nil {
		q = q.Where("pos_terminal_id = ?", *s.PosTerminalID)
	} else {
		q = q.Where("pos_terminal_id IS NULL")
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

// FindNextOpenByClinicTx returns the OPEN session for the clinic with the
// smallest opening time strictly after the given instant. Terminal is not
// part of the match: opening-balance continuity is clinic-wide.
func (r *cashSessionRepo) FindNextOpenByClinicTx(tx *gorm.DB, clinicID uuid.UUID, after time.Time) (*model.CashSession, error) {
	var s model.CashSession
	err := r.conn(tx).
		Where("clinic_id = ? AND status = ? AND opening_time > ?", clinicID, model.CashSessionOpen, after).
		Order("opening_time ASC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *cashSessionRepo) UpdateTx(tx *gorm.DB, s *model.CashSession) error {
	return r.conn(tx).Save(s).Error
}

func (r *cashSessionRepo) ReloadTx(tx *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.conn(tx).
		Preload("User").
		Preload("Clinic").
		Preload("PosTerminal").
		Preload("Payments.PaymentMethodDefinition").
		Preload("Payments.PosTerminal").
		First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}
