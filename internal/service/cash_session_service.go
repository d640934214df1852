package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinicash/internal/dto"
	"clinicash/internal/model"
	"clinicash/internal/repository"
	"clinicash/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sentinel errors mapped to HTTP statuses by the handler layer.
var (
	ErrSessionNotFound    = errors.New("sesión de caja no encontrada")
	ErrSessionNotOpen     = errors.New("la sesión de caja ya está cerrada o conciliada")
	ErrEarlierSessionOpen = errors.New("existe una sesión anterior abierta para esta caja; debe cerrarla primero")
	ErrSystemIDMissing    = errors.New("no se pudo determinar el systemId de la sesión")
	ErrSessionNotClosed   = errors.New("la operación requiere una sesión en estado cerrado")
	ErrOpenSessionExists  = errors.New("ya existe una sesión de caja abierta para esta clínica/TPV")
	ErrClinicNotFound     = errors.New("clínica no encontrada")
)

// deferredTolerance guards against floating-point residue being mistaken for
// a real deferred obligation.
var deferredTolerance = decimal.NewFromFloat(0.009)

type CashSessionService interface {
	Open(ctx context.Context, userID uuid.UUID, req dto.OpenCashSessionRequest) (*dto.CashSessionResponse, error)
	Close(ctx context.Context, sessionID, userID uuid.UUID, req dto.CloseCashSessionRequest) (*dto.CashSessionResponse, error)
	Reconcile(ctx context.Context, sessionID, userID uuid.UUID, req dto.ReconcileCashSessionRequest) (*dto.CashSessionResponse, error)
	Reopen(ctx context.Context, sessionID, userID uuid.UUID) (*dto.CashSessionResponse, error)
	GetDetail(ctx context.Context, sessionID uuid.UUID) (*dto.CashSessionResponse, error)
	List(ctx context.Context, f dto.CashSessionFilter) (*dto.CashSessionListResponse, error)
	GetActive(ctx context.Context, clinicID uuid.UUID, posTerminalID *uuid.UUID) (*dto.CashSessionResponse, error)
	CountOpen(ctx context.Context, clinicID uuid.UUID) (int64, error)
}

type cashSessionService struct {
	repo       repository.CashSessionRepository
	tickets    repository.TicketRepository
	debts      repository.DebtLedgerRepository
	logs       repository.ChangeLogRepository
	clinics    repository.ClinicRepository
	users      repository.UserRepository
	dispatcher *worker.Dispatcher
}

func NewCashSessionService(
	repo repository.CashSessionRepository,
	tickets repository.TicketRepository,
	debts repository.DebtLedgerRepository,
	logs repository.ChangeLogRepository,
	clinics repository.ClinicRepository,
	users repository.UserRepository,
	dispatcher *worker.Dispatcher,
) CashSessionService {
	return &cashSessionService{
		repo:       repo,
		tickets:    tickets,
		debts:      debts,
		logs:       logs,
		clinics:    clinics,
		users:      users,
		dispatcher: dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Open ─────────────────────────────────────────────────────────────────────

func (s *cashSessionService) Open(ctx context.Context, userID uuid.UUID, req dto.OpenCashSessionRequest) (*dto.CashSessionResponse, error) {
	clinicID, err := uuid.Parse(req.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("clinic_id inválido: %w", err)
	}
	var posTerminalID *uuid.UUID
	if req.PosTerminalID != nil {
		tid, err := uuid.Parse(*req.PosTerminalID)
		if err != nil {
			return nil, fmt.Errorf("pos_terminal_id inválido: %w", err)
		}
		posTerminalID = &tid
	}

	clinic, err := s.clinics.FindByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	if clinic == nil {
		return nil, ErrClinicNotFound
	}

	if existing, err := s.repo.FindOpenByClinicTerminal(ctx, clinicID, posTerminalID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrOpenSessionExists
	}

	systemID := clinic.SystemID
	if systemID == "" {
		if user, err := s.users.FindByID(ctx, userID); err == nil {
			systemID = user.SystemID
		}
	}
	if systemID == "" {
		return nil, ErrSystemIDMissing
	}

	number, err := s.nextSessionNumber(ctx, clinic)
	if err != nil {
		return nil, err
	}

	session := &model.CashSession{
		SessionNumber:      number,
		UserID:             userID,
		ClinicID:           clinicID,
		PosTerminalID:      posTerminalID,
		OpeningBalanceCash: req.OpeningBalanceCash.Round(2),
		Status:             model.CashSessionOpen,
		OpeningTime:        time.Now(),
		SystemID:           systemID,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}
	return s.GetDetail(ctx, session.ID)
}

// nextSessionNumber builds PREFIX-YYYYMMDD-NNN, continuing today's sequence.
func (s *cashSessionService) nextSessionNumber(ctx context.Context, clinic *model.Clinic) (string, error) {
	prefix := clinic.Prefix
	if prefix == "" {
		prefix = "CLI"
	}
	datePrefix := fmt.Sprintf("%s-%s-", prefix, time.Now().Format("20060102"))

	last, err := s.repo.LastSessionNumber(ctx, clinic.ID, datePrefix)
	if err != nil {
		return "", err
	}
	seq := 1
	if last != "" {
		if _, err := fmt.Sscanf(last[len(datePrefix):], "%d", &seq); err == nil {
			seq++
		}
	}
	return fmt.Sprintf("%s%03d", datePrefix, seq), nil
}

// ── Close ────────────────────────────────────────────────────────────────────
// The whole close is one transaction: precondition checks, expected-cash
// computation, ticket accounting, debt reconciliation, audit entries and the
// opening-balance cascade either all commit or all roll back.

func (s *cashSessionService) Close(ctx context.Context, sessionID, userID uuid.UUID, req dto.CloseCashSessionRequest) (*dto.CashSessionResponse, error) {
	var (
		closed           *model.CashSession
		closedTickets    []model.Ticket
		newDebtsCreated  int
		ticketsAccounted int
	)

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		session, err := s.repo.FindForUpdateTx(tx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionNotFound
		}
		if session.Status != model.CashSessionOpen {
			return ErrSessionNotOpen
		}
		// Sequential closing: an earlier-opened OPEN session for the same
		// (clinic, terminal) pair blocks this close.
		earlier, err := s.repo.HasEarlierOpenTx(tx, session)
		if err != nil {
			return err
		}
		if earlier {
			return ErrEarlierSessionOpen
		}
		if session.SystemID == "" {
			return ErrSystemIDMissing
		}

		manualInput := orZero(req.ManualCashInput).Round(2)
		withdrawals := orZero(req.CashWithdrawals).Round(2)
		countedCash := orZero(req.CountedCash).Round(2)

		expected := session.OpeningBalanceCash.Add(manualInput)
		for _, p := range session.Payments {
			def := p.PaymentMethodDefinition
			if def == nil || def.Type != model.MethodCash {
				continue
			}
			switch p.Type {
			case model.PaymentDebit:
				expected = expected.Add(p.Amount)
			case model.PaymentCredit:
				expected = expected.Sub(p.Amount)
			}
		}
		expected = expected.Round(2)
		difference := countedCash.Sub(expected).Round(2)

		// Settle the clinic's closed tickets into this session, then
		// reconcile each one's deferred-payment exposure.
		if err := s.tickets.AccountClosedTicketsTx(tx, session.ClinicID, session.ID); err != nil {
			return err
		}
		tickets, err := s.tickets.FindAccountedBySessionTx(tx, session.ID)
		if err != nil {
			return err
		}

		totalDeferred := decimal.Zero
		for i := range tickets {
			deferred, created, err := s.reconcileTicketDebt(tx, &tickets[i], userID, session.SystemID)
			if err != nil {
				return err
			}
			if created {
				newDebtsCreated++
			}
			totalDeferred = totalDeferred.Add(deferred)
		}

		now := time.Now()
		session.CountedCash = &countedCash
		session.CountedCard = roundPtr(req.CountedCard)
		session.CountedBankTransfer = roundPtr(req.CountedBankTransfer)
		session.CountedCheck = roundPtr(req.CountedCheck)
		session.CountedInternalCredit = roundPtr(req.CountedInternalCredit)
		session.CountedOther = countedOtherToJSON(req.CountedOther)
		session.Notes = req.Notes
		session.ManualCashInput = manualInput
		session.CashWithdrawals = withdrawals
		session.CashExpenses = orZero(req.CashExpenses).Round(2)
		session.ExpectedCash = &expected
		session.DifferenceCash = &difference
		session.CalculatedDeferredAtClose = totalDeferred.Round(2)
		session.ClosingTime = &now
		session.Status = model.CashSessionClosed
		if err := s.repo.UpdateTx(tx, session); err != nil {
			return err
		}

		if err := s.logs.CreateTx(tx, auditEntry(session.ID, model.EntityCashSession, model.ActionClose, userID, session.SystemID, map[string]interface{}{
			"countedCash":    countedCash,
			"expectedCash":   expected,
			"differenceCash": difference,
		})); err != nil {
			return err
		}

		// Cascade: the drawer's effective final cash (withdrawals leave the
		// drawer) becomes the opening balance of the clinic's next OPEN
		// session, if any.
		effectiveFinal := countedCash.Sub(withdrawals).Round(2)
		next, err := s.repo.FindNextOpenByClinicTx(tx, session.ClinicID, session.OpeningTime)
		if err != nil {
			return err
		}
		if next != nil && !next.OpeningBalanceCash.Equal(effectiveFinal) {
			previous := next.OpeningBalanceCash
			next.OpeningBalanceCash = effectiveFinal
			if err := s.repo.UpdateTx(tx, next); err != nil {
				return err
			}
			if err := s.logs.CreateTx(tx, auditEntry(next.ID, model.EntityCashSession, model.ActionAutoUpdateOpening, userID, session.SystemID, map[string]interface{}{
				"previousBalance":      previous,
				"newBalance":           effectiveFinal,
				"triggeredBySessionId": session.ID.String(),
			})); err != nil {
				return err
			}
		}

		reloaded, err := s.repo.ReloadTx(tx, session.ID)
		if err != nil {
			return err
		}
		if reloaded == nil {
			return errors.New("no se pudo recargar la sesión cerrada")
		}
		closed = reloaded
		closedTickets = tickets
		ticketsAccounted = len(tickets)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	sessionsClosedTotal.Inc()
	debtsCreatedTotal.Add(float64(newDebtsCreated))

	// Best-effort close report: enqueued only after the transaction commits,
	// so a queue failure can never undo a close.
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueCloseReport(ctx, worker.CloseReportPayload{SessionID: closed.ID.String()}); err != nil {
			log.Warn().Err(err).Str("session_id", closed.ID.String()).Msg("failed to enqueue close report")
		}
	}

	resp := s.toResponse(closed)
	resp.Tickets = ticketSummaries(closedTickets)
	resp.TicketsAccountedCount = ticketsAccounted
	return resp, nil
}

// reconcileTicketDebt recomputes a ticket's deferred-payment exposure from
// its payment lines and settles the debt ledger and the ticket's own debt
// fields to match. Idempotent: re-running with no new payments changes
// nothing. Matches on the method type OR the well-known deferred code, which
// tolerates misclassified method definitions.
func (s *cashSessionService) reconcileTicketDebt(tx *gorm.DB, t *model.Ticket, userID uuid.UUID, systemID string) (decimal.Decimal, bool, error) {
	deferred := decimal.Zero
	for _, p := range t.Payments {
		if p.Type == model.PaymentDebit && p.PaymentMethodDefinition.IsDeferred() {
			deferred = deferred.Add(p.Amount)
		}
	}
	deferred = deferred.Round(2)

	existing, err := s.debts.FindByTicketTx(tx, t.ID)
	if err != nil {
		return decimal.Zero, false, err
	}

	// Below tolerance: no current deferred obligation. Reset the ticket's
	// debt fields and resolve any still-pending ledger row.
	if deferred.LessThanOrEqual(deferredTolerance) {
		if t.HasOpenDebt || !t.DueAmount.IsZero() {
			if err := s.tickets.UpdateDebtFieldsTx(tx, t.ID, false, decimal.Zero); err != nil {
				return decimal.Zero, false, err
			}
			t.HasOpenDebt = false
			t.DueAmount = decimal.Zero
		}
		if existing != nil && existing.Status == model.DebtPending {
			existing.Status = model.DebtPaid
			existing.PendingAmount = decimal.Zero
			if err := s.debts.UpdateTx(tx, existing); err != nil {
				return decimal.Zero, false, err
			}
		}
		return decimal.Zero, false, nil
	}

	created := false
	if existing != nil {
		pending := deferred.Sub(existing.PaidAmount).Round(2)
		status := model.DebtPending
		if existing.PaidAmount.GreaterThan(decimal.Zero) {
			status = model.DebtPartiallyPaid
		}
		if !existing.OriginalAmount.Equal(deferred) || !existing.PendingAmount.Equal(pending) || existing.Status != status {
			existing.OriginalAmount = deferred
			existing.PendingAmount = pending
			existing.Status = status
			if err := s.debts.UpdateTx(tx, existing); err != nil {
				return decimal.Zero, false, err
			}
		}
	} else if t.ClientID == nil || t.ClinicID == uuid.Nil {
		// Data-integrity gap: a debt row needs a client and a clinic. Log
		// and skip this ticket rather than aborting the whole close.
		log.Error().
			Str("ticket_id", t.ID.String()).
			Str("deferred", deferred.String()).
			Msg("ticket has deferred payments but lacks client or clinic; skipping debt creation")
	} else {
		debt := &model.DebtLedger{
			TicketID:       t.ID,
			ClientID:       *t.ClientID,
			ClinicID:       t.ClinicID,
			OriginalAmount: deferred,
			PaidAmount:     decimal.Zero,
			PendingAmount:  deferred,
			Status:         model.DebtPending,
			SystemID:       systemID,
		}
		if err := s.debts.CreateTx(tx, debt); err != nil {
			return decimal.Zero, false, err
		}
		created = true
		if err := s.logs.CreateTx(tx, auditEntry(t.ID, model.EntityTicket, model.ActionDebtCreated, userID, systemID, map[string]interface{}{
			"amount": deferred,
		})); err != nil {
			return decimal.Zero, false, err
		}
	}

	if !t.HasOpenDebt || !t.DueAmount.Equal(deferred) {
		if err := s.tickets.UpdateDebtFieldsTx(tx, t.ID, true, deferred); err != nil {
			return decimal.Zero, false, err
		}
		t.HasOpenDebt = true
		t.DueAmount = deferred
	}
	return deferred, created, nil
}

// ── Reconcile ────────────────────────────────────────────────────────────────

func (s *cashSessionService) Reconcile(ctx context.Context, sessionID, userID uuid.UUID, req dto.ReconcileCashSessionRequest) (*dto.CashSessionResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		session, err := s.repo.FindForUpdateTx(tx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionNotFound
		}
		if session.Status != model.CashSessionClosed {
			return ErrSessionNotClosed
		}

		now := time.Now()
		session.Status = model.CashSessionReconciled
		session.ReconciliationTime = &now
		session.ReconciliationNote = req.ReconciliationNotes
		if err := s.repo.UpdateTx(tx, session); err != nil {
			return err
		}
		return s.logs.CreateTx(tx, auditEntry(session.ID, model.EntityCashSession, model.ActionReconcile, userID, session.SystemID, nil))
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.GetDetail(ctx, sessionID)
}

// ── Reopen ───────────────────────────────────────────────────────────────────
// Reverts a CLOSED session to OPEN: its tickets go back to CLOSED and the
// closing figures are cleared. Debt rows are left as they are — the next
// close re-runs the idempotent reconciliation.

func (s *cashSessionService) Reopen(ctx context.Context, sessionID, userID uuid.UUID) (*dto.CashSessionResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		session, err := s.repo.FindForUpdateTx(tx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionNotFound
		}
		if session.Status != model.CashSessionClosed {
			return ErrSessionNotClosed
		}

		if err := s.tickets.RevertAccountedTx(tx, session.ID); err != nil {
			return err
		}

		session.Status = model.CashSessionOpen
		session.CountedCash = nil
		session.CountedCard = nil
		session.CountedBankTransfer = nil
		session.CountedCheck = nil
		session.CountedInternalCredit = nil
		session.CountedOther = nil
		session.ExpectedCash = nil
		session.DifferenceCash = nil
		session.ClosingTime = nil
		session.CalculatedDeferredAtClose = decimal.Zero
		if err := s.repo.UpdateTx(tx, session); err != nil {
			return err
		}
		return s.logs.CreateTx(tx, auditEntry(session.ID, model.EntityCashSession, model.ActionReopen, userID, session.SystemID, nil))
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.GetDetail(ctx, sessionID)
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *cashSessionService) GetDetail(ctx context.Context, sessionID uuid.UUID) (*dto.CashSessionResponse, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	resp := s.toResponse(session)
	resp.Tickets = ticketSummaries(session.Tickets)
	if session.Status == model.CashSessionOpen {
		if earlier, err := s.repo.HasEarlierOpen(ctx, session); err == nil {
			resp.HasEarlierOpenSession = earlier
		}
	}
	return resp, nil
}

func (s *cashSessionService) List(ctx context.Context, f dto.CashSessionFilter) (*dto.CashSessionListResponse, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	sessions, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(sessions))
	for i := range sessions {
		ids[i] = sessions[i].ID
	}
	billedBySession, err := s.repo.SumBilledForSessions(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CashSessionListItem, 0, len(sessions))
	for i := range sessions {
		cs := &sessions[i]
		items = append(items, dto.CashSessionListItem{
			ID:                 cs.ID.String(),
			SessionNumber:      cs.SessionNumber,
			Status:             string(cs.Status),
			ClinicID:           cs.ClinicID.String(),
			PosTerminalID:      uuidPtrToString(cs.PosTerminalID),
			UserName:           displayName(cs.User),
			OpeningBalanceCash: cs.OpeningBalanceCash,
			ExpectedCash:       cs.ExpectedCash,
			CountedCash:        cs.CountedCash,
			DifferenceCash:     cs.DifferenceCash,
			OpeningTime:        cs.OpeningTime,
			ClosingTime:        cs.ClosingTime,
			TotalBilled:        billedBySession[cs.ID].Round(2),
		})
	}

	totalPages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return &dto.CashSessionListResponse{
		Data:       items,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

func (s *cashSessionService) GetActive(ctx context.Context, clinicID uuid.UUID, posTerminalID *uuid.UUID) (*dto.CashSessionResponse, error) {
	session, err := s.repo.FindOpenByClinicTerminal(ctx, clinicID, posTerminalID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return s.GetDetail(ctx, session.ID)
}

func (s *cashSessionService) CountOpen(ctx context.Context, clinicID uuid.UUID) (int64, error) {
	return s.repo.CountOpen(ctx, clinicID)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *cashSessionService) toResponse(cs *model.CashSession) *dto.CashSessionResponse {
	resp := &dto.CashSessionResponse{
		ID:                        cs.ID.String(),
		SessionNumber:             cs.SessionNumber,
		Status:                    string(cs.Status),
		ClinicID:                  cs.ClinicID.String(),
		PosTerminalID:             uuidPtrToString(cs.PosTerminalID),
		UserName:                  displayName(cs.User),
		OpeningBalanceCash:        cs.OpeningBalanceCash,
		ManualCashInput:           cs.ManualCashInput,
		CashWithdrawals:           cs.CashWithdrawals,
		CashExpenses:              cs.CashExpenses,
		CountedCash:               cs.CountedCash,
		CountedCard:               cs.CountedCard,
		CountedBankTransfer:       cs.CountedBankTransfer,
		CountedCheck:              cs.CountedCheck,
		CountedInternalCredit:     cs.CountedInternalCredit,
		CountedOther:              countedOtherFromJSON(cs.CountedOther),
		ExpectedCash:              cs.ExpectedCash,
		DifferenceCash:            cs.DifferenceCash,
		CalculatedDeferredAtClose: cs.CalculatedDeferredAtClose,
		Notes:                     cs.Notes,
		OpeningTime:               cs.OpeningTime,
		ClosingTime:               cs.ClosingTime,
		ReconciliationTime:        cs.ReconciliationTime,
		PaymentTotals:             paymentTotals(cs.Payments),
	}
	if cs.Clinic != nil {
		resp.ClinicName = cs.Clinic.Name
	}
	if cs.PosTerminal != nil {
		resp.PosTerminalName = &cs.PosTerminal.Name
	}
	return resp
}

// paymentTotals aggregates a session's payments by (method type, terminal),
// signed by direction: DEBIT adds, CREDIT subtracts.
func paymentTotals(payments []model.Payment) []dto.PaymentTotal {
	type key struct {
		methodType string
		terminal   string
	}
	totals := make(map[key]*dto.PaymentTotal)
	var order []key

	for i := range payments {
		p := &payments[i]
		def := p.PaymentMethodDefinition
		if def == nil {
			continue
		}
		k := key{methodType: string(def.Type)}
		if p.PosTerminalID != nil {
			k.terminal = p.PosTerminalID.String()
		}
		entry, ok := totals[k]
		if !ok {
			entry = &dto.PaymentTotal{MethodType: string(def.Type), Amount: decimal.Zero}
			if p.PosTerminalID != nil {
				id := p.PosTerminalID.String()
				entry.PosTerminalID = &id
				if p.PosTerminal != nil {
					entry.PosTerminalName = &p.PosTerminal.Name
				}
			}
			totals[k] = entry
			order = append(order, k)
		}
		if p.Type == model.PaymentDebit {
			entry.Amount = entry.Amount.Add(p.Amount)
		} else {
			entry.Amount = entry.Amount.Sub(p.Amount)
		}
	}

	out := make([]dto.PaymentTotal, 0, len(order))
	for _, k := range order {
		totals[k].Amount = totals[k].Amount.Round(2)
		out = append(out, *totals[k])
	}
	return out
}

func ticketSummaries(tickets []model.Ticket) []dto.TicketSummary {
	out := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		summary := dto.TicketSummary{
			ID:           t.ID.String(),
			TicketNumber: t.TicketNumber,
			FinalAmount:  t.FinalAmount,
			DueAmount:    t.DueAmount,
			HasOpenDebt:  t.HasOpenDebt,
		}
		if t.Client != nil {
			name := t.Client.FirstName
			if t.Client.LastName != nil {
				name += " " + *t.Client.LastName
			}
			summary.ClientName = &name
		}
		out = append(out, summary)
	}
	return out
}

func auditEntry(entityID uuid.UUID, entityType, action string, userID uuid.UUID, systemID string, details map[string]interface{}) *model.EntityChangeLog {
	entry := &model.EntityChangeLog{
		EntityID:   entityID,
		EntityType: entityType,
		Action:     action,
		UserID:     userID,
		SystemID:   systemID,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	return entry
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func roundPtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}

func uuidPtrToString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func displayName(u *model.User) string {
	if u == nil {
		return ""
	}
	if u.LastName != nil {
		return u.FirstName + " " + *u.LastName
	}
	return u.FirstName
}

// countedOtherToJSON / countedOtherFromJSON are the single conversion point
// between the request's decimal map and the persisted JSON column.
func countedOtherToJSON(m map[string]decimal.Decimal) datatypes.JSONMap {
	if len(m) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v.Round(2).String()
	}
	return out
}

func countedOtherFromJSON(m datatypes.JSONMap) map[string]decimal.Decimal {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		switch n := v.(type) {
		case string:
			if d, err := decimal.NewFromString(n); err == nil {
				out[k] = d
			}
		case float64:
			out[k] = decimal.NewFromFloat(n).Round(2)
		}
	}
	return out
}
