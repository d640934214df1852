package service_test

// cash_session_service_test.go
// Close arithmetic, sequential-closing enforcement, debt reconciliation and
// the opening-balance cascade, exercised against in-memory repository fakes.

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"clinicash/internal/dto"
	"clinicash/internal/model"
	"clinicash/internal/repository"
	"clinicash/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory CashSessionRepository fake ─────────────────────────────────────

type fakeSessionRepo struct {
	sessions    map[uuid.UUID]*model.CashSession
	billed      map[uuid.UUID]decimal.Decimal
	billedCalls int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[uuid.UUID]*model.CashSession),
		billed:   make(map[uuid.UUID]decimal.Decimal),
	}
}

func (r *fakeSessionRepo) DB() *gorm.DB { return nil }

func (r *fakeSessionRepo) Create(_ context.Context, s *model.CashSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	return r.sessions[id], nil
}

func (r *fakeSessionRepo) FindOpenByClinicTerminal(_ context.Context, clinicID uuid.UUID, posTerminalID *uuid.UUID) (*model.CashSession, error) {
	for _, s := range r.sessions {
		if s.ClinicID == clinicID && s.Status == model.CashSessionOpen && sameTerminal(s.PosTerminalID, posTerminalID) {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) LastSessionNumber(_ context.Context, clinicID uuid.UUID, prefix string) (string, error) {
	var numbers []string
	for _, s := range r.sessions {
		if s.ClinicID == clinicID && strings.HasPrefix(s.SessionNumber, prefix) {
			numbers = append(numbers, s.SessionNumber)
		}
	}
	if len(numbers) == 0 {
		return "", nil
	}
	sort.Strings(numbers)
	return numbers[len(numbers)-1], nil
}

func (r *fakeSessionRepo) List(_ context.Context, f dto.CashSessionFilter) ([]model.CashSession, int64, error) {
	var out []model.CashSession
	for _, s := range r.sessions {
		if s.ClinicID.String() == f.ClinicID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpeningTime.After(out[j].OpeningTime) })
	return out, int64(len(out)), nil
}

func (r *fakeSessionRepo) SumBilledForSessions(_ context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	r.billedCalls++
	out := make(map[uuid.UUID]decimal.Decimal, len(sessionIDs))
	for _, id := range sessionIDs {
		if total, ok := r.billed[id]; ok {
			out[id] = total
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) CountOpen(_ context.Context, clinicID uuid.UUID) (int64, error) {
	var count int64
	for _, s := range r.sessions {
		if s.ClinicID == clinicID && s.Status == model.CashSessionOpen {
			count++
		}
	}
	return count, nil
}

func (r *fakeSessionRepo) ListStaleOpen(_ context.Context, openedBefore time.Time) ([]model.CashSession, error) {
	var out []model.CashSession
	for _, s := range r.sessions {
		if s.Status == model.CashSessionOpen && s.OpeningTime.Before(openedBefore) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) HasEarlierOpen(_ context.Context, s *model.CashSession) (bool, error) {
	return r.hasEarlierOpen(s), nil
}

func (r *fakeSessionRepo) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	return r.sessions[id], nil
}

func (r *fakeSessionRepo) HasEarlierOpenTx(_ *gorm.DB, s *model.CashSession) (bool, error) {
	return r.hasEarlierOpen(s), nil
}

func (r *fakeSessionRepo) hasEarlierOpen(s *model.CashSession) bool {
	for _, other := range r.sessions {
		if other.ID == s.ID || other.ClinicID != s.ClinicID || other.Status != model.CashSessionOpen {
			continue
		}
		if sameTerminal(other.PosTerminalID, s.PosTerminalID) && other.OpeningTime.Before(s.OpeningTime) {
			return true
		}
	}
	return false
}

func (r *fakeSessionRepo) FindNextOpenByClinicTx(_ *gorm.DB, clinicID uuid.UUID, after time.Time) (*model.CashSession, error) {
	var next *model.CashSession
	for _, s := range r.sessions {
		if s.ClinicID != clinicID || s.Status != model.CashSessionOpen || !s.OpeningTime.After(after) {
			continue
		}
		if next == nil || s.OpeningTime.Before(next.OpeningTime) {
			next = s
		}
	}
	return next, nil
}

func (r *fakeSessionRepo) UpdateTx(_ *gorm.DB, s *model.CashSession) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) ReloadTx(_ *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	return r.sessions[id], nil
}

func sameTerminal(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

var _ repository.CashSessionRepository = (*fakeSessionRepo)(nil)

// ── In-memory TicketRepository fake ──────────────────────────────────────────

type fakeTicketRepo struct {
	tickets map[uuid.UUID]*model.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[uuid.UUID]*model.Ticket)}
}

func (r *fakeTicketRepo) AccountClosedTicketsTx(_ *gorm.DB, clinicID, sessionID uuid.UUID) error {
	for _, t := range r.tickets {
		if t.ClinicID == clinicID && t.Status == model.TicketClosed {
			t.Status = model.TicketAccounted
			sid := sessionID
			t.CashSessionID = &sid
		}
	}
	return nil
}

func (r *fakeTicketRepo) FindAccountedBySessionTx(_ *gorm.DB, sessionID uuid.UUID) ([]model.Ticket, error) {
	var out []model.Ticket
	for _, t := range r.tickets {
		if t.CashSessionID != nil && *t.CashSessionID == sessionID && t.Status == model.TicketAccounted {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *fakeTicketRepo) UpdateDebtFieldsTx(_ *gorm.DB, ticketID uuid.UUID, hasOpenDebt bool, dueAmount decimal.Decimal) error {
	t, ok := r.tickets[ticketID]
	if !ok {
		return errors.New("ticket not found")
	}
	t.HasOpenDebt = hasOpenDebt
	t.DueAmount = dueAmount
	return nil
}

func (r *fakeTicketRepo) RevertAccountedTx(_ *gorm.DB, sessionID uuid.UUID) error {
	for _, t := range r.tickets {
		if t.CashSessionID != nil && *t.CashSessionID == sessionID && t.Status == model.TicketAccounted {
			t.Status = model.TicketClosed
		}
	}
	return nil
}

var _ repository.TicketRepository = (*fakeTicketRepo)(nil)

// ── In-memory DebtLedgerRepository fake ──────────────────────────────────────

type fakeDebtRepo struct {
	byTicket map[uuid.UUID]*model.DebtLedger
}

func newFakeDebtRepo() *fakeDebtRepo {
	return &fakeDebtRepo{byTicket: make(map[uuid.UUID]*model.DebtLedger)}
}

func (r *fakeDebtRepo) FindByTicketTx(_ *gorm.DB, ticketID uuid.UUID) (*model.DebtLedger, error) {
	return r.byTicket[ticketID], nil
}

func (r *fakeDebtRepo) CreateTx(_ *gorm.DB, d *model.DebtLedger) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if _, exists := r.byTicket[d.TicketID]; exists {
		return errors.New("duplicate debt for ticket")
	}
	r.byTicket[d.TicketID] = d
	return nil
}

func (r *fakeDebtRepo) UpdateTx(_ *gorm.DB, d *model.DebtLedger) error {
	r.byTicket[d.TicketID] = d
	return nil
}

func (r *fakeDebtRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]model.DebtLedger, error) {
	var out []model.DebtLedger
	for _, d := range r.byTicket {
		if d.ClientID == clientID {
			out = append(out, *d)
		}
	}
	return out, nil
}

var _ repository.DebtLedgerRepository = (*fakeDebtRepo)(nil)

// ── In-memory ChangeLogRepository fake ───────────────────────────────────────

type fakeChangeLogRepo struct {
	entries []model.EntityChangeLog
}

func (r *fakeChangeLogRepo) CreateTx(_ *gorm.DB, e *model.EntityChangeLog) error {
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeChangeLogRepo) ListByEntity(_ context.Context, entityID uuid.UUID) ([]model.EntityChangeLog, error) {
	var out []model.EntityChangeLog
	for _, e := range r.entries {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeChangeLogRepo) actions(entityID uuid.UUID) []string {
	var out []string
	for _, e := range r.entries {
		if e.EntityID == entityID {
			out = append(out, e.Action)
		}
	}
	return out
}

func (r *fakeChangeLogRepo) countAction(action string) int {
	count := 0
	for _, e := range r.entries {
		if e.Action == action {
			count++
		}
	}
	return count
}

var _ repository.ChangeLogRepository = (*fakeChangeLogRepo)(nil)

// ── Clinic / user fakes ──────────────────────────────────────────────────────

type fakeClinicRepo struct {
	clinics map[uuid.UUID]*model.Clinic
}

func (r *fakeClinicRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Clinic, error) {
	return r.clinics[id], nil
}

var _ repository.ClinicRepository = (*fakeClinicRepo)(nil)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email && u.Active {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]model.User, error) { return nil, nil }
func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}
func (r *fakeUserRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		u.Active = false
	}
	return nil
}
func (r *fakeUserRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		u.Active = true
	}
	return nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

// ── Fixture ──────────────────────────────────────────────────────────────────

const testSystemID = "sys-demo"

type fixture struct {
	sessions *fakeSessionRepo
	tickets  *fakeTicketRepo
	debts    *fakeDebtRepo
	logs     *fakeChangeLogRepo
	svc      service.CashSessionService

	clinicID uuid.UUID
	userID   uuid.UUID

	cashMethod     *model.PaymentMethodDefinition
	cardMethod     *model.PaymentMethodDefinition
	deferredMethod *model.PaymentMethodDefinition
	// legacyDeferred has type OTHER but carries the well-known deferred code.
	legacyDeferred *model.PaymentMethodDefinition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clinicID := uuid.New()
	userID := uuid.New()

	clinics := &fakeClinicRepo{clinics: map[uuid.UUID]*model.Clinic{
		clinicID: {ID: clinicID, Name: "Clínica Centro", Prefix: "CMO", SystemID: testSystemID},
	}}
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{
		userID: {ID: userID, Email: "cajero@test.local", FirstName: "Caja", Role: "cashier", SystemID: testSystemID, Active: true},
	}}

	f := &fixture{
		sessions: newFakeSessionRepo(),
		tickets:  newFakeTicketRepo(),
		debts:    newFakeDebtRepo(),
		logs:     &fakeChangeLogRepo{},
		clinicID: clinicID,
		userID:   userID,
	}
	f.svc = service.NewCashSessionService(f.sessions, f.tickets, f.debts, f.logs, clinics, users, nil)

	code := model.CodeSystemDeferred
	f.cashMethod = &model.PaymentMethodDefinition{ID: uuid.New(), Name: "Efectivo", Type: model.MethodCash, SystemID: testSystemID}
	f.cardMethod = &model.PaymentMethodDefinition{ID: uuid.New(), Name: "Tarjeta", Type: model.MethodCard, SystemID: testSystemID}
	f.deferredMethod = &model.PaymentMethodDefinition{ID: uuid.New(), Name: "Pago aplazado", Type: model.MethodDeferred, SystemID: testSystemID}
	f.legacyDeferred = &model.PaymentMethodDefinition{ID: uuid.New(), Name: "Aplazado (legacy)", Type: model.MethodOther, Code: &code, SystemID: testSystemID}
	return f
}

func (f *fixture) addSession(openingTime time.Time, terminal *uuid.UUID, openingBalance string) *model.CashSession {
	s := &model.CashSession{
		ID:                 uuid.New(),
		SessionNumber:      "CMO-20260830-" + uuid.NewString()[:3],
		UserID:             f.userID,
		ClinicID:           f.clinicID,
		PosTerminalID:      terminal,
		OpeningBalanceCash: dec(openingBalance),
		Status:             model.CashSessionOpen,
		OpeningTime:        openingTime,
		SystemID:           testSystemID,
	}
	f.sessions.sessions[s.ID] = s
	return s
}

func (f *fixture) addPayment(s *model.CashSession, method *model.PaymentMethodDefinition, ptype model.PaymentType, amount string, ticketID *uuid.UUID) {
	s.Payments = append(s.Payments, model.Payment{
		ID:                      uuid.New(),
		Amount:                  dec(amount),
		Type:                    ptype,
		PaymentMethodDefinition: method,
		TicketID:                ticketID,
		CashSessionID:           &s.ID,
		PaymentDate:             s.OpeningTime.Add(time.Minute),
		SystemID:                testSystemID,
	})
}

func (f *fixture) addClosedTicket(clientID *uuid.UUID, finalAmount string, payments ...model.Payment) *model.Ticket {
	t := &model.Ticket{
		ID:          uuid.New(),
		Status:      model.TicketClosed,
		FinalAmount: dec(finalAmount),
		DueAmount:   decimal.Zero,
		ClientID:    clientID,
		ClinicID:    f.clinicID,
		SystemID:    testSystemID,
		Payments:    payments,
	}
	f.tickets.tickets[t.ID] = t
	return t
}

func deferredPayment(method *model.PaymentMethodDefinition, amount string) model.Payment {
	return model.Payment{
		ID:                      uuid.New(),
		Amount:                  dec(amount),
		Type:                    model.PaymentDebit,
		PaymentMethodDefinition: method,
		PaymentDate:             time.Now(),
		SystemID:                testSystemID,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func closeReq(countedCash string) dto.CloseCashSessionRequest {
	return dto.CloseCashSessionRequest{CountedCash: decPtr(countedCash)}
}

// ── Close: cash arithmetic ───────────────────────────────────────────────────

func TestCloseComputesExpectedCashAndDifference(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-8*time.Hour), nil, "100.00")
	f.addPayment(s, f.cashMethod, model.PaymentDebit, "50.00", nil)
	f.addPayment(s, f.cashMethod, model.PaymentCredit, "5.00", nil)
	// Card payments must not touch the cash expectation.
	f.addPayment(s, f.cardMethod, model.PaymentDebit, "400.00", nil)

	manual := dec("20.00")
	req := dto.CloseCashSessionRequest{
		CountedCash:     decPtr("160.00"),
		ManualCashInput: &manual,
	}

	resp, err := f.svc.Close(context.Background(), s.ID, f.userID, req)
	require.NoError(t, err)

	// 100 + 20 + 50 - 5 = 165
	require.NotNil(t, resp.ExpectedCash)
	require.NotNil(t, resp.DifferenceCash)
	assert.True(t, resp.ExpectedCash.Equal(dec("165.00")), "expected %s", resp.ExpectedCash)
	assert.True(t, resp.DifferenceCash.Equal(dec("-5.00")), "difference %s", resp.DifferenceCash)
	assert.Equal(t, string(model.CashSessionClosed), resp.Status)

	stored := f.sessions.sessions[s.ID]
	assert.Equal(t, model.CashSessionClosed, stored.Status)
	require.NotNil(t, stored.ClosingTime)
	assert.Contains(t, f.logs.actions(s.ID), model.ActionClose)
}

func TestCloseRoundsPersistedAmountsToTwoDecimals(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-4*time.Hour), nil, "10.00")
	f.addPayment(s, f.cashMethod, model.PaymentDebit, "33.333", nil)

	resp, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("43.33"))
	require.NoError(t, err)

	assert.True(t, resp.ExpectedCash.Equal(dec("43.33")))
	assert.True(t, resp.DifferenceCash.IsZero())
}

// ── Close: preconditions ─────────────────────────────────────────────────────

func TestClosePreconditions(t *testing.T) {
	f := newFixture(t)

	t.Run("session not found", func(t *testing.T) {
		_, err := f.svc.Close(context.Background(), uuid.New(), f.userID, closeReq("0"))
		assert.ErrorIs(t, err, service.ErrSessionNotFound)
	})

	t.Run("already closed", func(t *testing.T) {
		s := f.addSession(time.Now().Add(-2*time.Hour), nil, "0")
		s.Status = model.CashSessionClosed
		_, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
		assert.ErrorIs(t, err, service.ErrSessionNotOpen)
	})

	t.Run("missing system id", func(t *testing.T) {
		s := f.addSession(time.Now().Add(-1*time.Hour), nil, "0")
		s.SystemID = ""
		_, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
		assert.ErrorIs(t, err, service.ErrSystemIDMissing)
	})
}

func TestCloseRejectsWhenEarlierSessionOpenOnSamePair(t *testing.T) {
	f := newFixture(t)
	terminal := uuid.New()

	earlier := f.addSession(time.Now().Add(-10*time.Hour), &terminal, "50.00")
	later := f.addSession(time.Now().Add(-2*time.Hour), &terminal, "80.00")

	_, err := f.svc.Close(context.Background(), later.ID, f.userID, closeReq("80.00"))
	assert.ErrorIs(t, err, service.ErrEarlierSessionOpen)

	// Closing in opening order works.
	_, err = f.svc.Close(context.Background(), earlier.ID, f.userID, closeReq("50.00"))
	require.NoError(t, err)
	_, err = f.svc.Close(context.Background(), later.ID, f.userID, closeReq("80.00"))
	require.NoError(t, err)
}

func TestCloseTerminalPairsDoNotBlockEachOther(t *testing.T) {
	f := newFixture(t)
	terminal := uuid.New()

	// An earlier open session on a different terminal is a different drawer.
	f.addSession(time.Now().Add(-10*time.Hour), &terminal, "50.00")
	noTerminal := f.addSession(time.Now().Add(-2*time.Hour), nil, "30.00")

	_, err := f.svc.Close(context.Background(), noTerminal.ID, f.userID, closeReq("30.00"))
	require.NoError(t, err)
}

// ── Close: opening-balance cascade ───────────────────────────────────────────

func TestCloseCascadesEffectiveCashToNextOpenSession(t *testing.T) {
	f := newFixture(t)
	t1 := uuid.New()
	t2 := uuid.New()

	closing := f.addSession(time.Now().Add(-9*time.Hour), &t1, "100.00")
	next := f.addSession(time.Now().Add(-1*time.Hour), &t2, "0.00")

	withdrawals := dec("50.00")
	req := dto.CloseCashSessionRequest{
		CountedCash:     decPtr("200.00"),
		CashWithdrawals: &withdrawals,
	}
	_, err := f.svc.Close(context.Background(), closing.ID, f.userID, req)
	require.NoError(t, err)

	// 200 counted - 50 withdrawn = 150 carried forward.
	assert.True(t, next.OpeningBalanceCash.Equal(dec("150.00")), "got %s", next.OpeningBalanceCash)
	assert.Contains(t, f.logs.actions(next.ID), model.ActionAutoUpdateOpening)
}

func TestCloseCascadeSkipsEarlierAndClosedSessions(t *testing.T) {
	f := newFixture(t)
	t1 := uuid.New()
	t2 := uuid.New()
	t3 := uuid.New()

	// Opened before the closing session: must not be touched.
	earlier := f.addSession(time.Now().Add(-20*time.Hour), &t2, "11.00")
	closing := f.addSession(time.Now().Add(-9*time.Hour), &t1, "100.00")
	// Closed later session: not a cascade target either.
	closedLater := f.addSession(time.Now().Add(-3*time.Hour), &t3, "22.00")
	closedLater.Status = model.CashSessionClosed

	_, err := f.svc.Close(context.Background(), closing.ID, f.userID, closeReq("130.00"))
	require.NoError(t, err)

	assert.True(t, earlier.OpeningBalanceCash.Equal(dec("11.00")))
	assert.True(t, closedLater.OpeningBalanceCash.Equal(dec("22.00")))
	assert.NotContains(t, f.logs.actions(earlier.ID), model.ActionAutoUpdateOpening)
}

func TestCloseCascadeSkipsAuditWhenBalanceAlreadyMatches(t *testing.T) {
	f := newFixture(t)
	t1 := uuid.New()
	t2 := uuid.New()

	closing := f.addSession(time.Now().Add(-9*time.Hour), &t1, "100.00")
	next := f.addSession(time.Now().Add(-1*time.Hour), &t2, "130.00")

	_, err := f.svc.Close(context.Background(), closing.ID, f.userID, closeReq("130.00"))
	require.NoError(t, err)

	assert.True(t, next.OpeningBalanceCash.Equal(dec("130.00")))
	assert.Empty(t, f.logs.actions(next.ID))
}

// ── Close: debt reconciliation ───────────────────────────────────────────────

func TestCloseCreatesDebtForDeferredTickets(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-6*time.Hour), nil, "0")
	clientID := uuid.New()

	ticket := f.addClosedTicket(&clientID, "150.00",
		deferredPayment(f.deferredMethod, "60.00"),
		deferredPayment(f.legacyDeferred, "40.00"),
	)

	resp, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
	require.NoError(t, err)

	debt := f.debts.byTicket[ticket.ID]
	require.NotNil(t, debt, "debt ledger row should exist")
	assert.True(t, debt.OriginalAmount.Equal(dec("100.00")))
	assert.True(t, debt.PendingAmount.Equal(dec("100.00")))
	assert.True(t, debt.PaidAmount.IsZero())
	assert.Equal(t, model.DebtPending, debt.Status)
	assert.Equal(t, clientID, debt.ClientID)
	assert.Equal(t, testSystemID, debt.SystemID)

	stored := f.tickets.tickets[ticket.ID]
	assert.Equal(t, model.TicketAccounted, stored.Status)
	assert.True(t, stored.HasOpenDebt)
	assert.True(t, stored.DueAmount.Equal(dec("100.00")))

	assert.True(t, resp.CalculatedDeferredAtClose.Equal(dec("100.00")))
	assert.Equal(t, 1, resp.TicketsAccountedCount)
	assert.Contains(t, f.logs.actions(ticket.ID), model.ActionDebtCreated)
}

func TestCloseDeferredBelowToleranceCreatesNoDebt(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-6*time.Hour), nil, "0")
	clientID := uuid.New()

	ticket := f.addClosedTicket(&clientID, "10.00", deferredPayment(f.deferredMethod, "0.005"))

	resp, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
	require.NoError(t, err)

	assert.Nil(t, f.debts.byTicket[ticket.ID])
	assert.False(t, f.tickets.tickets[ticket.ID].HasOpenDebt)
	assert.True(t, resp.CalculatedDeferredAtClose.IsZero())
}

func TestCloseResolvesPendingDebtWhenDeferredGone(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-6*time.Hour), nil, "0")
	clientID := uuid.New()

	// Fully settled in cash: no deferred lines remain.
	ticket := f.addClosedTicket(&clientID, "80.00", model.Payment{
		ID:                      uuid.New(),
		Amount:                  dec("80.00"),
		Type:                    model.PaymentDebit,
		PaymentMethodDefinition: f.cashMethod,
		PaymentDate:             time.Now(),
		SystemID:                testSystemID,
	})
	ticket.HasOpenDebt = true
	ticket.DueAmount = dec("80.00")
	f.debts.byTicket[ticket.ID] = &model.DebtLedger{
		ID:             uuid.New(),
		TicketID:       ticket.ID,
		ClientID:       clientID,
		ClinicID:       f.clinicID,
		OriginalAmount: dec("80.00"),
		PaidAmount:     decimal.Zero,
		PendingAmount:  dec("80.00"),
		Status:         model.DebtPending,
		SystemID:       testSystemID,
	}

	_, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
	require.NoError(t, err)

	debt := f.debts.byTicket[ticket.ID]
	assert.Equal(t, model.DebtPaid, debt.Status)
	assert.True(t, debt.PendingAmount.IsZero())
	assert.False(t, f.tickets.tickets[ticket.ID].HasOpenDebt)
	assert.True(t, f.tickets.tickets[ticket.ID].DueAmount.IsZero())
}

func TestCloseRecomputesExistingDebtConservingPaidAmount(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-6*time.Hour), nil, "0")
	clientID := uuid.New()

	ticket := f.addClosedTicket(&clientID, "100.00", deferredPayment(f.deferredMethod, "100.00"))
	f.debts.byTicket[ticket.ID] = &model.DebtLedger{
		ID:             uuid.New(),
		TicketID:       ticket.ID,
		ClientID:       clientID,
		ClinicID:       f.clinicID,
		OriginalAmount: dec("100.00"),
		PaidAmount:     dec("40.00"),
		PendingAmount:  dec("60.00"),
		Status:         model.DebtPending,
		SystemID:       testSystemID,
	}

	_, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
	require.NoError(t, err)

	debt := f.debts.byTicket[ticket.ID]
	assert.True(t, debt.OriginalAmount.Equal(dec("100.00")))
	assert.True(t, debt.PaidAmount.Equal(dec("40.00")))
	// pending = original - paid
	assert.True(t, debt.PendingAmount.Equal(dec("60.00")))
	assert.Equal(t, model.DebtPartiallyPaid, debt.Status)
	assert.Equal(t, 0, f.logs.countAction(model.ActionDebtCreated))
}

func TestCloseSkipsDebtCreationWhenClientMissing(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-6*time.Hour), nil, "0")

	ticket := f.addClosedTicket(nil, "50.00", deferredPayment(f.deferredMethod, "50.00"))

	resp, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
	require.NoError(t, err)

	// No fabricated row, but the exposure is still tracked on the ticket and
	// in the session total.
	assert.Nil(t, f.debts.byTicket[ticket.ID])
	assert.True(t, f.tickets.tickets[ticket.ID].HasOpenDebt)
	assert.True(t, resp.CalculatedDeferredAtClose.Equal(dec("50.00")))
	assert.Equal(t, 0, f.logs.countAction(model.ActionDebtCreated))
}

// ── Reopen / idempotent re-close ─────────────────────────────────────────────

func TestReopenRestoresOpenStateAndRevertsTickets(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-6*time.Hour), nil, "25.00")
	clientID := uuid.New()
	ticket := f.addClosedTicket(&clientID, "30.00", deferredPayment(f.deferredMethod, "30.00"))

	_, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("25.00"))
	require.NoError(t, err)
	require.Equal(t, model.TicketAccounted, f.tickets.tickets[ticket.ID].Status)

	resp, err := f.svc.Reopen(context.Background(), s.ID, f.userID)
	require.NoError(t, err)

	assert.Equal(t, string(model.CashSessionOpen), resp.Status)
	assert.Nil(t, resp.CountedCash)
	assert.Nil(t, resp.ExpectedCash)
	assert.Nil(t, resp.ClosingTime)
	assert.Equal(t, model.TicketClosed, f.tickets.tickets[ticket.ID].Status)
	assert.Contains(t, f.logs.actions(s.ID), model.ActionReopen)
}

func TestCloseAfterReopenIsIdempotentForDebts(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-6*time.Hour), nil, "0")
	clientID := uuid.New()
	ticket := f.addClosedTicket(&clientID, "70.00", deferredPayment(f.deferredMethod, "70.00"))

	_, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
	require.NoError(t, err)
	_, err = f.svc.Reopen(context.Background(), s.ID, f.userID)
	require.NoError(t, err)
	_, err = f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
	require.NoError(t, err)

	debt := f.debts.byTicket[ticket.ID]
	require.NotNil(t, debt)
	assert.True(t, debt.OriginalAmount.Equal(dec("70.00")))
	assert.True(t, debt.PendingAmount.Equal(dec("70.00")))
	assert.Equal(t, model.DebtPending, debt.Status)
	// The ledger row is created once, not duplicated by the second close.
	assert.Equal(t, 1, f.logs.countAction(model.ActionDebtCreated))
}

// ── Reconcile ────────────────────────────────────────────────────────────────

func TestReconcileRequiresClosedSession(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-2*time.Hour), nil, "0")

	_, err := f.svc.Reconcile(context.Background(), s.ID, f.userID, dto.ReconcileCashSessionRequest{})
	assert.ErrorIs(t, err, service.ErrSessionNotClosed)

	_, err = f.svc.Close(context.Background(), s.ID, f.userID, closeReq("0"))
	require.NoError(t, err)

	note := "revisado sin incidencias"
	resp, err := f.svc.Reconcile(context.Background(), s.ID, f.userID, dto.ReconcileCashSessionRequest{ReconciliationNotes: &note})
	require.NoError(t, err)
	assert.Equal(t, string(model.CashSessionReconciled), resp.Status)
	assert.NotNil(t, resp.ReconciliationTime)
	assert.Contains(t, f.logs.actions(s.ID), model.ActionReconcile)

	// A reconciled session cannot be reopened.
	_, err = f.svc.Reopen(context.Background(), s.ID, f.userID)
	assert.ErrorIs(t, err, service.ErrSessionNotClosed)
}

// ── Open ─────────────────────────────────────────────────────────────────────

func TestOpenGeneratesSessionNumberAndRejectsDuplicate(t *testing.T) {
	f := newFixture(t)

	req := dto.OpenCashSessionRequest{
		ClinicID:           f.clinicID.String(),
		OpeningBalanceCash: dec("120.00"),
	}
	resp, err := f.svc.Open(context.Background(), f.userID, req)
	require.NoError(t, err)

	datePart := time.Now().Format("20060102")
	assert.Equal(t, "CMO-"+datePart+"-001", resp.SessionNumber)
	assert.Equal(t, string(model.CashSessionOpen), resp.Status)
	assert.True(t, resp.OpeningBalanceCash.Equal(dec("120.00")))

	// Same clinic, same (absent) terminal: second open is rejected.
	_, err = f.svc.Open(context.Background(), f.userID, req)
	assert.ErrorIs(t, err, service.ErrOpenSessionExists)

	// A distinct terminal is a distinct drawer.
	terminal := uuid.New().String()
	reqTerminal := dto.OpenCashSessionRequest{
		ClinicID:           f.clinicID.String(),
		OpeningBalanceCash: dec("10.00"),
		PosTerminalID:      &terminal,
	}
	respTerminal, err := f.svc.Open(context.Background(), f.userID, reqTerminal)
	require.NoError(t, err)
	assert.Equal(t, "CMO-"+datePart+"-002", respTerminal.SessionNumber)
}

func TestOpenUnknownClinic(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Open(context.Background(), f.userID, dto.OpenCashSessionRequest{
		ClinicID:           uuid.NewString(),
		OpeningBalanceCash: decimal.Zero,
	})
	assert.ErrorIs(t, err, service.ErrClinicNotFound)
}

// ── Detail / counters ────────────────────────────────────────────────────────

func TestGetDetailFlagsEarlierOpenSession(t *testing.T) {
	f := newFixture(t)
	terminal := uuid.New()
	f.addSession(time.Now().Add(-10*time.Hour), &terminal, "0")
	later := f.addSession(time.Now().Add(-1*time.Hour), &terminal, "0")

	resp, err := f.svc.GetDetail(context.Background(), later.ID)
	require.NoError(t, err)
	assert.True(t, resp.HasEarlierOpenSession)

	_, err = f.svc.GetDetail(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestCountOpen(t *testing.T) {
	f := newFixture(t)
	t1 := uuid.New()
	f.addSession(time.Now().Add(-5*time.Hour), nil, "0")
	f.addSession(time.Now().Add(-4*time.Hour), &t1, "0")
	closed := f.addSession(time.Now().Add(-3*time.Hour), &t1, "0")
	closed.Status = model.CashSessionClosed

	count, err := f.svc.CountOpen(context.Background(), f.clinicID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListFetchesBilledTotalsInOneLookup(t *testing.T) {
	f := newFixture(t)
	t1 := uuid.New()
	a := f.addSession(time.Now().Add(-5*time.Hour), nil, "0")
	b := f.addSession(time.Now().Add(-4*time.Hour), &t1, "0")
	f.sessions.billed[a.ID] = dec("300.00")

	resp, err := f.svc.List(context.Background(), dto.CashSessionFilter{ClinicID: f.clinicID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)

	byID := make(map[string]decimal.Decimal)
	for _, item := range resp.Data {
		byID[item.ID] = item.TotalBilled
	}
	assert.True(t, byID[a.ID.String()].Equal(dec("300.00")))
	assert.True(t, byID[b.ID.String()].IsZero())
	// One grouped lookup for the whole page, not one per session.
	assert.Equal(t, 1, f.sessions.billedCalls)
}

func TestCloseReportsSignedPaymentTotals(t *testing.T) {
	f := newFixture(t)
	s := f.addSession(time.Now().Add(-6*time.Hour), nil, "0")
	f.addPayment(s, f.cardMethod, model.PaymentDebit, "100.00", nil)
	f.addPayment(s, f.cardMethod, model.PaymentCredit, "30.00", nil)
	f.addPayment(s, f.cashMethod, model.PaymentDebit, "15.00", nil)

	resp, err := f.svc.Close(context.Background(), s.ID, f.userID, closeReq("15.00"))
	require.NoError(t, err)

	totals := make(map[string]decimal.Decimal)
	for _, pt := range resp.PaymentTotals {
		totals[pt.MethodType] = pt.Amount
	}
	assert.True(t, totals[string(model.MethodCard)].Equal(dec("70.00")))
	assert.True(t, totals[string(model.MethodCash)].Equal(dec("15.00")))
}
