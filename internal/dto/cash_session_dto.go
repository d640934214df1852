package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenCashSessionRequest struct {
	ClinicID           string          `json:"clinic_id"            validate:"required,uuid"`
	OpeningBalanceCash decimal.Decimal `json:"opening_balance_cash" validate:"min=0"`
	PosTerminalID      *string         `json:"pos_terminal_id"      validate:"omitempty,uuid"`
}

// CloseCashSessionRequest is the close declaration. CountedCash is the only
// required amount; everything else defaults to zero / absent. It is a pointer
// because zero is a legitimate count (emptied or all-card drawer) — presence
// is checked in the handler, not with a `required` tag, which would reject 0.
type CloseCashSessionRequest struct {
	CountedCash           *decimal.Decimal           `json:"counted_cash"`
	CountedCard           *decimal.Decimal           `json:"counted_card"            validate:"omitempty"`
	CountedBankTransfer   *decimal.Decimal           `json:"counted_bank_transfer"   validate:"omitempty"`
	CountedCheck          *decimal.Decimal           `json:"counted_check"           validate:"omitempty"`
	CountedInternalCredit *decimal.Decimal           `json:"counted_internal_credit" validate:"omitempty"`
	CountedOther          map[string]decimal.Decimal `json:"counted_other"           validate:"omitempty"`
	ManualCashInput       *decimal.Decimal           `json:"manual_cash_input"       validate:"omitempty"`
	CashWithdrawals       *decimal.Decimal           `json:"cash_withdrawals"        validate:"omitempty"`
	CashExpenses          *decimal.Decimal           `json:"cash_expenses"           validate:"omitempty"`
	Notes                 *string                    `json:"notes"`
}

type ReconcileCashSessionRequest struct {
	ReconciliationNotes *string `json:"reconciliation_notes"`
}

// CashSessionFilter narrows the paginated session list.
type CashSessionFilter struct {
	ClinicID      string `form:"clinic_id"       validate:"required,uuid"`
	PosTerminalID string `form:"pos_terminal_id" validate:"omitempty,uuid"`
	UserID        string `form:"user_id"         validate:"omitempty,uuid"`
	Status        string `form:"status"          validate:"omitempty,oneof=OPEN CLOSED RECONCILED"`
	StartDate     string `form:"start_date"      validate:"omitempty,datetime=2006-01-02"`
	EndDate       string `form:"end_date"        validate:"omitempty,datetime=2006-01-02"`
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// PaymentTotal is one row of the per-method breakdown: amounts are signed by
// payment direction (DEBIT adds, CREDIT subtracts).
type PaymentTotal struct {
	MethodType      string          `json:"method_type"`
	PosTerminalID   *string         `json:"pos_terminal_id,omitempty"`
	PosTerminalName *string         `json:"pos_terminal_name,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
}

type TicketSummary struct {
	ID           string          `json:"id"`
	TicketNumber *string         `json:"ticket_number"`
	FinalAmount  decimal.Decimal `json:"final_amount"`
	DueAmount    decimal.Decimal `json:"due_amount"`
	HasOpenDebt  bool            `json:"has_open_debt"`
	ClientName   *string         `json:"client_name,omitempty"`
}

type CashSessionResponse struct {
	ID                        string                     `json:"id"`
	SessionNumber             string                     `json:"session_number"`
	Status                    string                     `json:"status"`
	ClinicID                  string                     `json:"clinic_id"`
	ClinicName                string                     `json:"clinic_name,omitempty"`
	PosTerminalID             *string                    `json:"pos_terminal_id,omitempty"`
	PosTerminalName           *string                    `json:"pos_terminal_name,omitempty"`
	UserName                  string                     `json:"user_name,omitempty"`
	OpeningBalanceCash        decimal.Decimal            `json:"opening_balance_cash"`
	ManualCashInput           decimal.Decimal            `json:"manual_cash_input"`
	CashWithdrawals           decimal.Decimal            `json:"cash_withdrawals"`
	CashExpenses              decimal.Decimal            `json:"cash_expenses"`
	CountedCash               *decimal.Decimal           `json:"counted_cash"`
	CountedCard               *decimal.Decimal           `json:"counted_card,omitempty"`
	CountedBankTransfer       *decimal.Decimal           `json:"counted_bank_transfer,omitempty"`
	CountedCheck              *decimal.Decimal           `json:"counted_check,omitempty"`
	CountedInternalCredit     *decimal.Decimal           `json:"counted_internal_credit,omitempty"`
	CountedOther              map[string]decimal.Decimal `json:"counted_other,omitempty"`
	ExpectedCash              *decimal.Decimal           `json:"expected_cash"`
	DifferenceCash            *decimal.Decimal           `json:"difference_cash"`
	CalculatedDeferredAtClose decimal.Decimal            `json:"calculated_deferred_at_close"`
	Notes                     *string                    `json:"notes,omitempty"`
	OpeningTime               time.Time                  `json:"opening_time"`
	ClosingTime               *time.Time                 `json:"closing_time"`
	ReconciliationTime        *time.Time                 `json:"reconciliation_time"`
	PaymentTotals             []PaymentTotal             `json:"payment_totals"`
	Tickets                   []TicketSummary            `json:"tickets_accounted_in_session,omitempty"`
	TicketsAccountedCount     int                        `json:"tickets_accounted_count"`
	HasEarlierOpenSession     bool                       `json:"has_earlier_open_session"`
}

type CashSessionListItem struct {
	ID                 string           `json:"id"`
	SessionNumber      string           `json:"session_number"`
	Status             string           `json:"status"`
	ClinicID           string           `json:"clinic_id"`
	PosTerminalID      *string          `json:"pos_terminal_id,omitempty"`
	UserName           string           `json:"user_name,omitempty"`
	OpeningBalanceCash decimal.Decimal  `json:"opening_balance_cash"`
	ExpectedCash       *decimal.Decimal `json:"expected_cash"`
	CountedCash        *decimal.Decimal `json:"counted_cash"`
	DifferenceCash     *decimal.Decimal `json:"difference_cash"`
	OpeningTime        time.Time        `json:"opening_time"`
	ClosingTime        *time.Time       `json:"closing_time"`
	TotalBilled        decimal.Decimal  `json:"total_billed_in_session"`
}

type CashSessionListResponse struct {
	Data       []CashSessionListItem `json:"data"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalCount int64                 `json:"total_count"`
	TotalPages int                   `json:"total_pages"`
}
