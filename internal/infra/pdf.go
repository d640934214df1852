package infra

// pdf.go — close report generation using go-pdf/fpdf. One A4 page per closed
// session: identification header, cash arithmetic block, per-method totals
// and the deferred-debt summary.

import (
	"fmt"
	"os"
	"path/filepath"

	"clinicash/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateCloseReportPDF renders the close report for a CLOSED session.
// storagePath is created if needed. Returns the path of the written file.
func GenerateCloseReportPDF(session *model.CashSession, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("cierre_%s.pdf", session.SessionNumber)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Cierre de Caja", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	clinicName := session.ClinicID.String()
	if session.Clinic != nil {
		clinicName = session.Clinic.Name
	}
	pdf.CellFormat(contentW, 6, clinicName, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Sesión %s", session.SessionNumber), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Apertura: "+session.OpeningTime.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if session.ClosingTime != nil {
		pdf.CellFormat(contentW, 5, "Cierre: "+session.ClosingTime.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	if session.User != nil {
		pdf.CellFormat(contentW, 5, "Usuario: "+session.User.Email, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	// ── Cash arithmetic ──────────────────────────────────────────────────────
	labelW := contentW * 0.6
	amountW := contentW * 0.4

	row := func(label string, amount decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(amountW, 6, amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	row("Saldo inicial en efectivo", session.OpeningBalanceCash, false)
	row("Ingresos manuales", session.ManualCashInput, false)
	row("Retiros de efectivo", session.CashWithdrawals.Neg(), false)
	if session.ExpectedCash != nil {
		row("Efectivo esperado", *session.ExpectedCash, true)
	}
	if session.CountedCash != nil {
		row("Efectivo contado", *session.CountedCash, true)
	}
	if session.DifferenceCash != nil {
		row("Diferencia", *session.DifferenceCash, true)
	}
	pdf.Ln(3)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	// ── Per-method totals ────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, "Totales por método de pago", "", 1, "L", false, 0, "")

	totals := make(map[string]decimal.Decimal)
	var methods []string
	for i := range session.Payments {
		p := &session.Payments[i]
		if p.PaymentMethodDefinition == nil {
			continue
		}
		key := p.PaymentMethodDefinition.Name
		if _, ok := totals[key]; !ok {
			methods = append(methods, key)
		}
		if p.Type == model.PaymentDebit {
			totals[key] = totals[key].Add(p.Amount)
		} else {
			totals[key] = totals[key].Sub(p.Amount)
		}
	}
	for _, m := range methods {
		row(m, totals[m].Round(2), false)
	}
	pdf.Ln(3)

	// ── Deferred debt ────────────────────────────────────────────────────────
	row("Pagos aplazados confirmados al cierre", session.CalculatedDeferredAtClose, true)

	if session.Notes != nil && *session.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(contentW, 5, "Notas: "+*session.Notes, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
