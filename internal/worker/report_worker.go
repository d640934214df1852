package worker

// report_worker.go
// Generates the close report PDF for a freshly closed cash session and hands
// it to the email queue. Runs after the close transaction has committed, so
// a failure here never affects the close itself.

import (
	"context"
	"encoding/json"
	"fmt"

	"clinicash/internal/infra"
	"clinicash/internal/model"
	"clinicash/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CloseReportPayload is the job envelope sent to QueueCloseReport.
type CloseReportPayload struct {
	SessionID string `json:"session_id"`
}

type ReportWorker struct {
	sessions    repository.CashSessionRepository
	dispatcher  *Dispatcher
	storagePath string
	emailTo     string
}

func NewReportWorker(sessions repository.CashSessionRepository, dispatcher *Dispatcher, storagePath, emailTo string) *ReportWorker {
	return &ReportWorker{sessions: sessions, dispatcher: dispatcher, storagePath: storagePath, emailTo: emailTo}
}

// Process renders the PDF and enqueues the email job.
func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CloseReportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return nil // malformed payloads are not retryable
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		log.Error().Str("session_id", payload.SessionID).Msg("report_worker: invalid session id")
		return nil
	}

	session, err := w.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("report_worker: load session: %w", err)
	}
	if session == nil {
		log.Warn().Str("session_id", payload.SessionID).Msg("report_worker: session no longer exists")
		return nil
	}
	if session.Status == model.CashSessionOpen {
		// Reopened before the worker got to it — nothing to report.
		log.Info().Str("session_id", payload.SessionID).Msg("report_worker: session was reopened, skipping")
		return nil
	}

	pdfPath, err := infra.GenerateCloseReportPDF(session, w.storagePath)
	if err != nil {
		return fmt.Errorf("report_worker: generate pdf: %w", err)
	}
	log.Info().Str("session_number", session.SessionNumber).Str("path", pdfPath).Msg("report_worker: close report generated")

	if w.emailTo == "" {
		return nil
	}
	return w.dispatcher.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: w.emailTo,
		Subject: fmt.Sprintf("Cierre de caja %s", session.SessionNumber),
		Body:    fmt.Sprintf("Se adjunta el informe de cierre de la sesión %s.", session.SessionNumber),
		PDFPath: pdfPath,
	})
}
