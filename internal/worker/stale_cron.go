package worker

// stale_cron.go
// Hourly sweep that flags cash sessions left OPEN beyond the configured age.
// The sweep never closes anything on its own — closing requires a human
// declaration of counted cash — it only surfaces forgotten drawers.

import (
	"context"
	"time"

	"clinicash/internal/repository"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var staleOpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "clinicash_stale_open_sessions",
	Help: "Cash sessions currently OPEN beyond the configured age.",
})

// StartStaleSweep schedules the sweep and returns the scheduler so the caller
// can stop it on shutdown.
func StartStaleSweep(ctx context.Context, sessions repository.CashSessionRepository, maxAgeHours int) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(1).Hour().Do(func() {
		sweepStaleSessions(ctx, sessions, maxAgeHours)
	})
	if err != nil {
		log.Error().Err(err).Msg("stale_cron: failed to schedule sweep")
		return s
	}
	s.StartAsync()
	log.Info().Int("max_age_hours", maxAgeHours).Msg("stale_cron: sweep scheduled")
	return s
}

func sweepStaleSessions(ctx context.Context, sessions repository.CashSessionRepository, maxAgeHours int) {
	cutoff := time.Now().Add(-time.Duration(maxAgeHours) * time.Hour)
	stale, err := sessions.ListStaleOpen(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("stale_cron: failed to list stale sessions")
		return
	}

	staleOpenSessions.Set(float64(len(stale)))
	for i := range stale {
		cs := &stale[i]
		log.Warn().
			Str("session_id", cs.ID.String()).
			Str("session_number", cs.SessionNumber).
			Str("clinic_id", cs.ClinicID.String()).
			Time("opening_time", cs.OpeningTime).
			Msg("stale_cron: session left open beyond threshold")
	}
}
