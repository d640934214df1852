package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinicash_cash_sessions_closed_total",
		Help: "Number of cash sessions closed successfully.",
	})
	debtsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinicash_debt_ledgers_created_total",
		Help: "Number of debt ledger entries created during session closes.",
	})
)
