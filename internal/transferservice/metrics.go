package transferservice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transfer outcomes reported by transfersTotal.
const (
	outcomeCompleted     = "completed"
	outcomeRejected      = "rejected"
	outcomeConflict      = "conflict"
	outcomeCreditPending = "credit_pending"
	outcomeLedgerPending = "ledger_pending"
	outcomeFailed        = "failed"
)

var (
	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transfers_total",
		Help: "Transfers processed by the engine, labeled by outcome",
	}, []string{"outcome"})

	creditRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_credit_retries_total",
		Help: "Destination credit attempts that had to be retried",
	})

	appendRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_append_retries_total",
		Help: "Ledger appends retried after a transfer id collision",
	})
)
