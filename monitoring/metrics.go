package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketbot_messages_received_total",
		Help: "Inbound webhook messages processed.",
	})

	PaymentsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketbot_payments_initiated_total",
		Help: "Payment link attempts by gateway and outcome.",
	}, []string{"gateway", "outcome"})

	CallbacksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketbot_payment_callbacks_total",
		Help: "Gateway callbacks by provider and outcome.",
	}, []string{"gateway", "outcome"})

	TicketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketbot_tickets_issued_total",
		Help: "Tickets issued after confirmed payment.",
	})

	TicketsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketbot_tickets_scanned_total",
		Help: "Gate scans by outcome.",
	}, []string{"outcome"})

	ReconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketbot_reconcile_runs_total",
		Help: "Completed reconciliation passes.",
	})

	ReconciledTransactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketbot_reconciled_transactions_total",
		Help: "Pending transactions settled by reconciliation.",
	})

	CartsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketbot_carts_swept_total",
		Help: "Expired carts released back to stock.",
	})
)
