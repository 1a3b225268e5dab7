package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"ticketbot/internal/gateway"
	"ticketbot/internal/status"
	"ticketbot/models"
	"ticketbot/monitoring"
)

// Reconciler is the safety net for missed callbacks: it periodically
// re-verifies recent pending transactions directly with their gateway
// and settles the ones that actually went through.
type Reconciler struct {
	app      core.App
	payments *PaymentService
	tickets  *TicketService
	carts    *CartService
	registry *gateway.Registry
	interval time.Duration
	window   time.Duration
}

func NewReconciler(app core.App, payments *PaymentService, tickets *TicketService, carts *CartService, registry *gateway.Registry, interval, window time.Duration) *Reconciler {
	return &Reconciler{
		app:      app,
		payments: payments,
		tickets:  tickets,
		carts:    carts,
		registry: registry,
		interval: interval,
		window:   window,
	}
}

// Run loops until the context is cancelled. One pass runs immediately on
// start so a restart doesn't wait a full interval to catch up.
func (r *Reconciler) Run(ctx context.Context) {
	slog.Info("reconciler started", "interval", r.interval, "window", r.window)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if res, err := r.RunOnce(ctx); err != nil {
			slog.Error("reconciliation pass failed", "error", err)
		} else if res.Reconciled > 0 || res.CartsSwept > 0 {
			slog.Info("reconciliation pass",
				"checked", res.Checked, "reconciled", res.Reconciled, "cartsSwept", res.CartsSwept)
		}

		select {
		case <-ctx.Done():
			slog.Info("reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunResult summarizes one reconciliation pass.
type RunResult struct {
	Checked    int `json:"checked"`
	Reconciled int `json:"reconciled"`
	Failed     int `json:"failed"`
	CartsSwept int `json:"carts_swept"`
}

// RunOnce verifies every pending transaction younger than the window.
// Older ones are left alone; by then the money either moved and support
// handles it, or it never will. Expired carts are swept in the same pass.
func (r *Reconciler) RunOnce(ctx context.Context) (*RunResult, error) {
	cutoff, err := types.ParseDateTime(time.Now().UTC().Add(-r.window))
	if err != nil {
		return nil, fmt.Errorf("reconciler.RunOnce: cutoff: %w", err)
	}

	recs, err := r.app.FindRecordsByFilter("transactions",
		"status = {:status} && created >= {:cutoff}", "-created", 0, 0,
		dbx.Params{"status": models.TxStatusPending, "cutoff": cutoff.String()})
	if err != nil {
		return nil, fmt.Errorf("reconciler.RunOnce: list pending: %w", err)
	}

	res := &RunResult{Checked: len(recs)}
	for _, rec := range recs {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		tx := transactionFromRecord(rec)
		settled, err := r.settle(ctx, tx)
		if err != nil {
			slog.Warn("reconcile transaction failed", "ref", tx.PaymentRef, "error", err)
			res.Failed++
			continue
		}
		if settled {
			res.Reconciled++
			monitoring.ReconciledTransactions.Inc()
		}
	}

	swept, err := r.carts.SweepExpired(ctx)
	if err != nil {
		slog.Error("cart sweep failed", "error", err)
	} else {
		res.CartsSwept = swept
		monitoring.CartsSwept.Add(float64(swept))
	}

	monitoring.ReconcileRuns.Inc()
	return res, nil
}

// settle re-verifies one pending transaction with its gateway and issues
// the ticket when the payment in fact succeeded.
func (r *Reconciler) settle(ctx context.Context, tx *models.Transaction) (bool, error) {
	gw, err := r.registry.Get(gateway.Provider(tx.PaymentGateway))
	if err != nil {
		return false, err
	}

	verified, err := gw.VerifyPayment(ctx, tx.PaymentRef)
	if err != nil {
		return false, fmt.Errorf("verify %v: %w", tx.PaymentRef, err)
	}
	if !verified.Paid {
		return false, nil
	}

	updated, changed, err := r.payments.UpdateStatus(ctx, tx.PaymentRef, models.TxStatusPaid)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	if _, err := r.tickets.Issue(ctx, updated); err != nil && !errors.Is(err, status.ErrAlreadyIssued) {
		return true, fmt.Errorf("issue for %v: %w", tx.PaymentRef, err)
	}
	return true, nil
}
