package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketbot/internal/gateway"
	"ticketbot/internal/services"
	"ticketbot/internal/status"
	"ticketbot/models"
	"ticketbot/monitoring"
)

const maxCallbackBody = 1 << 20

// SignatureVerifier checks a webhook delivery's authenticity from its
// raw body and signature header.
type SignatureVerifier interface {
	VerifySignature(body []byte, signatureHeader string) bool
}

// CallbackHandler processes payment webhooks from both gateways. The
// payload's own success claim is never trusted: after shape and
// signature checks the payment is re-verified against the gateway API
// before anything is marked paid.
type CallbackHandler struct {
	payments *services.PaymentService
	tickets  *services.TicketService
	registry *gateway.Registry
	verifier SignatureVerifier
}

func NewCallbackHandler(payments *services.PaymentService, tickets *services.TicketService, registry *gateway.Registry, verifier SignatureVerifier) *CallbackHandler {
	return &CallbackHandler{
		payments: payments,
		tickets:  tickets,
		registry: registry,
		verifier: verifier,
	}
}

func (h *CallbackHandler) Handle(e *core.RequestEvent) error {
	raw, err := io.ReadAll(io.LimitReader(e.Request.Body, maxCallbackBody))
	if err != nil {
		return apis.NewBadRequestError("unreadable body", nil)
	}

	cb, err := gateway.ParseCallback(raw)
	if err != nil {
		monitoring.CallbacksReceived.WithLabelValues("unknown", "bad_payload").Inc()
		return apis.NewBadRequestError("unrecognized payload", nil)
	}
	provider := string(cb.Provider)

	if cb.Provider == gateway.ProviderPaystack {
		sig := e.Request.Header.Get("X-Paystack-Signature")
		if !h.verifier.VerifySignature(raw, sig) {
			monitoring.CallbacksReceived.WithLabelValues(provider, "bad_signature").Inc()
			return apis.NewBadRequestError("rejected", nil)
		}
	}

	if _, err := h.payments.FindByRef(cb.Reference); err != nil {
		if errors.Is(err, status.ErrTxNotFound) {
			monitoring.CallbacksReceived.WithLabelValues(provider, "unknown_tx").Inc()
			return apis.NewNotFoundError("transaction not found", nil)
		}
		return err
	}

	gw, err := h.registry.Get(cb.Provider)
	if err != nil {
		return err
	}
	verified, err := gw.VerifyPayment(e.Request.Context(), cb.VerifyKey)
	if err != nil {
		monitoring.CallbacksReceived.WithLabelValues(provider, "verify_failed").Inc()
		return apis.NewApiError(http.StatusInternalServerError, "verification failed", nil)
	}

	if !verified.Paid {
		// Leave it pending: reconciliation settles it if it succeeds later.
		monitoring.CallbacksReceived.WithLabelValues(provider, "not_paid").Inc()
		return e.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	tx, changed, err := h.payments.UpdateStatus(e.Request.Context(), cb.Reference, models.TxStatusPaid)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "status update failed", nil)
	}

	if changed {
		if _, err := h.tickets.Issue(e.Request.Context(), tx); err != nil && !errors.Is(err, status.ErrAlreadyIssued) {
			slog.Error("ticket issue after callback failed", "ref", cb.Reference, "error", err)
			return apis.NewApiError(http.StatusInternalServerError, "issuance failed", nil)
		}
	}

	monitoring.CallbacksReceived.WithLabelValues(provider, "ok").Inc()
	return e.JSON(http.StatusOK, map[string]string{"status": "success"})
}
