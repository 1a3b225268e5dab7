package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketbot/config"
	"ticketbot/internal/services"
	"ticketbot/utils"
)

// AdminHandler serves the shared-secret operational endpoints.
type AdminHandler struct {
	app        core.App
	reconciler *services.Reconciler
	cfg        *config.Config
}

func NewAdminHandler(app core.App, reconciler *services.Reconciler, cfg *config.Config) *AdminHandler {
	return &AdminHandler{app: app, reconciler: reconciler, cfg: cfg}
}

// authorize checks the shared secret passed as a query parameter. A
// bcrypt hash in config takes precedence over the plain secret.
func (h *AdminHandler) authorize(e *core.RequestEvent) error {
	secret := e.Request.URL.Query().Get("secret")
	if secret == "" {
		return apis.NewForbiddenError("forbidden", nil)
	}

	if h.cfg.AdminSecretHash != "" {
		if !utils.CompareHash(h.cfg.AdminSecretHash, secret) {
			return apis.NewForbiddenError("forbidden", nil)
		}
		return nil
	}

	if h.cfg.AdminSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.AdminSecret)) != 1 {
		return apis.NewForbiddenError("forbidden", nil)
	}
	return nil
}

// ReconcilePending runs one reconciliation pass on demand and reports
// the counts.
func (h *AdminHandler) ReconcilePending(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}

	res, err := h.reconciler.RunOnce(e.Request.Context())
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "reconciliation failed", nil)
	}
	return e.JSON(http.StatusOK, res)
}

// Stats reports row counts across the main collections.
func (h *AdminHandler) Stats(e *core.RequestEvent) error {
	if err := h.authorize(e); err != nil {
		return err
	}

	stats := map[string]int64{}
	for _, col := range []string{"bot_users", "organizers", "events", "ticket_types", "transactions", "tickets", "user_carts", "user_sessions"} {
		n, err := h.app.CountRecords(col)
		if err != nil {
			return apis.NewApiError(http.StatusInternalServerError, "stats failed", nil)
		}
		stats[col] = n
	}
	return e.JSON(http.StatusOK, stats)
}
