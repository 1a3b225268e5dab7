package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketbot/internal/services"
	"ticketbot/internal/status"
)

// GateHandler exposes ticket verification and scanning for entry staff.
type GateHandler struct {
	tickets *services.TicketService
}

func NewGateHandler(tickets *services.TicketService) *GateHandler {
	return &GateHandler{tickets: tickets}
}

func (h *GateHandler) Verify(e *core.RequestEvent) error {
	code := e.Request.PathValue("code")

	detail, err := h.tickets.Verify(code)
	if err != nil {
		if errors.Is(err, status.ErrTicketNotFound) {
			return apis.NewNotFoundError("ticket not found", nil)
		}
		return err
	}
	return e.JSON(http.StatusOK, detail)
}

func (h *GateHandler) Scan(e *core.RequestEvent) error {
	code := e.Request.PathValue("code")

	payload := struct {
		StaffName string `json:"staff_name"`
	}{}
	if err := e.BindBody(&payload); err != nil {
		return apis.NewBadRequestError("invalid payload", err)
	}
	if payload.StaffName == "" {
		return apis.NewBadRequestError("staff_name is required", nil)
	}

	detail, err := h.tickets.Scan(code, payload.StaffName)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrTicketNotFound):
			return apis.NewNotFoundError("ticket not found", nil)
		case errors.Is(err, status.ErrAlreadyScanned):
			return apis.NewApiError(http.StatusConflict, "ticket already scanned", map[string]any{
				"scanned_by": detail.Ticket.ScannedBy,
				"scanned_at": detail.Ticket.ScannedAt,
			})
		}
		return err
	}
	return e.JSON(http.StatusOK, detail)
}
