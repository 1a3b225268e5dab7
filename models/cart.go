package models

import "time"

// Cart is a time-boxed reservation of ticket inventory, pending payment.
// At most one locked cart per sender.
type Cart struct {
	ID           string    `json:"id"`
	WhatsappID   string    `json:"whatsapp_id"`
	EventID      string    `json:"event_id"`
	TicketTypeID string    `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
	Locked       bool      `json:"locked"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}
