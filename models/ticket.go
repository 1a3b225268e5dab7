package models

import "time"

// Ticket is the credential issued exactly once per paid transaction.
type Ticket struct {
	ID             string     `json:"id"`
	WhatsappID     string     `json:"whatsapp_id"`
	EventID        string     `json:"event_id"`
	TicketTypeID   string     `json:"ticket_type_id"`
	TicketCode     string     `json:"ticket_code"`
	TransactionRef string     `json:"transaction_ref"`
	Quantity       int        `json:"quantity"`
	Status         string     `json:"status"` // issued, scanned
	ScannedBy      string     `json:"scanned_by,omitempty"`
	ScannedAt      *time.Time `json:"scanned_at,omitempty"`
}

const (
	TicketStatusIssued  = "issued"
	TicketStatusScanned = "scanned"
)
