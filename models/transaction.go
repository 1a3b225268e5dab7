package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the audit record of a payment attempt. It is never
// deleted; status moves pending -> paid|failed and paid is terminal.
type Transaction struct {
	ID             string          `json:"id"`
	WhatsappID     string          `json:"whatsapp_id"`
	OrganizerID    string          `json:"organizer_id"`
	EventID        string          `json:"event_id"`
	TicketTypeID   string          `json:"ticket_type_id"`
	Quantity       int             `json:"quantity"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentGateway string          `json:"payment_gateway"` // paystack, flutterwave
	PaymentRef     string          `json:"payment_ref"`
	Status         string          `json:"status"` // pending, paid, failed
	CreatedAt      time.Time       `json:"created_at"`
}

const (
	TxStatusPending = "pending"
	TxStatusPaid    = "paid"
	TxStatusFailed  = "failed"
)

// Terminal reports whether the status may no longer change.
func TxStatusTerminal(status string) bool {
	return status == TxStatusPaid || status == TxStatusFailed
}
