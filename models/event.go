package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID              string    `json:"id"`
	OrganizerID     string    `json:"organizer_id"`
	Name            string    `json:"name"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location"`
	Status          string    `json:"status"` // active, cancelled
	TicketSalesOpen bool      `json:"ticket_sales_open"`
}

const (
	EventStatusActive    = "active"
	EventStatusCancelled = "cancelled"
)

type TicketType struct {
	ID                string          `json:"id"`
	EventID           string          `json:"event_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	TotalQuantity     int             `json:"total_quantity"`
	AvailableQuantity int             `json:"available_quantity"`
}
