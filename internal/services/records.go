package services

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"ticketbot/models"
)

func userFromRecord(r *core.Record) *models.User {
	return &models.User{
		ID:         r.Id,
		WhatsappID: r.GetString("whatsapp_id"),
		PhoneClean: r.GetString("phone_clean"),
		Name:       r.GetString("name"),
		UserType:   r.GetString("user_type"),
	}
}

func organizerFromRecord(r *core.Record) *models.Organizer {
	return &models.Organizer{
		ID:                r.Id,
		Name:              r.GetString("name"),
		Code:              r.GetString("code"),
		Refundable:        r.GetBool("refundable"),
		ContactForRefunds: r.GetString("contact_for_refunds"),
		WelcomeMessage:    r.GetString("welcome_message"),
		LogoURL:           r.GetString("logo_url"),
	}
}

func eventFromRecord(r *core.Record) *models.Event {
	return &models.Event{
		ID:              r.Id,
		OrganizerID:     r.GetString("organizer"),
		Name:            r.GetString("name"),
		Date:            r.GetDateTime("date").Time(),
		Location:        r.GetString("location"),
		Status:          r.GetString("status"),
		TicketSalesOpen: r.GetBool("ticket_sales_open"),
	}
}

func ticketTypeFromRecord(r *core.Record) *models.TicketType {
	return &models.TicketType{
		ID:                r.Id,
		EventID:           r.GetString("event"),
		Name:              r.GetString("name"),
		Price:             decimal.NewFromFloat(r.GetFloat("price")),
		TotalQuantity:     r.GetInt("total_quantity"),
		AvailableQuantity: r.GetInt("available_quantity"),
	}
}

func sessionFromRecord(r *core.Record) *models.Session {
	data := map[string]string{}
	if raw := r.GetString("data"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &data)
	}
	return &models.Session{
		ID:           r.Id,
		WhatsappID:   r.GetString("whatsapp_id"),
		Step:         models.Step(r.GetString("step")),
		PreviousStep: models.Step(r.GetString("previous_step")),
		Data:         data,
		ExpiresAt:    r.GetDateTime("expires_at").Time(),
	}
}

func cartFromRecord(r *core.Record) *models.Cart {
	return &models.Cart{
		ID:           r.Id,
		WhatsappID:   r.GetString("whatsapp_id"),
		EventID:      r.GetString("event"),
		TicketTypeID: r.GetString("ticket_type"),
		Quantity:     r.GetInt("quantity"),
		Locked:       r.GetBool("locked"),
		ExpiresAt:    r.GetDateTime("expires_at").Time(),
	}
}

func transactionFromRecord(r *core.Record) *models.Transaction {
	return &models.Transaction{
		ID:             r.Id,
		WhatsappID:     r.GetString("whatsapp_id"),
		OrganizerID:    r.GetString("organizer"),
		EventID:        r.GetString("event"),
		TicketTypeID:   r.GetString("ticket_type"),
		Quantity:       r.GetInt("quantity"),
		Amount:         decimal.NewFromFloat(r.GetFloat("amount")),
		PaymentGateway: r.GetString("payment_gateway"),
		PaymentRef:     r.GetString("payment_ref"),
		Status:         r.GetString("status"),
		CreatedAt:      r.GetDateTime("created").Time(),
	}
}

func ticketFromRecord(r *core.Record) *models.Ticket {
	t := &models.Ticket{
		ID:             r.Id,
		WhatsappID:     r.GetString("whatsapp_id"),
		EventID:        r.GetString("event"),
		TicketTypeID:   r.GetString("ticket_type"),
		TicketCode:     r.GetString("ticket_code"),
		TransactionRef: r.GetString("transaction_ref"),
		Quantity:       r.GetInt("quantity"),
		Status:         r.GetString("status"),
		ScannedBy:      r.GetString("scanned_by"),
	}
	if d := r.GetDateTime("scanned_at"); !d.IsZero() {
		ts := d.Time()
		t.ScannedAt = &ts
	}
	return t
}
