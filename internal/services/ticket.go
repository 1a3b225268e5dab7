package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
	"github.com/redis/go-redis/v9"
	qrcode "github.com/skip2/go-qrcode"

	"ticketbot/config"
	"ticketbot/internal/status"
	"ticketbot/models"
	"ticketbot/monitoring"
	"ticketbot/utils"
)

const issueLockTTL = 5 * time.Minute

// TicketService issues tickets for paid transactions and handles gate
// verification.
type TicketService struct {
	app   core.App
	redis *redis.Client
	carts *CartService
	msgr  *Messenger
	cfg   *config.Config
}

func NewTicketService(app core.App, rdb *redis.Client, carts *CartService, msgr *Messenger, cfg *config.Config) *TicketService {
	return &TicketService{app: app, redis: rdb, carts: carts, msgr: msgr, cfg: cfg}
}

// Issue creates exactly one ticket for a paid transaction. Three guards
// keep it single-shot under concurrent callbacks and reconciliation: a
// short redis lock on the reference, an existence check, and a unique
// index on transaction_ref.
func (s *TicketService) Issue(ctx context.Context, tx *models.Transaction) (*models.Ticket, error) {
	if tx.Status != models.TxStatusPaid {
		return nil, fmt.Errorf("ticket.Issue: transaction %v is %v, not paid", tx.PaymentRef, tx.Status)
	}

	lockKey := "ticket:issue:" + tx.PaymentRef
	locked, err := s.redis.SetNX(ctx, lockKey, 1, issueLockTTL).Result()
	if err != nil {
		slog.Warn("issue lock unavailable, relying on db guards", "ref", tx.PaymentRef, "error", err)
	} else if !locked {
		return nil, status.ErrAlreadyIssued
	}

	if existing, err := s.byTransactionRef(tx.PaymentRef); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, status.ErrAlreadyIssued
	}

	col, err := s.app.FindCollectionByNameOrId("tickets")
	if err != nil {
		return nil, fmt.Errorf("ticket.Issue: %w", err)
	}

	code := utils.TicketCode()
	verifyURL := fmt.Sprintf("%s/verify/%s", s.cfg.PublicURL, code)

	rec := core.NewRecord(col)
	rec.Set("whatsapp_id", tx.WhatsappID)
	rec.Set("event", tx.EventID)
	rec.Set("ticket_type", tx.TicketTypeID)
	rec.Set("ticket_code", code)
	rec.Set("transaction_ref", tx.PaymentRef)
	rec.Set("quantity", tx.Quantity)
	rec.Set("status", models.TicketStatusIssued)

	if png, err := qrcode.Encode(verifyURL, qrcode.Medium, 256); err != nil {
		slog.Error("qr encode failed, issuing without image", "code", code, "error", err)
	} else if f, err := filesystem.NewFileFromBytes(png, code+".png"); err != nil {
		slog.Error("qr file wrap failed, issuing without image", "code", code, "error", err)
	} else {
		rec.Set("qr_code", f)
	}

	if err := s.app.Save(rec); err != nil {
		// A unique transaction_ref violation means a concurrent issuer won.
		if existing, lookupErr := s.byTransactionRef(tx.PaymentRef); lookupErr == nil && existing != nil {
			return nil, status.ErrAlreadyIssued
		}
		return nil, fmt.Errorf("ticket.Issue: save: %w", err)
	}
	monitoring.TicketsIssued.Inc()

	if err := s.carts.Clear(tx.WhatsappID); err != nil {
		slog.Error("cart clear after issue failed", "ref", tx.PaymentRef, "error", err)
	}

	ticket := ticketFromRecord(rec)
	s.deliver(ctx, rec, ticket, tx)
	return ticket, nil
}

// deliver pushes the confirmation message with the QR attachment.
func (s *TicketService) deliver(ctx context.Context, rec *core.Record, ticket *models.Ticket, tx *models.Transaction) {
	text := fmt.Sprintf(
		"*PAYMENT CONFIRMED!*\n\nYour ticket is ready.\n\n*Ticket Code:* %s\n*Quantity:* %d\n\nShow the QR code at the gate.",
		ticket.TicketCode, ticket.Quantity)

	var media []string
	if name := rec.GetString("qr_code"); name != "" {
		media = append(media, fmt.Sprintf("%s/api/files/tickets/%s/%s", s.cfg.PublicURL, rec.Id, name))
	}
	if err := s.msgr.Send(ctx, tx.WhatsappID, text, media); err != nil {
		slog.Error("ticket delivery failed", "code", ticket.TicketCode, "error", err)
	}
}

// Resend sends the buyer their most recent ticket again.
func (s *TicketService) Resend(ctx context.Context, senderID string) (*models.Ticket, error) {
	recs, err := s.app.FindRecordsByFilter("tickets",
		"whatsapp_id = {:wid}", "-created", 1, 0, dbx.Params{"wid": senderID})
	if err != nil {
		return nil, fmt.Errorf("ticket.Resend: %v: %w", senderID, err)
	}
	if len(recs) == 0 {
		return nil, status.ErrTicketNotFound
	}

	rec := recs[0]
	ticket := ticketFromRecord(rec)

	text := fmt.Sprintf("Here's your ticket again.\n\n*Ticket Code:* %s\n*Quantity:* %d", ticket.TicketCode, ticket.Quantity)
	var media []string
	if name := rec.GetString("qr_code"); name != "" {
		media = append(media, fmt.Sprintf("%s/api/files/tickets/%s/%s", s.cfg.PublicURL, rec.Id, name))
	}
	if err := s.msgr.Send(ctx, senderID, text, media); err != nil {
		return nil, fmt.Errorf("ticket.Resend: send: %w", err)
	}
	return ticket, nil
}

// VerifyDetail is the gate-facing view of a ticket.
type VerifyDetail struct {
	Ticket     *models.Ticket `json:"ticket"`
	EventName  string         `json:"event_name"`
	EventDate  time.Time      `json:"event_date"`
	TicketType string         `json:"ticket_type"`
	BuyerPhone string         `json:"buyer_phone"`
}

// Verify looks up a ticket by code without changing it.
func (s *TicketService) Verify(code string) (*VerifyDetail, error) {
	rec, err := s.byCode(code)
	if err != nil {
		return nil, err
	}
	return s.detail(rec)
}

// Scan marks an issued ticket as used. A ticket already scanned is
// rejected so a code can only pass the gate once.
func (s *TicketService) Scan(code, scannedBy string) (*VerifyDetail, error) {
	rec, err := s.byCode(code)
	if err != nil {
		monitoring.TicketsScanned.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if rec.GetString("status") == models.TicketStatusScanned {
		monitoring.TicketsScanned.WithLabelValues("duplicate").Inc()
		detail, derr := s.detail(rec)
		if derr != nil {
			return nil, derr
		}
		return detail, status.ErrAlreadyScanned
	}

	rec.Set("status", models.TicketStatusScanned)
	rec.Set("scanned_by", scannedBy)
	rec.Set("scanned_at", time.Now().UTC())
	if err := s.app.Save(rec); err != nil {
		return nil, fmt.Errorf("ticket.Scan: save %v: %w", code, err)
	}
	monitoring.TicketsScanned.WithLabelValues("ok").Inc()
	return s.detail(rec)
}

func (s *TicketService) byCode(code string) (*core.Record, error) {
	rec, err := s.app.FindFirstRecordByFilter("tickets",
		"ticket_code = {:code}", dbx.Params{"code": code})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrTicketNotFound
		}
		return nil, fmt.Errorf("ticket lookup %v: %w", code, err)
	}
	return rec, nil
}

func (s *TicketService) byTransactionRef(ref string) (*core.Record, error) {
	rec, err := s.app.FindFirstRecordByFilter("tickets",
		"transaction_ref = {:ref}", dbx.Params{"ref": ref})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ticket lookup by ref %v: %w", ref, err)
	}
	return rec, nil
}

func (s *TicketService) detail(rec *core.Record) (*VerifyDetail, error) {
	detail := &VerifyDetail{Ticket: ticketFromRecord(rec)}

	if ev, err := s.app.FindRecordById("events", rec.GetString("event")); err == nil {
		detail.EventName = ev.GetString("name")
		detail.EventDate = ev.GetDateTime("date").Time()
	}
	if tt, err := s.app.FindRecordById("ticket_types", rec.GetString("ticket_type")); err == nil {
		detail.TicketType = tt.GetString("name")
	}
	detail.BuyerPhone = models.NormalizePhone(rec.GetString("whatsapp_id"))
	return detail, nil
}
