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
	"github.com/pocketbase/pocketbase/tools/types"

	"ticketbot/internal/status"
	"ticketbot/models"
)

// CartService manages the single locked cart each buyer may hold.
// Reserving a cart decrements ticket stock up front; cancelling or
// expiring the cart puts the stock back. Issued tickets never restock.
type CartService struct {
	app core.App
	ttl time.Duration
}

func NewCartService(app core.App, ttl time.Duration) *CartService {
	return &CartService{app: app, ttl: ttl}
}

// Current returns the sender's live cart, or nil. An expired cart found
// here is released on the spot.
func (s *CartService) Current(senderID string) (*models.Cart, error) {
	rec, err := s.app.FindFirstRecordByFilter("user_carts",
		"whatsapp_id = {:wid}", dbx.Params{"wid": senderID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cart.Current: %v: %w", senderID, err)
	}

	cart := cartFromRecord(rec)
	if cart.Expired(time.Now()) {
		if err := s.release(rec); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return cart, nil
}

// Reserve locks quantity units of a ticket type for the sender. The stock
// decrement is conditional so two buyers can never claim the same units.
// A sender with a live cart must cancel it first.
func (s *CartService) Reserve(ctx context.Context, senderID string, tt *models.TicketType, ev *models.Event, quantity int) (*models.Cart, error) {
	existing, err := s.Current(senderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, status.ErrCartLocked
	}

	if err := s.adjustStock(ctx, tt.ID, -quantity); err != nil {
		return nil, err
	}

	col, err := s.app.FindCollectionByNameOrId("user_carts")
	if err != nil {
		s.restock(ctx, tt.ID, quantity)
		return nil, fmt.Errorf("cart.Reserve: %w", err)
	}

	expires := time.Now().Add(s.ttl)
	rec := core.NewRecord(col)
	rec.Set("whatsapp_id", senderID)
	rec.Set("event", ev.ID)
	rec.Set("ticket_type", tt.ID)
	rec.Set("quantity", quantity)
	rec.Set("locked", true)
	rec.Set("expires_at", expires)
	if err := s.app.Save(rec); err != nil {
		s.restock(ctx, tt.ID, quantity)
		return nil, fmt.Errorf("cart.Reserve: save: %w", err)
	}

	return cartFromRecord(rec), nil
}

// Cancel drops the sender's cart and restocks it. Returns false when
// there was nothing to cancel.
func (s *CartService) Cancel(senderID string) (bool, error) {
	rec, err := s.app.FindFirstRecordByFilter("user_carts",
		"whatsapp_id = {:wid}", dbx.Params{"wid": senderID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("cart.Cancel: %v: %w", senderID, err)
	}
	if err := s.release(rec); err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes the sender's cart without restocking. Used once the
// purchase completes and the units are spoken for.
func (s *CartService) Clear(senderID string) error {
	rec, err := s.app.FindFirstRecordByFilter("user_carts",
		"whatsapp_id = {:wid}", dbx.Params{"wid": senderID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("cart.Clear: %v: %w", senderID, err)
	}
	if err := s.app.Delete(rec); err != nil {
		return fmt.Errorf("cart.Clear: delete: %w", err)
	}
	return nil
}

// SweepExpired releases every cart past its deadline and returns how many
// were swept.
func (s *CartService) SweepExpired(ctx context.Context) (int, error) {
	recs, err := s.app.FindRecordsByFilter("user_carts",
		"expires_at < {:now}", "", 0, 0,
		dbx.Params{"now": types.NowDateTime().String()})
	if err != nil {
		return 0, fmt.Errorf("cart.SweepExpired: %w", err)
	}

	swept := 0
	for _, rec := range recs {
		if err := s.release(rec); err != nil {
			slog.Error("cart sweep: release failed", "cart", rec.Id, "error", err)
			continue
		}
		swept++
	}
	return swept, nil
}

// release deletes a cart record and puts its units back on sale.
func (s *CartService) release(rec *core.Record) error {
	ttID := rec.GetString("ticket_type")
	qty := rec.GetInt("quantity")

	if err := s.app.Delete(rec); err != nil {
		return fmt.Errorf("cart.release: delete %v: %w", rec.Id, err)
	}
	s.restock(context.Background(), ttID, qty)
	return nil
}

// adjustStock applies a guarded delta to available_quantity. Negative
// deltas only succeed while enough stock remains, so the decrement and
// the check are one statement.
func (s *CartService) adjustStock(ctx context.Context, ticketTypeID string, delta int) error {
	q := s.app.DB().NewQuery(`
		UPDATE ticket_types
		SET available_quantity = available_quantity + {:delta}
		WHERE id = {:id} AND available_quantity + {:delta} >= 0
	`).Bind(dbx.Params{"delta": delta, "id": ticketTypeID}).WithContext(ctx)

	res, err := q.Execute()
	if err != nil {
		return fmt.Errorf("cart.adjustStock: %v by %d: %w", ticketTypeID, delta, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cart.adjustStock: rows affected: %w", err)
	}
	if n == 0 {
		return status.ErrTicketTypeSoldOut
	}
	return nil
}

func (s *CartService) restock(ctx context.Context, ticketTypeID string, quantity int) {
	if err := s.adjustStock(ctx, ticketTypeID, quantity); err != nil {
		slog.Error("cart restock failed", "ticketType", ticketTypeID, "quantity", quantity, "error", err)
	}
}
