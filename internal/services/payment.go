package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ticketbot/config"
	"ticketbot/internal/gateway"
	"ticketbot/internal/status"
	"ticketbot/models"
	"ticketbot/monitoring"
	"ticketbot/utils"
)

const (
	healthKeyPrefix = "health:gateway:"
	healthOK        = "ok"
	healthDown      = "down"

	statusUpdateAttempts = 3
	statusUpdateBackoff  = 500 * time.Millisecond
)

// menuProviders fixes the numbering buyers see: option 1 is Flutterwave,
// option 2 is Paystack, regardless of which are currently healthy.
var menuProviders = []gateway.Provider{gateway.ProviderFlutterwave, gateway.ProviderPaystack}

// PaymentService initiates payment links and owns transaction status
// transitions.
type PaymentService struct {
	app      core.App
	redis    *redis.Client
	registry *gateway.Registry
	breakers map[gateway.Provider]*utils.CircuitBreaker
	cfg      *config.Config
}

func NewPaymentService(app core.App, rdb *redis.Client, registry *gateway.Registry, cfg *config.Config) *PaymentService {
	breakers := map[gateway.Provider]*utils.CircuitBreaker{}
	for _, p := range registry.Providers() {
		breakers[p] = utils.NewCircuitBreaker(string(p))
	}
	return &PaymentService{
		app:      app,
		redis:    rdb,
		registry: registry,
		breakers: breakers,
		cfg:      cfg,
	}
}

// GatewayHealthy answers from a short-lived cache so a burst of buyers
// doesn't hammer the providers' health endpoints.
func (s *PaymentService) GatewayHealthy(ctx context.Context, provider gateway.Provider) bool {
	key := healthKeyPrefix + string(provider)

	if val, err := s.redis.Get(ctx, key).Result(); err == nil {
		return val == healthOK
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("gateway health cache read failed", "provider", provider, "error", err)
	}

	gw, err := s.registry.Get(provider)
	if err != nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.HealthTimeout)
	defer cancel()

	val := healthOK
	if err := gw.HealthCheck(probeCtx); err != nil {
		slog.Warn("gateway health probe failed", "provider", provider, "error", err)
		val = healthDown
	}
	if err := s.redis.Set(ctx, key, val, s.cfg.HealthCacheTTL).Err(); err != nil {
		slog.Warn("gateway health cache write failed", "provider", provider, "error", err)
	}
	return val == healthOK
}

// InvalidateHealthCache forces fresh probes on the next health question,
// called right before showing the buyer the gateway menu.
func (s *PaymentService) InvalidateHealthCache(ctx context.Context) {
	keys := make([]string, 0, len(menuProviders))
	for _, p := range menuProviders {
		keys = append(keys, healthKeyPrefix+string(p))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("gateway health cache invalidation failed", "error", err)
	}
}

// HealthyProviders returns the menu-ordered providers that currently
// pass their health checks.
func (s *PaymentService) HealthyProviders(ctx context.Context) []gateway.Provider {
	var healthy []gateway.Provider
	for _, p := range menuProviders {
		if s.GatewayHealthy(ctx, p) {
			healthy = append(healthy, p)
		}
	}
	return healthy
}

// MenuProvider maps a buyer's "1"/"2" selection to a provider.
func MenuProvider(choice string) (gateway.Provider, bool) {
	switch strings.TrimSpace(choice) {
	case "1":
		return menuProviders[0], true
	case "2":
		return menuProviders[1], true
	}
	return "", false
}

// InitiateResult carries the payment link plus whether a fallback gateway
// was used, so the buyer can be told.
type InitiateResult struct {
	Link      *gateway.PaymentLink
	Provider  gateway.Provider
	Fallback  bool
	Amount    decimal.Decimal
	Reference string
}

// Initiate creates a payment link for the cart on the preferred gateway,
// silently retrying on the other gateway when the first refuses. The
// pending transaction is recorded before the link is handed out.
func (s *PaymentService) Initiate(ctx context.Context, user *models.User, cart *models.Cart, tt *models.TicketType, ev *models.Event, preferred gateway.Provider) (*InitiateResult, error) {
	amount := tt.Price.Mul(decimal.NewFromInt(int64(cart.Quantity)))

	link, provider, err := s.createLink(ctx, user, preferred, amount)
	fallback := false
	if err != nil {
		slog.Warn("payment link failed, trying fallback", "provider", preferred, "error", err)
		monitoring.PaymentsInitiated.WithLabelValues(string(preferred), "failed").Inc()

		alt, altErr := s.registry.Fallback(preferred)
		if altErr != nil {
			return nil, status.ErrGatewaysDown
		}
		link, provider, err = s.createLink(ctx, user, alt.Provider(), amount)
		if err != nil {
			monitoring.PaymentsInitiated.WithLabelValues(string(alt.Provider()), "failed").Inc()
			return nil, status.ErrGatewaysDown
		}
		fallback = true
	}
	monitoring.PaymentsInitiated.WithLabelValues(string(provider), "ok").Inc()

	col, err := s.app.FindCollectionByNameOrId("transactions")
	if err != nil {
		return nil, fmt.Errorf("payment.Initiate: %w", err)
	}
	rec := core.NewRecord(col)
	rec.Set("whatsapp_id", user.WhatsappID)
	rec.Set("organizer", ev.OrganizerID)
	rec.Set("event", ev.ID)
	rec.Set("ticket_type", tt.ID)
	rec.Set("quantity", cart.Quantity)
	rec.Set("amount", amount.InexactFloat64())
	rec.Set("payment_gateway", string(provider))
	rec.Set("payment_ref", link.Reference)
	rec.Set("status", models.TxStatusPending)
	if err := s.app.Save(rec); err != nil {
		return nil, fmt.Errorf("payment.Initiate: save transaction: %w", err)
	}

	return &InitiateResult{
		Link:      link,
		Provider:  provider,
		Fallback:  fallback,
		Amount:    amount,
		Reference: link.Reference,
	}, nil
}

func (s *PaymentService) createLink(ctx context.Context, user *models.User, provider gateway.Provider, amount decimal.Decimal) (*gateway.PaymentLink, gateway.Provider, error) {
	gw, err := s.registry.Get(provider)
	if err != nil {
		return nil, provider, err
	}

	req := &gateway.PaymentLinkRequest{
		Amount:      amount,
		Currency:    "NGN",
		Phone:       user.PhoneClean,
		Email:       user.PhoneClean + "@ticketbot.local",
		Reference:   utils.PaymentRef(gw.RefPrefix()),
		RedirectURL: s.cfg.PublicURL + "/payment-complete",
	}

	breaker := s.breakers[provider]
	res, err := breaker.Execute(ctx, func() (any, error) {
		return gw.CreatePaymentLink(ctx, req)
	})
	if err != nil {
		return nil, provider, fmt.Errorf("createLink: %v: %w", provider, err)
	}
	return res.(*gateway.PaymentLink), provider, nil
}

// FindByRef loads a transaction by payment reference.
func (s *PaymentService) FindByRef(ref string) (*models.Transaction, error) {
	rec, err := s.app.FindFirstRecordByFilter("transactions",
		"payment_ref = {:ref}", dbx.Params{"ref": ref})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrTxNotFound
		}
		return nil, fmt.Errorf("payment.FindByRef: %v: %w", ref, err)
	}
	return transactionFromRecord(rec), nil
}

// UpdateStatus moves a transaction to newStatus. Terminal statuses stick:
// updating an already paid or failed transaction is a no-op, which makes
// duplicate callbacks and reconciliation overlap harmless. Transient save
// errors are retried with backoff, then the update falls through to a
// guarded SQL statement against the pending row.
func (s *PaymentService) UpdateStatus(ctx context.Context, ref, newStatus string) (*models.Transaction, bool, error) {
	rec, err := s.app.FindFirstRecordByFilter("transactions",
		"payment_ref = {:ref}", dbx.Params{"ref": ref})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, status.ErrTxNotFound
		}
		return nil, false, fmt.Errorf("payment.UpdateStatus: %v: %w", ref, err)
	}

	tx := transactionFromRecord(rec)
	if models.TxStatusTerminal(tx.Status) {
		return tx, false, nil
	}

	rec.Set("status", newStatus)
	var saveErr error
	for attempt := 1; attempt <= statusUpdateAttempts; attempt++ {
		saveErr = s.app.Save(rec)
		if saveErr == nil {
			tx.Status = newStatus
			return tx, true, nil
		}
		if !isTransient(saveErr) {
			break
		}
		slog.Warn("transaction status save retry",
			"ref", ref, "attempt", attempt, "error", saveErr)
		select {
		case <-time.After(statusUpdateBackoff << (attempt - 1)):
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}

	// Last resort: a raw conditional update that only ever touches the
	// still-pending row, so it can never clobber a terminal status.
	res, err := s.app.DB().NewQuery(
		"UPDATE transactions SET status = {:status} WHERE payment_ref = {:ref} AND status = {:pending}",
	).Bind(dbx.Params{
		"status":  newStatus,
		"ref":     ref,
		"pending": models.TxStatusPending,
	}).WithContext(ctx).Execute()
	if err != nil {
		return nil, false, fmt.Errorf("payment.UpdateStatus: fallback for %v: %w (save: %v)", ref, err, saveErr)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Lost the race: someone else already finalized it.
		return s.reload(ref)
	}
	tx.Status = newStatus
	return tx, true, nil
}

func (s *PaymentService) reload(ref string) (*models.Transaction, bool, error) {
	tx, err := s.FindByRef(ref)
	if err != nil {
		return nil, false, err
	}
	return tx, false, nil
}

// isTransient reports whether a save failure looks like a hiccup worth
// retrying rather than a hard validation or constraint error.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"database is locked", "connection reset", "broken pipe", "i/o timeout", "temporarily unavailable"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
