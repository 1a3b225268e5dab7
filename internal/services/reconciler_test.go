package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbot/internal/gateway"
)

func TestRunOnceSkipsStalePending(t *testing.T) {
	app := newTestApp(t)
	ev, tt := seedCatalog(t, app)
	seedPendingTransaction(t, app, ev, tt, "PSK-fresh")
	seedPendingTransaction(t, app, ev, tt, "PSK-stale")

	// Age the second transaction past the window.
	old, err := types.ParseDateTime(time.Now().UTC().Add(-25 * time.Hour))
	require.NoError(t, err)
	_, err = app.DB().NewQuery(
		"UPDATE transactions SET created = {:ts} WHERE payment_ref = {:ref}",
	).Bind(dbx.Params{"ts": old.String(), "ref": "PSK-stale"}).Execute()
	require.NoError(t, err)

	rdb, _ := redismock.NewClientMock()
	registry := gateway.NewRegistry() // nothing registered, verification must fail
	payments := NewPaymentService(app, rdb, registry, testConfig())
	carts := NewCartService(app, 20*time.Minute)
	tickets := NewTicketService(app, rdb, carts, NewMessenger(nil), testConfig())
	rec := NewReconciler(app, payments, tickets, carts, registry, 10*time.Minute, 24*time.Hour)

	res, err := rec.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked, "only the in-window transaction is picked up")
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 0, res.Reconciled)
}

func TestRunOnceSweepsExpiredCarts(t *testing.T) {
	app := newTestApp(t)
	ev, tt := seedCatalog(t, app)
	carts := NewCartService(app, 20*time.Minute)
	ctx := context.Background()

	_, err := carts.Reserve(ctx, cartTestSender, tt, ev, 2)
	require.NoError(t, err)

	cartRec, err := app.FindFirstRecordByFilter("user_carts", "whatsapp_id = {:wid}",
		dbx.Params{"wid": cartTestSender})
	require.NoError(t, err)
	cartRec.Set("expires_at", time.Now().Add(-time.Minute))
	require.NoError(t, app.Save(cartRec))

	rdb, _ := redismock.NewClientMock()
	registry := gateway.NewRegistry()
	payments := NewPaymentService(app, rdb, registry, testConfig())
	tickets := NewTicketService(app, rdb, carts, NewMessenger(nil), testConfig())
	rec := NewReconciler(app, payments, tickets, carts, registry, 10*time.Minute, 24*time.Hour)

	res, err := rec.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CartsSwept)

	fresh, err := app.FindRecordById("ticket_types", tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, fresh.GetInt("available_quantity"))
}
