package services

import (
	"context"
	"testing"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbot/internal/status"
)

const cartTestSender = "whatsapp:+2348012345678"

func TestReserveBlocksSecondCart(t *testing.T) {
	app := newTestApp(t)
	ev, tt := seedCatalog(t, app)
	carts := NewCartService(app, 20*time.Minute)
	ctx := context.Background()

	cart, err := carts.Reserve(ctx, cartTestSender, tt, ev, 2)
	require.NoError(t, err)
	assert.True(t, cart.Locked)
	assert.Equal(t, 2, cart.Quantity)

	_, err = carts.Reserve(ctx, cartTestSender, tt, ev, 1)
	assert.ErrorIs(t, err, status.ErrCartLocked)

	n, err := app.CountRecords("user_carts")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "locked sender must not get a second cart")

	fresh, err := app.FindRecordById("ticket_types", tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, fresh.GetInt("available_quantity"), "stock decremented exactly once")
}

func TestReserveRejectsInsufficientStock(t *testing.T) {
	app := newTestApp(t)
	ev, tt := seedCatalog(t, app)
	carts := NewCartService(app, 20*time.Minute)

	_, err := carts.Reserve(context.Background(), cartTestSender, tt, ev, 11)
	assert.ErrorIs(t, err, status.ErrTicketTypeSoldOut)

	fresh, err := app.FindRecordById("ticket_types", tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, fresh.GetInt("available_quantity"), "failed reserve leaves stock alone")
}

func TestCancelRestocks(t *testing.T) {
	app := newTestApp(t)
	ev, tt := seedCatalog(t, app)
	carts := NewCartService(app, 20*time.Minute)
	ctx := context.Background()

	_, err := carts.Reserve(ctx, cartTestSender, tt, ev, 3)
	require.NoError(t, err)

	cancelled, err := carts.Cancel(cartTestSender)
	require.NoError(t, err)
	assert.True(t, cancelled)

	fresh, err := app.FindRecordById("ticket_types", tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, fresh.GetInt("available_quantity"))

	cancelled, err = carts.Cancel(cartTestSender)
	require.NoError(t, err)
	assert.False(t, cancelled, "second cancel is a no-op")
}

func TestSweepExpiredRestocksAndUnblocks(t *testing.T) {
	app := newTestApp(t)
	ev, tt := seedCatalog(t, app)
	carts := NewCartService(app, 20*time.Minute)
	ctx := context.Background()

	_, err := carts.Reserve(ctx, cartTestSender, tt, ev, 3)
	require.NoError(t, err)

	rec, err := app.FindFirstRecordByFilter("user_carts", "whatsapp_id = {:wid}",
		dbx.Params{"wid": cartTestSender})
	require.NoError(t, err)
	rec.Set("expires_at", time.Now().Add(-time.Minute))
	require.NoError(t, app.Save(rec))

	swept, err := carts.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	fresh, err := app.FindRecordById("ticket_types", tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, fresh.GetInt("available_quantity"), "expired units back on sale")

	current, err := carts.Current(cartTestSender)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = carts.Reserve(ctx, cartTestSender, tt, ev, 1)
	assert.NoError(t, err, "sender is free to reserve again after the sweep")
}
