package services

import (
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/stretchr/testify/require"

	_ "ticketbot/migrations"
	"ticketbot/models"
)

// newTestApp boots a throwaway PocketBase instance with the app
// migrations applied, so service tests run against the real collections
// and indexes.
func newTestApp(t *testing.T) *tests.TestApp {
	t.Helper()

	app, err := tests.NewTestApp()
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)

	require.NoError(t, app.RunAppMigrations())
	return app
}

// seedCatalog inserts one organizer with a sales-open future event and a
// VIP ticket type with 10 units in stock.
func seedCatalog(t *testing.T, app core.App) (*models.Event, *models.TicketType) {
	t.Helper()

	orgCol, err := app.FindCollectionByNameOrId("organizers")
	require.NoError(t, err)
	org := core.NewRecord(orgCol)
	org.Set("name", "Jazz Collective")
	org.Set("code", "JAZZ-FEST25")
	require.NoError(t, app.Save(org))

	evCol, err := app.FindCollectionByNameOrId("events")
	require.NoError(t, err)
	ev := core.NewRecord(evCol)
	ev.Set("organizer", org.Id)
	ev.Set("name", "Lagos Jazz Fest")
	ev.Set("date", time.Now().AddDate(0, 1, 0))
	ev.Set("location", "Eko Hotel, Lagos")
	ev.Set("status", models.EventStatusActive)
	ev.Set("ticket_sales_open", true)
	require.NoError(t, app.Save(ev))

	ttCol, err := app.FindCollectionByNameOrId("ticket_types")
	require.NoError(t, err)
	tt := core.NewRecord(ttCol)
	tt.Set("event", ev.Id)
	tt.Set("name", "VIP")
	tt.Set("price", 5000)
	tt.Set("total_quantity", 10)
	tt.Set("available_quantity", 10)
	require.NoError(t, app.Save(tt))

	return eventFromRecord(ev), ticketTypeFromRecord(tt)
}

// seedPendingTransaction inserts a pending transaction for the catalog
// rows under the given payment reference.
func seedPendingTransaction(t *testing.T, app core.App, ev *models.Event, tt *models.TicketType, ref string) *models.Transaction {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("transactions")
	require.NoError(t, err)
	rec := core.NewRecord(col)
	rec.Set("whatsapp_id", "whatsapp:+2348012345678")
	rec.Set("organizer", ev.OrganizerID)
	rec.Set("event", ev.ID)
	rec.Set("ticket_type", tt.ID)
	rec.Set("quantity", 2)
	rec.Set("amount", 10000)
	rec.Set("payment_gateway", "paystack")
	rec.Set("payment_ref", ref)
	rec.Set("status", models.TxStatusPending)
	require.NoError(t, app.Save(rec))
	return transactionFromRecord(rec)
}
