package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Base collections for the conversational ticketing flow. Uniqueness
// that the services rely on (one session and one cart per sender, one
// ticket per transaction) is enforced here with unique indexes rather
// than read-then-write checks.
func init() {
	m.Register(func(app core.App) error {
		// "users" is taken by the built-in auth collection, so senders
		// live in their own collection.
		users := core.NewBaseCollection("bot_users")
		users.Fields.Add(
			&core.TextField{Name: "whatsapp_id", Required: true},
			&core.TextField{Name: "phone_clean", Required: true},
			&core.TextField{Name: "name"},
			&core.SelectField{Name: "user_type", MaxSelect: 1, Values: []string{"organic", "invited"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		users.AddIndex("idx_bot_users_phone_clean", true, "phone_clean", "")
		if err := app.Save(users); err != nil {
			return err
		}

		organizers := core.NewBaseCollection("organizers")
		organizers.Fields.Add(
			&core.TextField{Name: "name", Required: true},
			&core.TextField{Name: "code", Required: true},
			&core.BoolField{Name: "refundable"},
			&core.TextField{Name: "contact_for_refunds"},
			&core.TextField{Name: "welcome_message", Max: 200},
			&core.URLField{Name: "logo_url"},
			&core.FileField{Name: "invite_qr", MaxSelect: 1, MaxSize: 5 << 20, MimeTypes: []string{"image/png"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		organizers.AddIndex("idx_organizers_code", true, "code", "")
		if err := app.Save(organizers); err != nil {
			return err
		}

		links := core.NewBaseCollection("user_organizers")
		links.Fields.Add(
			&core.TextField{Name: "whatsapp_id", Required: true},
			&core.RelationField{Name: "organizer", Required: true, MaxSelect: 1, CollectionId: organizers.Id, CascadeDelete: true},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		links.AddIndex("idx_user_organizers_pair", true, "whatsapp_id, organizer", "")
		if err := app.Save(links); err != nil {
			return err
		}

		events := core.NewBaseCollection("events")
		events.Fields.Add(
			&core.RelationField{Name: "organizer", Required: true, MaxSelect: 1, CollectionId: organizers.Id, CascadeDelete: true},
			&core.TextField{Name: "name", Required: true},
			&core.DateField{Name: "date", Required: true},
			&core.TextField{Name: "location"},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"active", "cancelled"}},
			&core.BoolField{Name: "ticket_sales_open"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		events.AddIndex("idx_events_organizer", false, "organizer", "")
		if err := app.Save(events); err != nil {
			return err
		}

		ticketTypes := core.NewBaseCollection("ticket_types")
		ticketTypes.Fields.Add(
			&core.RelationField{Name: "event", Required: true, MaxSelect: 1, CollectionId: events.Id, CascadeDelete: true},
			&core.TextField{Name: "name", Required: true},
			&core.NumberField{Name: "price", Required: true},
			&core.NumberField{Name: "total_quantity", OnlyInt: true},
			&core.NumberField{Name: "available_quantity", OnlyInt: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		ticketTypes.AddIndex("idx_ticket_types_event", false, "event", "")
		if err := app.Save(ticketTypes); err != nil {
			return err
		}

		sessions := core.NewBaseCollection("user_sessions")
		sessions.Fields.Add(
			&core.TextField{Name: "whatsapp_id", Required: true},
			&core.SelectField{Name: "step", Required: true, MaxSelect: 1,
				Values: []string{"org_name", "event_name", "date", "location", "refundable", "welcome_message"}},
			&core.SelectField{Name: "previous_step", MaxSelect: 1,
				Values: []string{"org_name", "event_name", "date", "location", "refundable", "welcome_message"}},
			&core.JSONField{Name: "data"},
			&core.DateField{Name: "expires_at", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		sessions.AddIndex("idx_user_sessions_sender", true, "whatsapp_id", "")
		if err := app.Save(sessions); err != nil {
			return err
		}

		carts := core.NewBaseCollection("user_carts")
		carts.Fields.Add(
			&core.TextField{Name: "whatsapp_id", Required: true},
			&core.RelationField{Name: "event", Required: true, MaxSelect: 1, CollectionId: events.Id},
			&core.RelationField{Name: "ticket_type", Required: true, MaxSelect: 1, CollectionId: ticketTypes.Id},
			&core.NumberField{Name: "quantity", Required: true, OnlyInt: true},
			&core.BoolField{Name: "locked"},
			&core.DateField{Name: "expires_at", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		carts.AddIndex("idx_user_carts_sender", true, "whatsapp_id", "")
		if err := app.Save(carts); err != nil {
			return err
		}

		transactions := core.NewBaseCollection("transactions")
		transactions.Fields.Add(
			&core.TextField{Name: "whatsapp_id", Required: true},
			&core.RelationField{Name: "organizer", MaxSelect: 1, CollectionId: organizers.Id},
			&core.RelationField{Name: "event", MaxSelect: 1, CollectionId: events.Id},
			&core.RelationField{Name: "ticket_type", MaxSelect: 1, CollectionId: ticketTypes.Id},
			&core.NumberField{Name: "quantity", Required: true, OnlyInt: true},
			&core.NumberField{Name: "amount", Required: true},
			&core.SelectField{Name: "payment_gateway", Required: true, MaxSelect: 1, Values: []string{"paystack", "flutterwave"}},
			&core.TextField{Name: "payment_ref", Required: true},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"pending", "paid", "failed"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		transactions.AddIndex("idx_transactions_ref", true, "payment_ref", "")
		transactions.AddIndex("idx_transactions_status_created", false, "status, created", "")
		if err := app.Save(transactions); err != nil {
			return err
		}

		tickets := core.NewBaseCollection("tickets")
		tickets.Fields.Add(
			&core.TextField{Name: "whatsapp_id", Required: true},
			&core.RelationField{Name: "event", MaxSelect: 1, CollectionId: events.Id},
			&core.RelationField{Name: "ticket_type", MaxSelect: 1, CollectionId: ticketTypes.Id},
			&core.TextField{Name: "ticket_code", Required: true},
			&core.TextField{Name: "transaction_ref", Required: true},
			&core.NumberField{Name: "quantity", Required: true, OnlyInt: true},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"issued", "scanned"}},
			&core.TextField{Name: "scanned_by"},
			&core.DateField{Name: "scanned_at"},
			&core.FileField{Name: "qr_code", MaxSelect: 1, MaxSize: 5 << 20, MimeTypes: []string{"image/png"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		tickets.AddIndex("idx_tickets_code", true, "ticket_code", "")
		tickets.AddIndex("idx_tickets_transaction_ref", true, "transaction_ref", "")
		return app.Save(tickets)
	}, func(app core.App) error {
		for _, name := range []string{
			"tickets", "transactions", "user_carts", "user_sessions",
			"ticket_types", "events", "user_organizers", "organizers", "bot_users",
		} {
			col, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				continue
			}
			if err := app.Delete(col); err != nil {
				return err
			}
		}
		return nil
	})
}
