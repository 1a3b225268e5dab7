package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ticketbot/config"
	"ticketbot/internal/gateway"
	"ticketbot/internal/status"
	"ticketbot/models"
	"ticketbot/monitoring"
)

// onboardingIntents are the phrases that open organizer setup for a user
// with no linked organizers.
var onboardingIntents = []string{
	"i'm an organizer",
	"im an organizer",
	"create event",
	"new event",
	"host event",
	"sell tickets",
}

var resendIntents = []string{"my ticket", "resend", "send ticket", "qr code"}

const apologyReply = "Sorry, something went wrong on our side. Please try again in a moment."

// BotService routes every inbound chat message to the right flow. It is
// the outermost boundary of the conversational surface: whatever fails
// below it, the sender gets an apology instead of silence and the
// process keeps serving.
type BotService struct {
	directory  *DirectoryService
	onboarding *OnboardingService
	catalog    *CatalogService
	carts      *CartService
	payments   *PaymentService
	tickets    *TicketService
	cfg        *config.Config
}

func NewBotService(directory *DirectoryService, onboarding *OnboardingService, catalog *CatalogService, carts *CartService, payments *PaymentService, tickets *TicketService, cfg *config.Config) *BotService {
	return &BotService{
		directory:  directory,
		onboarding: onboarding,
		catalog:    catalog,
		carts:      carts,
		payments:   payments,
		tickets:    tickets,
		cfg:        cfg,
	}
}

// HandleMessage never returns an error: internal failures are logged
// with detail and answered with a generic apology.
func (s *BotService) HandleMessage(ctx context.Context, senderID, body string) *Reply {
	monitoring.MessagesReceived.Inc()

	reply, err := s.route(ctx, senderID, strings.TrimSpace(body))
	if err != nil {
		slog.Error("message handling failed", "sender", models.NormalizePhone(senderID), "error", err)
		return &Reply{Text: apologyReply}
	}
	return reply
}

func (s *BotService) route(ctx context.Context, senderID, body string) (*Reply, error) {
	lower := strings.ToLower(body)

	user, err := s.directory.ResolveUser(senderID)
	if err != nil {
		return nil, err
	}
	orgs, err := s.directory.ListOrganizers(senderID)
	if err != nil {
		return nil, err
	}

	// Cross-cutting intents first, they work in any state.
	if strings.Contains(lower, "refund") {
		return s.refundInfo(orgs)
	}
	for _, intent := range resendIntents {
		if strings.Contains(lower, intent) {
			return s.resendTicket(ctx, senderID)
		}
	}
	if code, ok := strings.CutPrefix(lower, "attend "); ok {
		return s.attend(senderID, strings.ToUpper(strings.TrimSpace(code)))
	}

	if len(orgs) == 0 {
		return s.newcomerFlow(ctx, senderID, body, lower)
	}
	return s.buyerFlow(ctx, user, orgs, body, lower)
}

// newcomerFlow covers senders with no linked organizer: either they are
// mid-onboarding, they want to start it, or they get the two-option
// welcome.
func (s *BotService) newcomerFlow(ctx context.Context, senderID, body, lower string) (*Reply, error) {
	sess, err := s.onboarding.Active(senderID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return s.onboarding.HandleMessage(ctx, sess, body)
	}

	for _, intent := range onboardingIntents {
		if strings.Contains(lower, intent) {
			if _, err := s.onboarding.Start(senderID); err != nil {
				return nil, err
			}
			return &Reply{Text: "Great, let's set you up!\n\n" + models.StepOrganizerName.Prompt() +
				"\n\n(Send *back* to redo a step, *cancel* to stop.)"}, nil
		}
	}

	return &Reply{Text: "Welcome! I can help you with event tickets.\n\n" +
		"To *buy tickets*, send *attend CODE* with the organizer code you were given.\n" +
		"To *sell tickets* for your own event, reply *create event*."}, nil
}

// buyerFlow covers senders linked to at least one organizer: catalog
// browsing, reservations, payment choice, cancellation.
func (s *BotService) buyerFlow(ctx context.Context, user *models.User, orgs []models.OrganizerSummary, body, lower string) (*Reply, error) {
	switch lower {
	case "cancel":
		cancelled, err := s.carts.Cancel(user.WhatsappID)
		if err != nil {
			return nil, err
		}
		if !cancelled {
			return &Reply{Text: "You have no pending ticket selection to cancel."}, nil
		}
		return &Reply{Text: "Your ticket selection has been cancelled. The tickets are back on sale."}, nil

	case "events", "event", "tickets", "menu", "hi", "hello", "hey":
		return s.listCatalog(orgs)

	case "1", "2":
		return s.chooseGateway(ctx, user, lower)
	}

	if name, qty, ok := parsePurchase(body); ok {
		return s.reserve(ctx, user, orgs, name, qty)
	}
	if looksLikePurchase(body) {
		return &Reply{Text: "Invalid format. To pick tickets, send the ticket name and quantity, e.g. *VIP 2*."}, nil
	}

	return s.listCatalog(orgs)
}

// parsePurchase recognizes "<ticket name> <quantity>" where the last
// token is a whole number.
func parsePurchase(body string) (name string, qty int, ok bool) {
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return "", 0, false
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return "", 0, false
	}
	return strings.Join(fields[:len(fields)-1], " "), n, true
}

func looksLikePurchase(body string) bool {
	return len(strings.Fields(body)) >= 2
}

func (s *BotService) reserve(ctx context.Context, user *models.User, orgs []models.OrganizerSummary, name string, qty int) (*Reply, error) {
	if qty < 1 {
		return &Reply{Text: "Quantity must be at least 1. Example: *VIP 2*."}, nil
	}

	if cart, err := s.carts.Current(user.WhatsappID); err != nil {
		return nil, err
	} else if cart != nil {
		return s.cartBlockedReply(cart)
	}

	var tt *models.TicketType
	var ev *models.Event
	for i := range orgs {
		found, foundEv, err := s.catalog.FindTicketType(orgs[i].ID, name, qty)
		if err != nil {
			return nil, err
		}
		if found != nil {
			tt, ev = found, foundEv
			break
		}
	}
	if tt == nil {
		return &Reply{Text: fmt.Sprintf("Sorry, I couldn't find *%s* with %d ticket(s) available. Send *events* to see what's on sale.", name, qty)}, nil
	}

	cart, err := s.carts.Reserve(ctx, user.WhatsappID, tt, ev, qty)
	if err != nil {
		if errors.Is(err, status.ErrCartLocked) {
			if current, cerr := s.carts.Current(user.WhatsappID); cerr == nil && current != nil {
				return s.cartBlockedReply(current)
			}
		}
		if errors.Is(err, status.ErrTicketTypeSoldOut) {
			return &Reply{Text: fmt.Sprintf("Sorry, *%s* just sold out at that quantity. Send *events* to see what's left.", tt.Name)}, nil
		}
		return nil, err
	}

	// Force fresh probes so the menu reflects gateway health right now.
	s.payments.InvalidateHealthCache(ctx)
	healthy := s.payments.HealthyProviders(ctx)
	if len(healthy) == 0 {
		if _, err := s.carts.Cancel(user.WhatsappID); err != nil {
			slog.Error("cart release after gateway outage failed", "cart", cart.ID, "error", err)
		}
		return &Reply{Text: "Payments are temporarily unavailable. Please try again in a few minutes, your tickets were not held."}, nil
	}

	total := tt.Price.Mul(decimalFromInt(qty))
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* — %s\n%d x %s = *₦%s*\n\nHow would you like to pay?\n",
		ev.Name, tt.Name, qty, formatNaira(tt.Price), formatNaira(total))
	for _, p := range healthy {
		switch p {
		case menuProviders[0]:
			b.WriteString("1. Flutterwave\n")
		case menuProviders[1]:
			b.WriteString("2. Paystack\n")
		}
	}
	b.WriteString("\nReply with the number. Your tickets are held for 20 minutes. Send *cancel* to release them.")
	return &Reply{Text: b.String()}, nil
}

func (s *BotService) cartBlockedReply(cart *models.Cart) (*Reply, error) {
	evName, ttName := "your event", "tickets"
	if ev, err := s.catalog.EventByID(cart.EventID); err == nil {
		evName = ev.Name
	}
	if tt, err := s.catalog.TicketTypeByID(cart.TicketTypeID); err == nil {
		ttName = tt.Name
	}
	return &Reply{Text: fmt.Sprintf(
		"You already have %d x *%s* for *%s* waiting for payment. Finish paying, or send *cancel* to release them first.",
		cart.Quantity, ttName, evName)}, nil
}

func (s *BotService) chooseGateway(ctx context.Context, user *models.User, choice string) (*Reply, error) {
	cart, err := s.carts.Current(user.WhatsappID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &Reply{Text: "No ticket selected yet. Send the ticket name and quantity first, e.g. *VIP 2*."}, nil
	}

	provider, ok := MenuProvider(choice)
	if !ok {
		return &Reply{Text: "Please reply *1* for Flutterwave or *2* for Paystack."}, nil
	}

	tt, err := s.catalog.TicketTypeByID(cart.TicketTypeID)
	if err != nil {
		return nil, err
	}
	ev, err := s.catalog.EventByID(cart.EventID)
	if err != nil {
		return nil, err
	}

	res, err := s.payments.Initiate(ctx, user, cart, tt, ev, provider)
	if err != nil {
		if errors.Is(err, status.ErrGatewaysDown) {
			if _, cerr := s.carts.Cancel(user.WhatsappID); cerr != nil {
				slog.Error("cart release after failed initiation", "cart", cart.ID, "error", cerr)
			}
			return &Reply{Text: "Sorry, we couldn't start your payment with any provider. Your tickets were released, please try again shortly."}, nil
		}
		return nil, err
	}

	var b strings.Builder
	if res.Fallback {
		b.WriteString(fallbackNotice(provider, res.Provider) + "\n\n")
	}
	fmt.Fprintf(&b, "Pay *₦%s* for %d x *%s* here:\n%s\n\nReference: %s\nI'll send your ticket as soon as payment is confirmed.",
		formatNaira(res.Amount), cart.Quantity, tt.Name, res.Link.URL, res.Reference)
	return &Reply{Text: b.String()}, nil
}

func (s *BotService) listCatalog(orgs []models.OrganizerSummary) (*Reply, error) {
	var b strings.Builder

	listed := 0
	for i := range orgs {
		events, err := s.catalog.ActiveEvents(orgs[i].ID)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			fmt.Fprintf(&b, "*%s* — %s, %s\n", ev.Name, ev.Location, ev.Date.Format("Mon 2 Jan 2006"))
			tts, err := s.catalog.TicketTypes(ev.ID)
			if err != nil {
				return nil, err
			}
			for _, tt := range tts {
				if tt.AvailableQuantity > 0 {
					fmt.Fprintf(&b, "  %s: ₦%s (%d left)\n", tt.Name, formatNaira(tt.Price), tt.AvailableQuantity)
				}
			}
			b.WriteString("\n")
			listed++
		}
	}

	if listed == 0 {
		return &Reply{Text: "There are no events on sale right now. Check back soon!"}, nil
	}

	b.WriteString("To buy, send the ticket name and quantity, e.g. *VIP 2*.")
	return &Reply{Text: b.String()}, nil
}

func (s *BotService) refundInfo(orgs []models.OrganizerSummary) (*Reply, error) {
	for i := range orgs {
		if orgs[i].Refundable {
			contact := orgs[i].ContactForRefunds
			if contact == "" {
				contact = "the organizer"
			}
			return &Reply{Text: fmt.Sprintf(
				"*%s* allows refunds. Please contact %s to request one.", orgs[i].Name, contact)}, nil
		}
	}
	if len(orgs) > 0 {
		return &Reply{Text: "Tickets for this organizer are *non-refundable*."}, nil
	}
	return &Reply{Text: "I couldn't find a purchase to refund. If you bought a ticket, send *my ticket* to see it."}, nil
}

func (s *BotService) resendTicket(ctx context.Context, senderID string) (*Reply, error) {
	ticket, err := s.tickets.Resend(ctx, senderID)
	if err != nil {
		if errors.Is(err, status.ErrTicketNotFound) {
			return &Reply{Text: "I couldn't find a ticket for you yet. Once you complete a purchase it will show up here."}, nil
		}
		return nil, err
	}
	return &Reply{Text: fmt.Sprintf("Sent! Your ticket code is *%s*.", ticket.TicketCode)}, nil
}

func (s *BotService) attend(senderID, code string) (*Reply, error) {
	org, err := s.directory.LinkOrganizer(senderID, code)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return &Reply{Text: fmt.Sprintf("I couldn't find an organizer with code *%s*. Double-check the code and try again.", code)}, nil
	}

	var b strings.Builder
	if org.WelcomeMessage != "" {
		b.WriteString(org.WelcomeMessage + "\n\n")
	} else {
		fmt.Fprintf(&b, "Welcome to *%s*!\n\n", org.Name)
	}
	b.WriteString("Send *events* to see what's on sale.")

	reply := &Reply{Text: b.String()}
	if org.LogoURL != "" {
		reply.Media = append(reply.Media, org.LogoURL)
	}
	return reply, nil
}

// fallbackNotice tells the buyer their chosen gateway was swapped out.
// Silent substitution is not allowed; the actual charging provider must
// be named before the link.
func fallbackNotice(preferred, actual gateway.Provider) string {
	return fmt.Sprintf("%s is unavailable right now, so we set this up via *%s* instead.",
		providerLabel(preferred), providerLabel(actual))
}

func providerLabel(p gateway.Provider) string {
	switch p {
	case gateway.ProviderPaystack:
		return "Paystack"
	case gateway.ProviderFlutterwave:
		return "Flutterwave"
	}
	return string(p)
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// formatNaira renders an amount with thousands separators, keeping
// kobo only when present: 5000 -> "5,000", 1500.5 -> "1,500.50".
func formatNaira(d decimal.Decimal) string {
	s := d.StringFixed(2)
	s = strings.TrimSuffix(s, ".00")

	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
