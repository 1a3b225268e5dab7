package services

import (
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"ticketbot/models"
)

// CatalogService lists what an organizer currently has on sale.
type CatalogService struct {
	app core.App
}

func NewCatalogService(app core.App) *CatalogService {
	return &CatalogService{app: app}
}

// ActiveEvents returns the organizer's upcoming events that are open for
// sale, soonest first.
func (s *CatalogService) ActiveEvents(organizerID string) ([]models.Event, error) {
	recs, err := s.app.FindRecordsByFilter("events",
		"organizer = {:org} && status = {:status} && ticket_sales_open = true && date >= {:now}",
		"date", 0, 0,
		dbx.Params{"org": organizerID, "status": models.EventStatusActive, "now": types.NowDateTime().String()})
	if err != nil {
		return nil, fmt.Errorf("activeEvents: organizer %v: %w", organizerID, err)
	}

	events := make([]models.Event, 0, len(recs))
	for _, r := range recs {
		events = append(events, *eventFromRecord(r))
	}
	return events, nil
}

// TicketTypes returns all ticket types for an event, cheapest first.
func (s *CatalogService) TicketTypes(eventID string) ([]models.TicketType, error) {
	recs, err := s.app.FindRecordsByFilter("ticket_types",
		"event = {:event}", "price", 0, 0, dbx.Params{"event": eventID})
	if err != nil {
		return nil, fmt.Errorf("ticketTypes: event %v: %w", eventID, err)
	}

	tts := make([]models.TicketType, 0, len(recs))
	for _, r := range recs {
		tts = append(tts, *ticketTypeFromRecord(r))
	}
	return tts, nil
}

// FindTicketType resolves a buyer's typed ticket name against the
// organizer's open events: exact name match with enough stock left.
func (s *CatalogService) FindTicketType(organizerID, name string, quantity int) (*models.TicketType, *models.Event, error) {
	events, err := s.ActiveEvents(organizerID)
	if err != nil {
		return nil, nil, err
	}

	want := strings.TrimSpace(name)
	for i := range events {
		tts, err := s.TicketTypes(events[i].ID)
		if err != nil {
			return nil, nil, err
		}
		for j := range tts {
			if tts[j].Name == want && tts[j].AvailableQuantity >= quantity {
				return &tts[j], &events[i], nil
			}
		}
	}
	return nil, nil, nil
}

// TicketTypeByID fetches a single ticket type.
func (s *CatalogService) TicketTypeByID(id string) (*models.TicketType, error) {
	rec, err := s.app.FindRecordById("ticket_types", id)
	if err != nil {
		return nil, fmt.Errorf("ticketTypeByID: %v: %w", id, err)
	}
	return ticketTypeFromRecord(rec), nil
}

// EventByID fetches a single event.
func (s *CatalogService) EventByID(id string) (*models.Event, error) {
	rec, err := s.app.FindRecordById("events", id)
	if err != nil {
		return nil, fmt.Errorf("eventByID: %v: %w", id, err)
	}
	return eventFromRecord(rec), nil
}
