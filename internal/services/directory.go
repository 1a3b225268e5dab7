package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"ticketbot/models"
)

// DirectoryService resolves inbound senders to users and the organizers
// they belong to.
type DirectoryService struct {
	app core.App
}

func NewDirectoryService(app core.App) *DirectoryService {
	return &DirectoryService{app: app}
}

// ResolveUser finds the user for a sender id, creating an organic user on
// first contact.
func (s *DirectoryService) ResolveUser(senderID string) (*models.User, error) {
	clean := models.NormalizePhone(senderID)

	rec, err := s.app.FindFirstRecordByFilter("bot_users",
		"phone_clean = {:phone}", dbx.Params{"phone": clean})
	if err == nil {
		return userFromRecord(rec), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolveUser: lookup %v: %w", clean, err)
	}

	col, err := s.app.FindCollectionByNameOrId("bot_users")
	if err != nil {
		return nil, fmt.Errorf("resolveUser: %w", err)
	}
	rec = core.NewRecord(col)
	rec.Set("whatsapp_id", senderID)
	rec.Set("phone_clean", clean)
	rec.Set("user_type", models.UserTypeOrganic)
	if err := s.app.Save(rec); err != nil {
		return nil, fmt.Errorf("resolveUser: create %v: %w", clean, err)
	}
	return userFromRecord(rec), nil
}

// ListOrganizers returns the organizers linked to a sender, each with a
// count of events currently open for sale.
func (s *DirectoryService) ListOrganizers(senderID string) ([]models.OrganizerSummary, error) {
	links, err := s.app.FindRecordsByFilter("user_organizers",
		"whatsapp_id = {:wid}", "-created", 0, 0, dbx.Params{"wid": senderID})
	if err != nil {
		return nil, fmt.Errorf("listOrganizers: links for %v: %w", senderID, err)
	}

	now := types.NowDateTime()
	summaries := make([]models.OrganizerSummary, 0, len(links))
	for _, link := range links {
		orgRec, err := s.app.FindRecordById("organizers", link.GetString("organizer"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("listOrganizers: organizer %v: %w", link.GetString("organizer"), err)
		}

		count, err := s.app.CountRecords("events",
			dbx.HashExp{"organizer": orgRec.Id, "status": models.EventStatusActive, "ticket_sales_open": true},
			dbx.NewExp("date >= {:now}", dbx.Params{"now": now.String()}),
		)
		if err != nil {
			return nil, fmt.Errorf("listOrganizers: count events for %v: %w", orgRec.Id, err)
		}

		summaries = append(summaries, models.OrganizerSummary{
			Organizer:        *organizerFromRecord(orgRec),
			ActiveEventCount: int(count),
		})
	}
	return summaries, nil
}

// OrganizerByCode looks up an organizer by its invite code.
func (s *DirectoryService) OrganizerByCode(code string) (*models.Organizer, error) {
	rec, err := s.app.FindFirstRecordByFilter("organizers",
		"code = {:code}", dbx.Params{"code": code})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("organizerByCode: %v: %w", code, err)
	}
	return organizerFromRecord(rec), nil
}

// OrganizerCodeExists is the collision probe for code generation.
func (s *DirectoryService) OrganizerCodeExists(code string) (bool, error) {
	org, err := s.OrganizerByCode(code)
	if err != nil {
		return false, err
	}
	return org != nil, nil
}

// LinkOrganizer attaches a sender to an organizer by invite code. The
// link is idempotent. Users created through this path are marked invited.
func (s *DirectoryService) LinkOrganizer(senderID, code string) (*models.Organizer, error) {
	org, err := s.OrganizerByCode(code)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, nil
	}

	clean := models.NormalizePhone(senderID)
	if _, err := s.app.FindFirstRecordByFilter("bot_users",
		"phone_clean = {:phone}", dbx.Params{"phone": clean}); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("linkOrganizer: lookup user %v: %w", clean, err)
		}
		col, err := s.app.FindCollectionByNameOrId("bot_users")
		if err != nil {
			return nil, fmt.Errorf("linkOrganizer: %w", err)
		}
		rec := core.NewRecord(col)
		rec.Set("whatsapp_id", senderID)
		rec.Set("phone_clean", clean)
		rec.Set("user_type", models.UserTypeInvited)
		if err := s.app.Save(rec); err != nil {
			return nil, fmt.Errorf("linkOrganizer: create user %v: %w", clean, err)
		}
	}

	_, err = s.app.FindFirstRecordByFilter("user_organizers",
		"whatsapp_id = {:wid} && organizer = {:org}",
		dbx.Params{"wid": senderID, "org": org.ID})
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("linkOrganizer: lookup link: %w", err)
	}

	col, err := s.app.FindCollectionByNameOrId("user_organizers")
	if err != nil {
		return nil, fmt.Errorf("linkOrganizer: %w", err)
	}
	link := core.NewRecord(col)
	link.Set("whatsapp_id", senderID)
	link.Set("organizer", org.ID)
	if err := s.app.Save(link); err != nil {
		return nil, fmt.Errorf("linkOrganizer: save link: %w", err)
	}
	return org, nil
}

// CreateLink attaches a sender to an organizer directly, used right after
// onboarding creates the organizer.
func (s *DirectoryService) CreateLink(senderID, organizerID string) error {
	col, err := s.app.FindCollectionByNameOrId("user_organizers")
	if err != nil {
		return fmt.Errorf("createLink: %w", err)
	}
	link := core.NewRecord(col)
	link.Set("whatsapp_id", senderID)
	link.Set("organizer", organizerID)
	if err := s.app.Save(link); err != nil {
		return fmt.Errorf("createLink: %w", err)
	}
	return nil
}
