package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
	qrcode "github.com/skip2/go-qrcode"

	"ticketbot/config"
	"ticketbot/models"
)

// Reply is what the bot sends back for one inbound message.
type Reply struct {
	Text  string
	Media []string
}

// OnboardingService walks a new organizer through the guided setup
// dialogue and creates the organizer, first event and invite artifacts
// when the last answer lands.
type OnboardingService struct {
	app       core.App
	directory *DirectoryService
	cfg       *config.Config
}

func NewOnboardingService(app core.App, directory *DirectoryService, cfg *config.Config) *OnboardingService {
	return &OnboardingService{app: app, directory: directory, cfg: cfg}
}

// Active returns the sender's live session, or nil. Expired sessions are
// deleted here so a stale dialogue never resumes.
func (s *OnboardingService) Active(senderID string) (*models.Session, error) {
	rec, err := s.app.FindFirstRecordByFilter("user_sessions",
		"whatsapp_id = {:wid}", dbx.Params{"wid": senderID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("onboarding.Active: %v: %w", senderID, err)
	}

	sess := sessionFromRecord(rec)
	if sess.Expired(time.Now()) {
		if err := s.app.Delete(rec); err != nil {
			slog.Error("expired session delete failed", "session", rec.Id, "error", err)
		}
		return nil, nil
	}
	return sess, nil
}

// Start opens a fresh session at the first step, replacing any previous
// one for the sender.
func (s *OnboardingService) Start(senderID string) (*models.Session, error) {
	if rec, err := s.app.FindFirstRecordByFilter("user_sessions",
		"whatsapp_id = {:wid}", dbx.Params{"wid": senderID}); err == nil {
		if err := s.app.Delete(rec); err != nil {
			return nil, fmt.Errorf("onboarding.Start: replace session: %w", err)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("onboarding.Start: %w", err)
	}

	col, err := s.app.FindCollectionByNameOrId("user_sessions")
	if err != nil {
		return nil, fmt.Errorf("onboarding.Start: %w", err)
	}
	rec := core.NewRecord(col)
	rec.Set("whatsapp_id", senderID)
	rec.Set("step", string(models.StepOrganizerName))
	rec.Set("data", map[string]string{})
	rec.Set("expires_at", time.Now().Add(s.cfg.SessionTTL))
	if err := s.app.Save(rec); err != nil {
		return nil, fmt.Errorf("onboarding.Start: save: %w", err)
	}
	return sessionFromRecord(rec), nil
}

// HandleMessage advances the session with one answer. Global commands
// (back, cancel) work at every step; anything else is validated against
// the current step's rule. Answering the final step finalizes setup.
func (s *OnboardingService) HandleMessage(ctx context.Context, sess *models.Session, input string) (*Reply, error) {
	switch models.ParseCommand(input) {
	case models.CommandCancel:
		if err := s.deleteSession(sess.ID); err != nil {
			return nil, err
		}
		return &Reply{Text: "Setup cancelled. Message me anytime to start again."}, nil

	case models.CommandBack:
		// Single-level undo: one recorded previous step. A second back in a
		// row has nothing recorded and restarts the dialogue.
		target := sess.PreviousStep
		if target == "" || !target.Valid() {
			if err := s.restart(sess); err != nil {
				return nil, err
			}
			return &Reply{Text: "Let's start over.\n\n" + models.StepOrganizerName.Prompt()}, nil
		}
		if err := s.rewind(sess, target); err != nil {
			return nil, err
		}
		return &Reply{Text: "Okay, let's redo that.\n\n" + target.Prompt()}, nil
	}

	if !sess.Step.Valid() {
		// Corrupt persisted step; restart the dialogue rather than wedge.
		slog.Warn("resetting session with unknown step", "session", sess.ID, "step", sess.Step)
		if err := s.restart(sess); err != nil {
			return nil, err
		}
		return &Reply{Text: models.StepOrganizerName.Prompt()}, nil
	}

	value, err := sess.Step.ValidateInput(input, time.Now())
	if err != nil {
		return &Reply{Text: err.Error()}, nil
	}

	data := sess.Data
	if data == nil {
		data = map[string]string{}
	}
	data[sess.Step.FieldKey()] = value

	next, ok := sess.Step.Next()
	if !ok {
		return s.finalize(ctx, sess, data)
	}
	if err := s.saveProgress(sess, next, data); err != nil {
		return nil, err
	}
	return &Reply{Text: next.Prompt()}, nil
}

func (s *OnboardingService) saveProgress(sess *models.Session, step models.Step, data map[string]string) error {
	rec, err := s.app.FindRecordById("user_sessions", sess.ID)
	if err != nil {
		return fmt.Errorf("onboarding.saveProgress: %w", err)
	}
	rec.Set("previous_step", string(sess.Step))
	rec.Set("step", string(step))
	rec.Set("data", data)
	rec.Set("expires_at", time.Now().Add(s.cfg.SessionTTL))
	if err := s.app.Save(rec); err != nil {
		return fmt.Errorf("onboarding.saveProgress: save: %w", err)
	}
	sess.PreviousStep = sess.Step
	sess.Step = step
	sess.Data = data
	return nil
}

// rewind moves the session to an earlier step and clears the recorded
// previous step, collected answers stay put.
func (s *OnboardingService) rewind(sess *models.Session, step models.Step) error {
	rec, err := s.app.FindRecordById("user_sessions", sess.ID)
	if err != nil {
		return fmt.Errorf("onboarding.rewind: %w", err)
	}
	rec.Set("step", string(step))
	rec.Set("previous_step", "")
	rec.Set("expires_at", time.Now().Add(s.cfg.SessionTTL))
	if err := s.app.Save(rec); err != nil {
		return fmt.Errorf("onboarding.rewind: save: %w", err)
	}
	sess.PreviousStep = ""
	sess.Step = step
	return nil
}

// restart sends the session back to the first step and discards every
// collected answer.
func (s *OnboardingService) restart(sess *models.Session) error {
	rec, err := s.app.FindRecordById("user_sessions", sess.ID)
	if err != nil {
		return fmt.Errorf("onboarding.restart: %w", err)
	}
	rec.Set("step", string(models.StepOrganizerName))
	rec.Set("previous_step", "")
	rec.Set("data", map[string]string{})
	rec.Set("expires_at", time.Now().Add(s.cfg.SessionTTL))
	if err := s.app.Save(rec); err != nil {
		return fmt.Errorf("onboarding.restart: save: %w", err)
	}
	sess.PreviousStep = ""
	sess.Step = models.StepOrganizerName
	sess.Data = map[string]string{}
	return nil
}

func (s *OnboardingService) deleteSession(id string) error {
	rec, err := s.app.FindRecordById("user_sessions", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("onboarding.deleteSession: %w", err)
	}
	if err := s.app.Delete(rec); err != nil {
		return fmt.Errorf("onboarding.deleteSession: %w", err)
	}
	return nil
}

// finalize turns collected answers into the organizer, its first event
// and the shareable invite. The session is gone afterwards either way:
// a failed finalize deletes it too, so the user retries from a clean
// slate instead of resuming into a half-created state.
func (s *OnboardingService) finalize(ctx context.Context, sess *models.Session, data map[string]string) (*Reply, error) {
	reply, err := s.createOrganizer(ctx, sess, data)
	if err != nil {
		slog.Error("onboarding finalize failed", "sender", sess.WhatsappID, "error", err)
		if derr := s.deleteSession(sess.ID); derr != nil {
			slog.Error("session cleanup after failed finalize", "session", sess.ID, "error", derr)
		}
		return &Reply{Text: "Sorry, something went wrong creating your event. Please message me again to restart setup."}, nil
	}
	return reply, nil
}

func (s *OnboardingService) createOrganizer(_ context.Context, sess *models.Session, data map[string]string) (*Reply, error) {
	code, err := GenerateOrganizerCode(data[models.FieldEventName], data[models.FieldDate], s.directory.OrganizerCodeExists)
	if err != nil {
		return nil, fmt.Errorf("onboarding.finalize: %w", err)
	}

	refundable, _ := strconv.ParseBool(data[models.FieldRefundable])

	orgCol, err := s.app.FindCollectionByNameOrId("organizers")
	if err != nil {
		return nil, fmt.Errorf("onboarding.finalize: %w", err)
	}
	org := core.NewRecord(orgCol)
	org.Set("name", data[models.FieldOrganizerName])
	org.Set("code", code)
	org.Set("refundable", refundable)
	org.Set("contact_for_refunds", models.NormalizePhone(sess.WhatsappID))
	org.Set("welcome_message", data[models.FieldWelcomeMessage])

	inviteText := fmt.Sprintf("attend %s", code)
	inviteLink := fmt.Sprintf("https://wa.me/%s?text=%s",
		models.NormalizePhone(s.cfg.BotNumber), inviteText)
	if png, err := qrcode.Encode(inviteLink, qrcode.Medium, 256); err != nil {
		slog.Error("invite qr encode failed", "code", code, "error", err)
	} else if f, err := filesystem.NewFileFromBytes(png, code+".png"); err != nil {
		slog.Error("invite qr wrap failed", "code", code, "error", err)
	} else {
		org.Set("invite_qr", f)
	}

	if err := s.app.Save(org); err != nil {
		return nil, fmt.Errorf("onboarding.finalize: save organizer: %w", err)
	}

	evCol, err := s.app.FindCollectionByNameOrId("events")
	if err != nil {
		return nil, fmt.Errorf("onboarding.finalize: %w", err)
	}
	ev := core.NewRecord(evCol)
	ev.Set("organizer", org.Id)
	ev.Set("name", data[models.FieldEventName])
	ev.Set("date", data[models.FieldDate])
	ev.Set("location", data[models.FieldLocation])
	ev.Set("status", models.EventStatusActive)
	// Sales stay closed until ticket types exist for the event.
	ev.Set("ticket_sales_open", false)
	if err := s.app.Save(ev); err != nil {
		return nil, fmt.Errorf("onboarding.finalize: save event: %w", err)
	}

	if err := s.directory.CreateLink(sess.WhatsappID, org.Id); err != nil {
		return nil, err
	}
	if err := s.deleteSession(sess.ID); err != nil {
		slog.Error("session cleanup after finalize failed", "session", sess.ID, "error", err)
	}

	var media []string
	if name := org.GetString("invite_qr"); name != "" {
		media = append(media, fmt.Sprintf("%s/api/files/organizers/%s/%s", s.cfg.PublicURL, org.Id, name))
	}

	text := fmt.Sprintf(
		"*You're all set!*\n\n*Organizer:* %s\n*Event:* %s\n*Date:* %s\n*Location:* %s\n\n"+
			"Your organizer code is *%s*.\n\nShare this link so attendees can join:\n%s\n\n"+
			"They can also send *attend %s* to this number.",
		data[models.FieldOrganizerName], data[models.FieldEventName],
		data[models.FieldDate], data[models.FieldLocation],
		code, inviteLink, code)

	return &Reply{Text: text, Media: media}, nil
}
