package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Step is the closed set of onboarding positions. Sessions persist the
// step as text, so every read goes through Valid before use.
type Step string

const (
	StepOrganizerName  Step = "org_name"
	StepEventName      Step = "event_name"
	StepDate           Step = "date"
	StepLocation       Step = "location"
	StepRefundable     Step = "refundable"
	StepWelcomeMessage Step = "welcome_message"
)

// stepOrder is the strict linear sequence of the onboarding dialogue.
var stepOrder = []Step{
	StepOrganizerName,
	StepEventName,
	StepDate,
	StepLocation,
	StepRefundable,
	StepWelcomeMessage,
}

func (s Step) Valid() bool {
	for _, o := range stepOrder {
		if s == o {
			return true
		}
	}
	return false
}

// Next returns the step after s. ok is false on the final step, where a
// valid answer finalizes the session instead of advancing it.
func (s Step) Next() (next Step, ok bool) {
	for i, o := range stepOrder {
		if s == o && i+1 < len(stepOrder) {
			return stepOrder[i+1], true
		}
	}
	return "", false
}

// Prev returns the step before s. ok is false on the first step.
func (s Step) Prev() (prev Step, ok bool) {
	for i, o := range stepOrder {
		if s == o && i > 0 {
			return stepOrder[i-1], true
		}
	}
	return "", false
}

func (s Step) Prompt() string {
	switch s {
	case StepOrganizerName:
		return "What's your *organizer name*?\n(e.g., Lagos Jazz Fest)"
	case StepEventName:
		return "What's your *event name*?\n(e.g., Summer Night Jazz)"
	case StepDate:
		return "When is the event? Please send the date in *YYYY-MM-DD* format."
	case StepLocation:
		return "Where is the event happening?\n(e.g., Eko Hotel, Lagos)"
	case StepRefundable:
		return "Do you allow *refunds*? Reply:\n1. Yes\n2. No"
	case StepWelcomeMessage:
		return "Optional: Send a *welcome message* for your attendees (max 200 chars), or type `skip`."
	}
	return "Let's start over. What's your *organizer name*?"
}

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// WelcomeMessageMaxLen caps the stored organizer welcome message.
const WelcomeMessageMaxLen = 200

// ValidateInput checks a raw answer against the step's rule and returns the
// value to record. A returned error carries the corrective message shown to
// the user; the session does not advance.
func (s Step) ValidateInput(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)

	switch s {
	case StepOrganizerName, StepEventName, StepLocation:
		if input == "" {
			return "", fmt.Errorf("Please send a non-empty answer.\n\n%s", s.Prompt())
		}
		return input, nil

	case StepDate:
		if !dateFormat.MatchString(input) {
			return "", errors.New("Invalid date format. Please use YYYY-MM-DD (e.g., 2025-08-15)")
		}
		date, err := time.ParseInLocation("2006-01-02", input, time.UTC)
		if err != nil {
			return "", errors.New("Invalid date. Please use YYYY-MM-DD.")
		}
		if !date.After(now.UTC()) {
			return "", errors.New("Event date must be in the future. Try again.")
		}
		return input, nil

	case StepRefundable:
		switch strings.ToLower(input) {
		case "1", "yes":
			return "true", nil
		case "2", "no":
			return "false", nil
		}
		return "", errors.New("Please reply 1 for Yes or 2 for No.")

	case StepWelcomeMessage:
		if strings.EqualFold(input, "skip") {
			return "", nil
		}
		if len(input) > WelcomeMessageMaxLen {
			input = input[:WelcomeMessageMaxLen]
		}
		return input, nil
	}

	return "", fmt.Errorf("unknown step %q", string(s))
}

// Command is a global onboarding instruction valid at any step.
type Command int

const (
	CommandNone Command = iota
	CommandBack
	CommandCancel
)

func ParseCommand(input string) Command {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "back", "edit", "go back", "previous":
		return CommandBack
	case "cancel":
		return CommandCancel
	}
	return CommandNone
}

// Session is a sender's onboarding progress. One active session per sender,
// deleted on completion or cancellation.
type Session struct {
	ID           string            `json:"id"`
	WhatsappID   string            `json:"whatsapp_id"`
	Step         Step              `json:"step"`
	PreviousStep Step              `json:"previous_step,omitempty"`
	Data         map[string]string `json:"data"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// Session data keys, one per collected answer.
const (
	FieldOrganizerName  = "org_name"
	FieldEventName      = "event_name"
	FieldDate           = "date"
	FieldLocation       = "location"
	FieldRefundable     = "refundable"
	FieldWelcomeMessage = "welcome_message"
)

// FieldKey returns the session data key the step's answer is stored under.
func (s Step) FieldKey() string {
	return string(s)
}
