package models

type Organizer struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Code              string `json:"code"`
	Refundable        bool   `json:"refundable"`
	ContactForRefunds string `json:"contact_for_refunds"`
	WelcomeMessage    string `json:"welcome_message"`
	LogoURL           string `json:"logo_url,omitempty"`
}

// OrganizerSummary is an organizer as seen from a linked user,
// carrying the count of events currently open for sale.
type OrganizerSummary struct {
	Organizer
	ActiveEventCount int `json:"active_event_count"`
}
