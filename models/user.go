package models

import "strings"

type User struct {
	ID         string `json:"id"`
	WhatsappID string `json:"whatsapp_id"`
	PhoneClean string `json:"phone_clean"`
	Name       string `json:"name"`
	UserType   string `json:"user_type"` // organic, invited
}

const (
	UserTypeOrganic = "organic"
	UserTypeInvited = "invited"
)

// NormalizePhone strips the transport prefix from a sender identity,
// "whatsapp:+234..." -> "+234...".
func NormalizePhone(senderID string) string {
	return strings.TrimPrefix(senderID, "whatsapp:")
}
