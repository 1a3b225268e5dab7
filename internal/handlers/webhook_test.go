package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketbot/internal/services"
)

func TestRenderTwiML(t *testing.T) {
	out := string(renderTwiML(&services.Reply{Text: "Hello there"}))

	assert.Contains(t, out, `<?xml`)
	assert.Contains(t, out, "<Response><Message><Body>Hello there</Body></Message></Response>")
}

func TestRenderTwiMLWithMedia(t *testing.T) {
	out := string(renderTwiML(&services.Reply{
		Text:  "Your ticket",
		Media: []string{"https://example.com/qr.png"},
	}))

	assert.Contains(t, out, "<Body>Your ticket</Body>")
	assert.Contains(t, out, "<Media>https://example.com/qr.png</Media>")
}

func TestRenderTwiMLEscapesMarkup(t *testing.T) {
	out := string(renderTwiML(&services.Reply{Text: "Tickets <VIP> & more"}))

	assert.Contains(t, out, "Tickets &lt;VIP&gt; &amp; more")
	assert.NotContains(t, out, "<VIP>")
}
