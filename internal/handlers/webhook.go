package handlers

import (
	"encoding/xml"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketbot/internal/services"
)

// WebhookHandler receives inbound chat messages and answers them with a
// TwiML-style XML reply in the same response.
type WebhookHandler struct {
	bot *services.BotService
}

func NewWebhookHandler(bot *services.BotService) *WebhookHandler {
	return &WebhookHandler{bot: bot}
}

func (h *WebhookHandler) Handle(e *core.RequestEvent) error {
	from := e.Request.PostFormValue("From")
	body := e.Request.PostFormValue("Body")
	if from == "" {
		return apis.NewBadRequestError("missing From", nil)
	}

	reply := h.bot.HandleMessage(e.Request.Context(), from, body)
	return e.Blob(http.StatusOK, "application/xml", renderTwiML(reply))
}

type twimlMessage struct {
	XMLName xml.Name `xml:"Message"`
	Body    string   `xml:"Body"`
	Media   []string `xml:"Media,omitempty"`
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message twimlMessage
}

func renderTwiML(reply *services.Reply) []byte {
	out, err := xml.Marshal(twimlResponse{Message: twimlMessage{
		Body:  reply.Text,
		Media: reply.Media,
	}})
	if err != nil {
		out = []byte("<Response></Response>")
	}
	return append([]byte(xml.Header), out...)
}
