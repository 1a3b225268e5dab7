package services

import (
	"context"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"

	"ticketbot/models"
)

// Messenger pushes outbound messages to per-user channels so delivery
// can happen outside the inbound webhook request cycle.
type Messenger struct {
	pn *pubnub.PubNub
}

func NewMessenger(pn *pubnub.PubNub) *Messenger {
	return &Messenger{pn: pn}
}

// Send publishes text (and optional media URLs) to the recipient's channel.
// With no configured client it logs and drops the message, which keeps the
// rest of the pipeline usable in development.
func (m *Messenger) Send(ctx context.Context, recipient, text string, media []string) error {
	channel := "user-" + models.NormalizePhone(recipient)

	if m.pn == nil {
		slog.Info("messenger: no publish client, dropping message", "channel", channel)
		return nil
	}

	payload := map[string]any{
		"type": "bot_message",
		"body": text,
	}
	if len(media) > 0 {
		payload["media"] = media
	}

	_, status, err := m.pn.Publish().
		Channel(channel).
		Message(payload).
		Execute()
	if err != nil {
		return fmt.Errorf("messenger.Send: publish to %v: %w", channel, err)
	}
	if status.Error != nil {
		return fmt.Errorf("messenger.Send: publish to %v: status %v: %w", channel, status.StatusCode, status.Error)
	}

	slog.Debug("messenger: published", "channel", channel, "media", len(media))
	return nil
}
