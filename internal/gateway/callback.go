package gateway

import (
	"encoding/json"
	"strconv"

	"ticketbot/internal/status"
)

// Callback is a normalized inbound webhook, detected by payload shape.
type Callback struct {
	Provider  Provider
	Reference string // our payment reference, used to locate the transaction
	VerifyKey string // key handed to VerifyPayment (Flutterwave uses its numeric id)
}

type callbackEnvelope struct {
	Event     string `json:"event"`
	EventType string `json:"event.type"`
	Data      struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		TxRef     string      `json:"tx_ref"`
	} `json:"data"`
}

// flutterwaveEvents is the fixed set of webhook events that carry a
// chargeable transaction.
var flutterwaveEvents = map[string]bool{
	"charge.completed":          true,
	"BANK_TRANSFER_TRANSACTION": true,
}

// ParseCallback distinguishes the two providers by payload shape:
// Paystack sends event "charge.success" with a nested reference;
// Flutterwave sends one of a small event set with a numeric
// transaction id. The callback's own success claim is never trusted;
// callers must verify against the gateway API.
func ParseCallback(body []byte) (*Callback, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, status.ErrBadPayload
	}

	if env.Event == "charge.success" && env.Data.Reference != "" {
		return &Callback{
			Provider:  ProviderPaystack,
			Reference: env.Data.Reference,
			VerifyKey: env.Data.Reference,
		}, nil
	}

	event := env.Event
	if event == "" {
		event = env.EventType
	}
	if flutterwaveEvents[event] && env.Data.ID.String() != "" {
		if _, err := strconv.ParseInt(env.Data.ID.String(), 10, 64); err != nil {
			return nil, status.ErrBadPayload
		}
		if env.Data.TxRef == "" {
			return nil, status.ErrBadPayload
		}
		return &Callback{
			Provider:  ProviderFlutterwave,
			Reference: env.Data.TxRef,
			VerifyKey: env.Data.ID.String(),
		}, nil
	}

	return nil, status.ErrBadPayload
}
