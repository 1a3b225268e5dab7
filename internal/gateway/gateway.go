package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider represents the external payment services.
type Provider string

const (
	ProviderPaystack    Provider = "paystack"
	ProviderFlutterwave Provider = "flutterwave"
)

func (p Provider) Valid() bool {
	return p == ProviderPaystack || p == ProviderFlutterwave
}

// PaymentLinkRequest is a generic hosted-checkout request. Amount is in
// major units; each gateway converts to its own encoding.
type PaymentLinkRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email"`
	Reference   string          `json:"reference"`
	RedirectURL string          `json:"redirect_url,omitempty"`
}

// PaymentLink is the hosted checkout page handed to the buyer.
type PaymentLink struct {
	URL       string `json:"url"`
	Reference string `json:"reference"`
}

// VerifyResult is the gateway's own answer about a transaction, fetched
// server side. Callback payloads are never trusted without it.
type VerifyResult struct {
	Reference string          `json:"reference"`
	Paid      bool            `json:"paid"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// Gateway is the common interface for the interchangeable payment
// providers.
type Gateway interface {
	// Provider returns the gateway's provider name.
	Provider() Provider

	// RefPrefix returns the prefix used for references routed to this
	// gateway ("PSK", "FLW").
	RefPrefix() string

	// CreatePaymentLink requests a hosted checkout link.
	CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLink, error)

	// VerifyPayment checks a transaction's status against the gateway API.
	VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error)

	// HealthCheck issues a lightweight probe request.
	HealthCheck(ctx context.Context) error
}
