// Package paystack implements the Paystack hosted-checkout gateway.
// Paystack encodes amounts in kobo and signs webhook deliveries with an
// HMAC-SHA512 over the raw payload bytes.
package paystack

import (
	"context"

	"github.com/shopspring/decimal"

	"ticketbot/internal/gateway"
	"ticketbot/utils"
)

// minorUnitFactor converts major currency units to kobo.
const minorUnitFactor = 100

type Paystack struct {
	client *Client
}

var _ gateway.Gateway = (*Paystack)(nil)

func New(cfg *Config) *Paystack {
	return &Paystack{client: newClient(cfg)}
}

func (p *Paystack) Provider() gateway.Provider { return gateway.ProviderPaystack }

func (p *Paystack) RefPrefix() string { return "PSK" }

func (p *Paystack) CreatePaymentLink(ctx context.Context, req *gateway.PaymentLinkRequest) (*gateway.PaymentLink, error) {
	url, err := p.client.initializeTransaction(ctx, &initializeForm{
		Email:       req.Email,
		AmountKobo:  req.Amount.Mul(decimal.NewFromInt(minorUnitFactor)).Round(0).IntPart(),
		Reference:   req.Reference,
		CallbackURL: req.RedirectURL,
	})
	if err != nil {
		return nil, err
	}
	return &gateway.PaymentLink{URL: url, Reference: req.Reference}, nil
}

func (p *Paystack) VerifyPayment(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	paid, amount, currency, err := p.client.verifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	return &gateway.VerifyResult{
		Reference: reference,
		Paid:      paid,
		Amount:    amount,
		Currency:  currency,
	}, nil
}

func (p *Paystack) HealthCheck(ctx context.Context) error {
	return p.client.healthProbe(ctx)
}

// VerifySignature recomputes the HMAC-SHA512 over the raw webhook body
// and compares it to the delivery header in constant time.
func (p *Paystack) VerifySignature(body []byte, signatureHeader string) bool {
	if signatureHeader == "" || p.client.secretKey == "" {
		return false
	}
	expected := utils.Hmac512(body, []byte(p.client.secretKey))
	return utils.HmacEqual(expected, signatureHeader)
}
