// Package flutterwave implements the Flutterwave hosted-payment gateway.
package flutterwave

import (
	"context"

	"ticketbot/internal/gateway"
)

type Flutterwave struct {
	client *Client
}

var _ gateway.Gateway = (*Flutterwave)(nil)

func New(cfg *Config) *Flutterwave {
	return &Flutterwave{client: newClient(cfg)}
}

func (f *Flutterwave) Provider() gateway.Provider { return gateway.ProviderFlutterwave }

func (f *Flutterwave) RefPrefix() string { return "FLW" }

func (f *Flutterwave) CreatePaymentLink(ctx context.Context, req *gateway.PaymentLinkRequest) (*gateway.PaymentLink, error) {
	form := &paymentForm{
		TxRef:       req.Reference,
		Amount:      req.Amount,
		Currency:    req.Currency,
		RedirectURL: req.RedirectURL,
	}
	form.Customer.Email = req.Email
	form.Customer.Phone = req.Phone
	form.Customer.Name = "Customer"
	form.Customizations.Title = "Event Ticket Payment"
	form.Customizations.Description = "Pay for your event ticket"

	url, err := f.client.createPayment(ctx, form)
	if err != nil {
		return nil, err
	}
	return &gateway.PaymentLink{URL: url, Reference: req.Reference}, nil
}

func (f *Flutterwave) VerifyPayment(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	paid, amount, currency, txRef, err := f.client.verifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txRef == "" {
		txRef = reference
	}
	return &gateway.VerifyResult{
		Reference: txRef,
		Paid:      paid,
		Amount:    amount,
		Currency:  currency,
	}, nil
}

func (f *Flutterwave) HealthCheck(ctx context.Context) error {
	return f.client.healthProbe(ctx)
}
