package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbot/internal/gateway"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	p := New(&Config{SecretKey: "sk_test_secret"})
	body := []byte(`{"event":"charge.success","data":{"reference":"PSK-abc"}}`)

	assert.True(t, p.VerifySignature(body, sign("sk_test_secret", body)))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	p := New(&Config{SecretKey: "sk_test_secret"})
	body := []byte(`{"event":"charge.success","data":{"reference":"PSK-abc"}}`)
	header := sign("sk_test_secret", body)

	tampered := []byte(`{"event":"charge.success","data":{"reference":"PSK-xyz"}}`)
	assert.False(t, p.VerifySignature(tampered, header))
}

func TestVerifySignatureRejectsEmptyHeader(t *testing.T) {
	p := New(&Config{SecretKey: "sk_test_secret"})
	assert.False(t, p.VerifySignature([]byte(`{}`), ""))
}

func TestCreatePaymentLinkConvertsToKobo(t *testing.T) {
	var got struct {
		Email      string `json:"email"`
		AmountKobo int64  `json:"amount"`
		Reference  string `json:"reference"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		require.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"authorization_url": "https://checkout.paystack.com/abc"},
		})
	}))
	defer srv.Close()

	p := New(&Config{BaseURL: srv.URL, SecretKey: "sk_test_secret"})
	link, err := p.CreatePaymentLink(context.Background(), &gateway.PaymentLinkRequest{
		Amount:    decimal.NewFromInt(5000),
		Currency:  "NGN",
		Email:     "buyer@example.com",
		Reference: "PSK-ref1",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(500000), got.AmountKobo, "5000 naira is 500000 kobo")
	assert.Equal(t, "PSK-ref1", got.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc", link.URL)
	assert.Equal(t, "PSK-ref1", link.Reference)
}

func TestCreatePaymentLinkGatewayRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid key"})
	}))
	defer srv.Close()

	p := New(&Config{BaseURL: srv.URL, SecretKey: "bad"})
	_, err := p.CreatePaymentLink(context.Background(), &gateway.PaymentLinkRequest{
		Amount:    decimal.NewFromInt(100),
		Reference: "PSK-ref2",
	})
	assert.Error(t, err)
}

func TestVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/verify/PSK-ref3", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"status": "success", "amount": 250000, "currency": "NGN"},
		})
	}))
	defer srv.Close()

	p := New(&Config{BaseURL: srv.URL, SecretKey: "sk"})
	res, err := p.VerifyPayment(context.Background(), "PSK-ref3")
	require.NoError(t, err)

	assert.True(t, res.Paid)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(2500)), "kobo converted back to naira, got %s", res.Amount)
	assert.Equal(t, "NGN", res.Currency)
}

func TestVerifyPaymentNotPaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"status": "abandoned"},
		})
	}))
	defer srv.Close()

	p := New(&Config{BaseURL: srv.URL, SecretKey: "sk"})
	res, err := p.VerifyPayment(context.Background(), "PSK-ref4")
	require.NoError(t, err)
	assert.False(t, res.Paid)
}
