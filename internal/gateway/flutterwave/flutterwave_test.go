package flutterwave

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbot/internal/gateway"
)

func TestCreatePaymentLinkKeepsMajorUnits(t *testing.T) {
	var got paymentForm

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments", r.URL.Path)
		require.Equal(t, "Bearer flw_secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]any{"link": "https://checkout.flutterwave.com/pay/xyz"},
		})
	}))
	defer srv.Close()

	f := New(&Config{BaseURL: srv.URL, SecretKey: "flw_secret"})
	link, err := f.CreatePaymentLink(context.Background(), &gateway.PaymentLinkRequest{
		Amount:    decimal.NewFromInt(5000),
		Currency:  "NGN",
		Phone:     "2348012345678",
		Email:     "buyer@example.com",
		Reference: "FLW-ref1",
	})
	require.NoError(t, err)

	assert.True(t, got.Amount.Equal(decimal.NewFromInt(5000)), "no minor-unit conversion, got %s", got.Amount)
	assert.Equal(t, "FLW-ref1", got.TxRef)
	assert.Equal(t, "2348012345678", got.Customer.Phone)
	assert.Equal(t, "https://checkout.flutterwave.com/pay/xyz", link.URL)
}

func TestVerifyPaymentByWebhookID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/4094001/verify", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]any{
				"status":   "successful",
				"tx_ref":   "FLW-ref2",
				"amount":   5000,
				"currency": "NGN",
			},
		})
	}))
	defer srv.Close()

	f := New(&Config{BaseURL: srv.URL, SecretKey: "flw_secret"})
	res, err := f.VerifyPayment(context.Background(), "4094001")
	require.NoError(t, err)

	assert.True(t, res.Paid)
	assert.Equal(t, "FLW-ref2", res.Reference, "verification resolves the numeric id to our reference")
}

func TestVerifyPaymentPendingIsNotPaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]any{"status": "pending", "tx_ref": "FLW-ref3"},
		})
	}))
	defer srv.Close()

	f := New(&Config{BaseURL: srv.URL, SecretKey: "flw_secret"})
	res, err := f.VerifyPayment(context.Background(), "FLW-ref3")
	require.NoError(t, err)
	assert.False(t, res.Paid)
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ping", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(&Config{BaseURL: srv.URL, SecretKey: "flw_secret"})
	assert.NoError(t, f.HealthCheck(context.Background()))
}
