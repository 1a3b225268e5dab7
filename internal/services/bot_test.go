package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbot/internal/gateway"
)

func TestParsePurchase(t *testing.T) {
	name, qty, ok := parsePurchase("VIP 2")
	require.True(t, ok)
	assert.Equal(t, "VIP", name)
	assert.Equal(t, 2, qty)

	name, qty, ok = parsePurchase("Early Bird 10")
	require.True(t, ok)
	assert.Equal(t, "Early Bird", name)
	assert.Equal(t, 10, qty)

	_, _, ok = parsePurchase("VIP")
	assert.False(t, ok)

	_, _, ok = parsePurchase("VIP two")
	assert.False(t, ok)

	_, _, ok = parsePurchase("")
	assert.False(t, ok)

	name, qty, ok = parsePurchase("Table 0")
	require.True(t, ok, "zero parses, the flow rejects it with a message")
	assert.Equal(t, "Table", name)
	assert.Equal(t, 0, qty)
}

func TestFormatNaira(t *testing.T) {
	cases := map[string]string{
		"0":       "0",
		"500":     "500",
		"5000":    "5,000",
		"50000":   "50,000",
		"1234567": "1,234,567",
		"1500.5":  "1,500.50",
		"99.99":   "99.99",
		"-5000":   "-5,000",
	}
	for input, want := range cases {
		d, err := decimal.NewFromString(input)
		require.NoError(t, err)
		assert.Equal(t, want, formatNaira(d), "input %s", input)
	}
}

func TestProviderLabel(t *testing.T) {
	assert.Equal(t, "Paystack", providerLabel(gateway.ProviderPaystack))
	assert.Equal(t, "Flutterwave", providerLabel(gateway.ProviderFlutterwave))
}

func TestOnboardingIntentPhrases(t *testing.T) {
	// The phrases the router recognizes are fixed; keep them in sync with
	// what the welcome message tells users to send.
	assert.Contains(t, onboardingIntents, "create event")
	assert.Contains(t, onboardingIntents, "sell tickets")
	assert.Contains(t, onboardingIntents, "i'm an organizer")
}

func TestFallbackNoticeNamesBothProviders(t *testing.T) {
	msg := fallbackNotice(gateway.ProviderPaystack, gateway.ProviderFlutterwave)
	assert.Contains(t, msg, "Paystack is unavailable")
	assert.Contains(t, msg, "*Flutterwave*", "the charging provider is disclosed")

	msg = fallbackNotice(gateway.ProviderFlutterwave, gateway.ProviderPaystack)
	assert.Contains(t, msg, "Flutterwave is unavailable")
	assert.Contains(t, msg, "*Paystack*")
}
