package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbot/internal/status"
)

func TestParseCallbackPaystack(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"PSK-abc123","amount":500000}}`)

	cb, err := ParseCallback(body)
	require.NoError(t, err)
	assert.Equal(t, ProviderPaystack, cb.Provider)
	assert.Equal(t, "PSK-abc123", cb.Reference)
	assert.Equal(t, "PSK-abc123", cb.VerifyKey)
}

func TestParseCallbackFlutterwave(t *testing.T) {
	body := []byte(`{"event":"charge.completed","data":{"id":4094001,"tx_ref":"FLW-def456","status":"successful"}}`)

	cb, err := ParseCallback(body)
	require.NoError(t, err)
	assert.Equal(t, ProviderFlutterwave, cb.Provider)
	assert.Equal(t, "FLW-def456", cb.Reference)
	assert.Equal(t, "4094001", cb.VerifyKey)
}

func TestParseCallbackFlutterwaveEventType(t *testing.T) {
	body := []byte(`{"event.type":"BANK_TRANSFER_TRANSACTION","data":{"id":777,"tx_ref":"FLW-bank1"}}`)

	cb, err := ParseCallback(body)
	require.NoError(t, err)
	assert.Equal(t, ProviderFlutterwave, cb.Provider)
	assert.Equal(t, "FLW-bank1", cb.Reference)
	assert.Equal(t, "777", cb.VerifyKey)
}

func TestParseCallbackRejectsUnknownShapes(t *testing.T) {
	for name, body := range map[string][]byte{
		"not json":              []byte(`not json at all`),
		"unknown event":         []byte(`{"event":"invoice.created","data":{"reference":"x"}}`),
		"paystack no reference": []byte(`{"event":"charge.success","data":{}}`),
		"flutterwave no tx_ref": []byte(`{"event":"charge.completed","data":{"id":123}}`),
		"flutterwave bad id":    []byte(`{"event":"charge.completed","data":{"id":"abc","tx_ref":"FLW-x"}}`),
		"empty":                 []byte(`{}`),
	} {
		_, err := ParseCallback(body)
		assert.ErrorIs(t, err, status.ErrBadPayload, name)
	}
}

func TestProviderValid(t *testing.T) {
	assert.True(t, ProviderPaystack.Valid())
	assert.True(t, ProviderFlutterwave.Valid())
	assert.False(t, Provider("stripe").Valid())
}
