package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(4)
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.Regexp(t, `^[0-9A-F]+$`, code)
}

func TestTicketCodeShape(t *testing.T) {
	code := TicketCode()
	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, code)
	assert.NotEqual(t, code, TicketCode())
}

func TestPaymentRefShape(t *testing.T) {
	ref := PaymentRef("PSK")
	assert.Regexp(t, `^PSK-[0-9a-f]{16}$`, ref)

	ref = PaymentRef("FLW")
	assert.Regexp(t, `^FLW-[0-9a-f]{16}$`, ref)
}

func TestRandomSuffix(t *testing.T) {
	s, err := RandomSuffix(3)
	require.NoError(t, err)
	assert.Len(t, s, 3)
	assert.Regexp(t, `^[A-Z0-9]+$`, s)
}

func TestHmac512RoundTrip(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	key := []byte("secret")

	sig := Hmac512(body, key)
	assert.Len(t, sig, 128)
	assert.True(t, HmacEqual(sig, Hmac512(body, key)))
	assert.False(t, HmacEqual(sig, Hmac512([]byte("tampered"), key)))
	assert.False(t, HmacEqual(sig, Hmac512(body, []byte("wrong key"))))
}

func TestBcryptHashRoundTrip(t *testing.T) {
	hash, err := GenerateHash("admin-secret")
	require.NoError(t, err)

	assert.True(t, CompareHash(hash, "admin-secret"))
	assert.False(t, CompareHash(hash, "wrong"))
	assert.False(t, CompareHash("not-a-hash", "admin-secret"))
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker("test")

	res, err := cb.Execute(context.Background(), func() (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test")
	boom := errors.New("gateway down")

	for i := 0; i < 20; i++ {
		_, _ = cb.Execute(context.Background(), func() (any, error) {
			return nil, boom
		})
	}

	assert.Equal(t, StateOpen, cb.State())

	_, err := cb.Execute(context.Background(), func() (any, error) {
		t.Fatal("must not be called while open")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
