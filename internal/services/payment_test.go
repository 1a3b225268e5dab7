package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbot/config"
	"ticketbot/internal/gateway"
	"ticketbot/internal/gateway/flutterwave"
	"ticketbot/internal/gateway/paystack"
	"ticketbot/internal/status"
	"ticketbot/models"
)

func testConfig() *config.Config {
	return &config.Config{
		HealthTimeout:  time.Second,
		HealthCacheTTL: 60 * time.Second,
		GatewayTimeout: time.Second,
		PublicURL:      "http://localhost:8090",
	}
}

func TestMenuProvider(t *testing.T) {
	p, ok := MenuProvider("1")
	require.True(t, ok)
	assert.Equal(t, gateway.ProviderFlutterwave, p)

	p, ok = MenuProvider(" 2 ")
	require.True(t, ok)
	assert.Equal(t, gateway.ProviderPaystack, p)

	_, ok = MenuProvider("3")
	assert.False(t, ok)
}

func TestGatewayHealthyCacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("health:gateway:paystack").SetVal("ok")

	registry := gateway.NewRegistry()
	registry.Register(paystack.New(&paystack.Config{BaseURL: "http://unreachable.invalid"}))

	svc := NewPaymentService(nil, rdb, registry, testConfig())
	assert.True(t, svc.GatewayHealthy(context.Background(), gateway.ProviderPaystack))
	assert.NoError(t, mock.ExpectationsWereMet(), "no probe on cache hit")
}

func TestGatewayHealthyCachedDown(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("health:gateway:flutterwave").SetVal("down")

	registry := gateway.NewRegistry()
	registry.Register(flutterwave.New(&flutterwave.Config{BaseURL: "http://unreachable.invalid"}))

	svc := NewPaymentService(nil, rdb, registry, testConfig())
	assert.False(t, svc.GatewayHealthy(context.Background(), gateway.ProviderFlutterwave))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGatewayHealthyProbeOnMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("health:gateway:flutterwave").RedisNil()
	mock.ExpectSet("health:gateway:flutterwave", "ok", 60*time.Second).SetVal("OK")

	registry := gateway.NewRegistry()
	registry.Register(flutterwave.New(&flutterwave.Config{BaseURL: srv.URL}))

	svc := NewPaymentService(nil, rdb, registry, testConfig())
	assert.True(t, svc.GatewayHealthy(context.Background(), gateway.ProviderFlutterwave))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateHealthCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectDel("health:gateway:flutterwave", "health:gateway:paystack").SetVal(2)

	svc := NewPaymentService(nil, rdb, gateway.NewRegistry(), testConfig())
	svc.InvalidateHealthCache(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryFallbackIsTheOtherGateway(t *testing.T) {
	registry := gateway.NewRegistry()
	registry.Register(paystack.New(&paystack.Config{}))
	registry.Register(flutterwave.New(&flutterwave.Config{}))

	alt, err := registry.Fallback(gateway.ProviderPaystack)
	require.NoError(t, err)
	assert.Equal(t, gateway.ProviderFlutterwave, alt.Provider())

	alt, err = registry.Fallback(gateway.ProviderFlutterwave)
	require.NoError(t, err)
	assert.Equal(t, gateway.ProviderPaystack, alt.Provider())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, isTransient(errors.New("database is locked")))
	assert.True(t, isTransient(fmt.Errorf("write: %w", errors.New("connection reset by peer"))))

	assert.False(t, isTransient(nil))
	assert.False(t, isTransient(errors.New("validation failed: status is invalid")))
}

func TestUpdateStatusPaidIsSticky(t *testing.T) {
	app := newTestApp(t)
	ev, tt := seedCatalog(t, app)
	seedPendingTransaction(t, app, ev, tt, "PSK-sticky1")

	rdb, _ := redismock.NewClientMock()
	svc := NewPaymentService(app, rdb, gateway.NewRegistry(), testConfig())
	ctx := context.Background()

	tx, changed, err := svc.UpdateStatus(ctx, "PSK-sticky1", models.TxStatusPaid)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.TxStatusPaid, tx.Status)

	tx, changed, err = svc.UpdateStatus(ctx, "PSK-sticky1", models.TxStatusPaid)
	require.NoError(t, err)
	assert.False(t, changed, "duplicate callback must be a no-op")
	assert.Equal(t, models.TxStatusPaid, tx.Status)

	tx, changed, err = svc.UpdateStatus(ctx, "PSK-sticky1", models.TxStatusFailed)
	require.NoError(t, err)
	assert.False(t, changed, "paid never degrades to failed")
	assert.Equal(t, models.TxStatusPaid, tx.Status)

	stored, err := svc.FindByRef("PSK-sticky1")
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusPaid, stored.Status)
}

func TestUpdateStatusUnknownRef(t *testing.T) {
	app := newTestApp(t)

	rdb, _ := redismock.NewClientMock()
	svc := NewPaymentService(app, rdb, gateway.NewRegistry(), testConfig())

	_, _, err := svc.UpdateStatus(context.Background(), "PSK-missing", models.TxStatusPaid)
	assert.ErrorIs(t, err, status.ErrTxNotFound)
}
