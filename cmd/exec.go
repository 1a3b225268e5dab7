package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"

	"ticketbot/config"
	"ticketbot/internal/gateway"
	"ticketbot/internal/gateway/flutterwave"
	"ticketbot/internal/gateway/paystack"
	"ticketbot/internal/handlers"
	"ticketbot/internal/services"
	_ "ticketbot/migrations"
	"ticketbot/utils"
)

func Start() error {
	app := pocketbase.New()
	cfg := config.LoadConfig()

	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUUID))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	} else {
		slog.Warn("pubnub keys not configured, outbound push delivery disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paystackGW := paystack.New(&paystack.Config{
		BaseURL:   cfg.PaystackBaseURL,
		SecretKey: cfg.PaystackSecretKey,
		Timeout:   cfg.GatewayTimeout,
	})
	flutterwaveGW := flutterwave.New(&flutterwave.Config{
		BaseURL:   cfg.FlutterwaveBaseURL,
		SecretKey: cfg.FlutterwaveSecretKey,
		Timeout:   cfg.GatewayTimeout,
	})

	registry := gateway.NewRegistry()
	registry.Register(paystackGW)
	registry.Register(flutterwaveGW)

	// Services
	messenger := services.NewMessenger(pn)
	directory := services.NewDirectoryService(app)
	catalog := services.NewCatalogService(app)
	carts := services.NewCartService(app, cfg.CartTTL)
	onboarding := services.NewOnboardingService(app, directory, cfg)
	payments := services.NewPaymentService(app, redisClient, registry, cfg)
	tickets := services.NewTicketService(app, redisClient, carts, messenger, cfg)
	bot := services.NewBotService(directory, onboarding, catalog, carts, payments, tickets, cfg)
	reconciler := services.NewReconciler(app, payments, tickets, carts, registry,
		cfg.ReconcileInterval, cfg.ReconcileWindow)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(bot)
	callbackHandler := handlers.NewCallbackHandler(payments, tickets, registry, paystackGW)
	gateHandler := handlers.NewGateHandler(tickets)
	adminHandler := handlers.NewAdminHandler(app, reconciler, cfg)

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		go reconciler.Run(ctx)

		// Chat + payment surface
		e.Router.POST("/webhook", webhookHandler.Handle)
		e.Router.POST("/payment-callback", callbackHandler.Handle)

		// Gate surface
		e.Router.GET("/verify/{code}", gateHandler.Verify)
		e.Router.POST("/scan/{code}", gateHandler.Scan)

		// Admin surface
		e.Router.GET("/admin/reconcile-pending", adminHandler.ReconcilePending)
		e.Router.GET("/admin/stats", adminHandler.Stats)

		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupEventHooks(app)

		return e.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// setupEventHooks keeps derived state in line with record changes.
func setupEventHooks(app *pocketbase.PocketBase) {
	// The first ticket type for an event is what makes it sellable;
	// open sales as soon as one exists.
	app.OnRecordAfterCreateSuccess("ticket_types").BindFunc(func(e *core.RecordEvent) error {
		eventID := e.Record.GetString("event")
		ev, err := e.App.FindRecordById("events", eventID)
		if err != nil {
			slog.Error("ticket_types hook: event lookup failed", "event", eventID, "error", err)
			return e.Next()
		}
		if !ev.GetBool("ticket_sales_open") {
			ev.Set("ticket_sales_open", true)
			if err := e.App.Save(ev); err != nil {
				slog.Error("ticket_types hook: open sales failed", "event", eventID, "error", err)
			} else {
				slog.Info("ticket sales opened", "event", eventID)
			}
		}
		return e.Next()
	})
}

func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("shutdown signal received", "signal", sig)
	cancel()
}
