package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/carrier"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/shipment"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/shipping"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", false)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal().Err(err).Msg("db migrate")
		}
	}

	sqlDB, err := db.OpenSQL(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("open schema check handle")
	}
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(1)

	probes := []httpapi.Probe{
		{Name: "postgres", Check: pool.Ping},
		{Name: "schema", Check: func(ctx context.Context) error { return db.CheckSchema(ctx, sqlDB) }},
	}

	// --- Carrier ---
	client, err := carrier.NewClient(carrier.Config{
		BaseURL:     cfg.CarrierBaseURL,
		APIToken:    cfg.CarrierAPIToken,
		B2BBaseURL:  cfg.CarrierB2BBaseURL,
		B2BUsername: cfg.CarrierB2BUsername,
		B2BPassword: cfg.CarrierB2BPassword,
		Timeout:     cfg.CarrierTimeout,
	}, logger, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("carrier client")
	}

	var tokens carrier.TokenStore = carrier.NewMemoryTokenStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		tokens = carrier.NewRedisTokenStore(rdb, "")
		probes = append(probes, httpapi.Probe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	auth := carrier.NewAuthCache(client, tokens, cfg.CarrierTokenTTL)
	freight := carrier.NewB2BClient(client, auth)

	// --- Notifications ---
	publisher, closeTransport := mustPublisher(cfg, logger)
	defer closeTransport()
	defer publisher.Close()
	notifier := events.NewDispatcher(publisher, sequence.NewRepository(pool), "", logger)

	// --- Domain ---
	resolver := shipping.NewResolver(client, freight, shipping.FallbackCharges{
		COD:     cfg.FallbackCOD,
		Prepaid: cfg.FallbackPrepaid,
	}, logger, m)
	estimator := shipping.NewEstimator(client, logger)

	beginner := db.NewPoolBeginner(pool)
	carts := cart.NewPostgresRepository()
	pending := order.NewPostgresPendingRepository()
	orders := order.NewPostgresRepository()
	ledger := inventory.NewLedger(inventory.NewPostgresRepository(), logger)

	checkout := order.NewCheckout(pool, carts, pending, resolver, estimator, notifier, order.CheckoutConfig{
		WarehousePin: cfg.WarehousePin,
		TaxRate:      cfg.TaxRate,
		CodeTTL:      cfg.VerificationCodeTTL,
	}, logger)
	finalizer := order.NewFinalizer(beginner, pending, orders, ledger, carts, notifier, logger, m)
	editor := shipment.NewEditor(beginner, orders, client, cfg.CarrierEditDemoFallback, logger)

	// --- HTTP ---
	h := httpapi.NewHandler(checkout, finalizer, resolver, estimator, editor)
	r := httpapi.NewRouter(h, &httpapi.HealthHandler{Probes: probes}, logger, m)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	cancel()

	logger.Info().Msg("shutdown complete")
}

// mustPublisher builds the notification transport named by NOTIFY_BACKEND.
// The returned func closes the underlying connection, if any.
func mustPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, func()) {
	switch cfg.NotifyBackend {
	case config.NotifyRabbitMQ:
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbitmq dial")
		}
		pub, err := events.NewRabbitPublisher(conn)
		if err != nil {
			_ = conn.Close()
			logger.Fatal().Err(err).Msg("rabbitmq publisher")
		}
		logger.Info().Str("exchange", events.EventsExchange).Msg("notifications via rabbitmq")
		return pub, func() { _ = conn.Close() }
	case config.NotifyKafka:
		logger.Info().Str("topic", cfg.KafkaTopic).Msg("notifications via kafka")
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), func() {}
	default:
		logger.Warn().Msg("notifications are logged only; no buyer will receive verification codes")
		return events.NewLogPublisher(logger), func() {}
	}
}
