package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/georgemunganga/printa-pos/internal/config"
	"github.com/georgemunganga/printa-pos/internal/modules/auth"
	"github.com/georgemunganga/printa-pos/internal/modules/inventory"
	"github.com/georgemunganga/printa-pos/internal/modules/payment"
	"github.com/georgemunganga/printa-pos/internal/modules/reconciler"
	"github.com/georgemunganga/printa-pos/internal/modules/sales"
	"github.com/georgemunganga/printa-pos/internal/modules/tax"
	"github.com/georgemunganga/printa-pos/internal/platform/database"
	"github.com/georgemunganga/printa-pos/internal/platform/logging"
	"github.com/georgemunganga/printa-pos/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const serviceName = "printa-pos"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server and payment event consumer",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc := cfg.Location()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		return err
	}
	logging.Log(logging.Fields{Service: serviceName, Step: "startup", Message: "database ready"})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", metrics.Handler())

	// ── Suspended transactions ──────────────────────────────
	registry := sales.NewMemoryRegistry()
	if cfg.SuspendedStore == "redis" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		registry = sales.NewRedisRegistry(rdb)
	}

	// ── Sales saga ──────────────────────────────────────────
	taxService := tax.NewService(tax.NewPostgresRepository(db))
	salesService := sales.NewService(
		sales.NewPostgresRepository(db),
		registry,
		taxService,
		inventory.NewHTTPGateway(cfg.InventoryServiceURL, cfg.GatewayTimeout, m),
		payment.NewHTTPGateway(cfg.PaymentServiceURL, cfg.GatewayTimeout, m),
		sales.Options{
			Location:                   loc,
			Payment:                    cfg.Payment,
			CompensateOnPaymentFailure: cfg.CompensateOnPaymentFailure,
			Metrics:                    m,
		},
	)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))
		sales.NewHandler(salesService, loc).RegisterRoutes(r)
	})

	// ── Payment reconciliation ──────────────────────────────
	if cfg.KafkaConsumerEnabled {
		consumer := reconciler.NewConsumer(
			reconciler.NewReader(cfg.KafkaBrokers, cfg.KafkaPaymentTopic, cfg.KafkaPaymentGroupID),
			reconciler.New(salesService, loc, m),
		)
		defer consumer.Close()
		go consumer.Run(ctx)
	}

	// ── Start Server ─────────────────────────────────────────
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logging.Log(logging.Fields{Service: serviceName, Step: "startup", Message: "listening on :" + cfg.Port})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Log(logging.Fields{Service: serviceName, Step: "shutdown", Message: "shutting down"})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
