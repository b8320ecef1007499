package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/certbind/internal/api"
	"github.com/edvin/certbind/internal/audit"
	"github.com/edvin/certbind/internal/challenge"
	"github.com/edvin/certbind/internal/config"
	"github.com/edvin/certbind/internal/core"
	"github.com/edvin/certbind/internal/db"
	"github.com/edvin/certbind/internal/domain"
	"github.com/edvin/certbind/internal/hosting"
	"github.com/edvin/certbind/internal/logging"
	"github.com/edvin/certbind/internal/metrics"
	"github.com/edvin/certbind/internal/workflow"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, pool)

	challenges, redisClient, err := challenge.Open(ctx, cfg, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open challenge store")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	dialOpts := temporalclient.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.NewTemporalLogger(logger),
	}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	hostingClient := hosting.NewClient(cfg.HostingAPIURL, cfg.HostingAPIToken, cfg.HostingAppID)
	services := &core.Services{
		Domain: core.NewDomainService(
			domain.NewValidator(cfg.ReservedHostname),
			hostingClient,
			tc,
			cfg.TemporalTaskQueue,
			workflow.IssueCertificateParams{
				SettleDelay:  cfg.SettleDelay,
				PollInterval: cfg.PollInterval,
				PollMaxWait:  cfg.PollMaxWait,
			},
			logger,
		),
		Order: core.NewOrderService(pool, audit.NewPostgresSink(pool)),
	}

	checks := []api.ReadyCheck{
		{Name: "db", Check: pool.Ping},
		{Name: "temporal", Check: func(ctx context.Context) error {
			_, err := tc.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
			return err
		}},
	}
	if redisClient != nil {
		checks = append(checks, api.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	srv := api.NewServer(logger, services, challenges, checks...)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
