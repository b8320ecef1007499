package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/certbind/internal/acmeclient"
	"github.com/edvin/certbind/internal/activity"
	"github.com/edvin/certbind/internal/audit"
	"github.com/edvin/certbind/internal/challenge"
	"github.com/edvin/certbind/internal/config"
	secrets "github.com/edvin/certbind/internal/crypto"
	"github.com/edvin/certbind/internal/db"
	"github.com/edvin/certbind/internal/hosting"
	"github.com/edvin/certbind/internal/logging"
	"github.com/edvin/certbind/internal/metrics"
	"github.com/edvin/certbind/internal/pki"
	"github.com/edvin/certbind/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	sealingKey, err := secrets.ParseKey(cfg.ACMEAccountKeySecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid ACME_ACCOUNT_KEY_SECRET")
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

	w := worker.New(tc, cfg.TemporalTaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	// Register activities
	acmeClient := acmeclient.New(acmeclient.Config{
		DirectoryURL: cfg.ACMEDirectoryURL,
		Email:        cfg.ACMEEmail,
	}, acmeclient.NewPostgresAccountStore(pool, sealingKey))
	hostingClient := hosting.NewClient(cfg.HostingAPIURL, cfg.HostingAPIToken, cfg.HostingAppID)

	w.RegisterActivity(activity.NewACME(acmeClient, pki.NewBundler(nil), hostingClient, cfg.PFXPassword, logger))
	w.RegisterActivity(activity.NewChallenges(challenges, logger))
	w.RegisterActivity(activity.NewOrders(pool, logger))
	w.RegisterActivity(activity.NewAudit(audit.NewPostgresSink(pool), logger))

	// Register workflows
	w.RegisterWorkflow(workflow.IssueCertificateWorkflow)
	w.RegisterWorkflow(workflow.PurgeExpiredChallengesWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, pool.Ping)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", cfg.TemporalTaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Errors for already-existing schedules are ignored so that re-deploys
	// do not fail.
	registerCronSchedules(ctx, tc, cfg.TemporalTaskQueue, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

type cronSchedule struct {
	id       string
	cron     string
	workflow any
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, taskQueue string, logger zerolog.Logger) {
	schedules := []cronSchedule{
		{
			id:       workflow.PurgeScheduleID,
			cron:     workflow.PurgeCron,
			workflow: workflow.PurgeExpiredChallengesWorkflow,
		},
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				TaskQueue: taskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}
