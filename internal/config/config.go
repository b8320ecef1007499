package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Challenge store backends.
const (
	ChallengeStorePostgres = "postgres"
	ChallengeStoreRedis    = "redis"
)

type Config struct {
	DatabaseURL    string `env:"DATABASE_URL"`
	HTTPListenAddr string `env:"HTTP_LISTEN_ADDR" envDefault:":8090"`
	MetricsAddr    string `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName    string `env:"SERVICE_NAME" envDefault:"certbind"`

	TemporalAddress       string `env:"TEMPORAL_ADDRESS" envDefault:"localhost:7233"`
	TemporalNamespace     string `env:"TEMPORAL_NAMESPACE" envDefault:"default"`
	TemporalTaskQueue     string `env:"TEMPORAL_TASK_QUEUE" envDefault:"certbind-tasks"`
	TemporalTLSCert       string `env:"TEMPORAL_TLS_CERT"`
	TemporalTLSKey        string `env:"TEMPORAL_TLS_KEY"`
	TemporalTLSCACert     string `env:"TEMPORAL_TLS_CA_CERT"`
	TemporalTLSServerName string `env:"TEMPORAL_TLS_SERVER_NAME"`

	ACMEDirectoryURL string `env:"ACME_DIRECTORY_URL" envDefault:"https://acme-v02.api.letsencrypt.org/directory"`
	ACMEEmail        string `env:"ACME_EMAIL"`
	// ACMEAccountKeySecret is a base64 encoded 32-byte key that seals the
	// ACME account key at rest.
	ACMEAccountKeySecret string `env:"ACME_ACCOUNT_KEY_SECRET"`
	PFXPassword          string `env:"PFX_PASSWORD"`

	HostingAPIURL   string `env:"HOSTING_API_URL"`
	HostingAPIToken string `env:"HOSTING_API_TOKEN"`
	HostingAppID    string `env:"HOSTING_APP_ID"`

	ReservedHostname string `env:"RESERVED_HOSTNAME" envDefault:"mfork.azurewebsites.net"`

	ChallengeStore string        `env:"CHALLENGE_STORE" envDefault:"postgres"`
	ChallengeTTL   time.Duration `env:"CHALLENGE_TTL" envDefault:"1h"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	SettleDelay  time.Duration `env:"SETTLE_DELAY" envDefault:"10s"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	PollMaxWait  time.Duration `env:"POLL_MAX_WAIT" envDefault:"300s"`
}

// Load reads an optional .env file and then parses the environment.
// Variables already present in the environment win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that every variable the given role depends on is set.
// Roles are "api" and "worker".
func (c *Config) Validate(role string) error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	require("DATABASE_URL", c.DatabaseURL)
	require("TEMPORAL_ADDRESS", c.TemporalAddress)

	switch role {
	case "api":
		require("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
		require("HOSTING_API_URL", c.HostingAPIURL)
		require("HOSTING_APP_ID", c.HostingAppID)
	case "worker":
		require("ACME_DIRECTORY_URL", c.ACMEDirectoryURL)
		require("ACME_EMAIL", c.ACMEEmail)
		require("ACME_ACCOUNT_KEY_SECRET", c.ACMEAccountKeySecret)
		require("PFX_PASSWORD", c.PFXPassword)
		require("HOSTING_API_URL", c.HostingAPIURL)
		require("HOSTING_APP_ID", c.HostingAppID)
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		errs = append(errs, errors.New("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set"))
	}
	switch c.ChallengeStore {
	case ChallengeStorePostgres:
	case ChallengeStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when CHALLENGE_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("CHALLENGE_STORE must be %q or %q, got %q", ChallengeStorePostgres, ChallengeStoreRedis, c.ChallengeStore))
	}
	if c.PollInterval <= 0 || c.PollMaxWait < c.PollInterval {
		errs = append(errs, errors.New("POLL_INTERVAL must be positive and no larger than POLL_MAX_WAIT"))
	}

	return errors.Join(errs...)
}
