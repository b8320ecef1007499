package activity

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/certbind/internal/acmeclient"
	secrets "github.com/edvin/certbind/internal/crypto"
	"github.com/edvin/certbind/internal/hosting"
	"github.com/edvin/certbind/internal/metrics"
	"github.com/edvin/certbind/internal/model"
	"github.com/edvin/certbind/internal/pki"
	"github.com/edvin/certbind/internal/poll"
)

// ACMESession is one authenticated conversation with the ACME authority.
// *acmeclient.Session satisfies it.
type ACMESession interface {
	CreateOrder(domain string) (model.OrderInfo, error)
	GetOrder(orderURL string) (model.OrderInfo, error)
	GetAuthorization(authzURL string) (model.Authorization, error)
	AcceptChallenge(challengeURL string) error
	Finalize(orderURL, finalizeURL string, csr []byte) (model.OrderInfo, error)
	DownloadCertificate(certURL string) ([]byte, error)
}

// Bundler packages an issued certificate. *pki.Bundler satisfies it.
type Bundler interface {
	Bundle(ctx context.Context, certPEM []byte, key crypto.Signer, password string) (*pki.Bundle, error)
}

// Installer uploads a certificate bundle. *hosting.Client satisfies it.
type Installer interface {
	InstallCertificate(ctx context.Context, cert hosting.Certificate) (*hosting.InstalledCertificate, error)
}

// ACME contains the activities that talk to the certificate authority.
type ACME struct {
	sessions    func(ctx context.Context) (ACMESession, error)
	bundler     Bundler
	installer   Installer
	pfxPassword string
	logger      zerolog.Logger
	heartbeat   func(ctx context.Context, step string)
}

// NewACME creates the ACME activities around an acmeclient.Client.
func NewACME(client *acmeclient.Client, bundler Bundler, installer Installer, pfxPassword string, logger zerolog.Logger) *ACME {
	return &ACME{
		sessions: func(ctx context.Context) (ACMESession, error) {
			s, err := client.Session(ctx)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		bundler:     bundler,
		installer:   installer,
		pfxPassword: pfxPassword,
		logger:      logger.With().Str("component", "acme").Logger(),
	}
}

// CreateOrderParams holds the parameters for CreateOrder.
type CreateOrderParams struct {
	Domain string
}

// CreateOrder discovers the directory, binds the account and submits a new
// order for the domain.
func (a *ACME) CreateOrder(ctx context.Context, params CreateOrderParams) (*model.OrderInfo, error) {
	s, err := a.sessions(ctx)
	if err != nil {
		return nil, err
	}
	order, err := s.CreateOrder(params.Domain)
	if err != nil {
		return nil, err
	}
	a.logger.Info().Str("domain", params.Domain).Str("order", order.URL).Str("status", order.Status).Msg("CreateOrder")
	return &order, nil
}

// GetAuthorizationParams holds the parameters for GetAuthorization.
type GetAuthorizationParams struct {
	URL string
}

// GetAuthorization fetches an authorization with the responses for every
// supported challenge.
func (a *ACME) GetAuthorization(ctx context.Context, params GetAuthorizationParams) (*model.Authorization, error) {
	s, err := a.sessions(ctx)
	if err != nil {
		return nil, err
	}
	authz, err := s.GetAuthorization(params.URL)
	if err != nil {
		return nil, err
	}
	return &authz, nil
}

// AcceptChallengeParams holds the parameters for AcceptChallenge.
type AcceptChallengeParams struct {
	URL string
}

// AcceptChallenge tells the authority the challenge response is published.
func (a *ACME) AcceptChallenge(ctx context.Context, params AcceptChallengeParams) error {
	s, err := a.sessions(ctx)
	if err != nil {
		return err
	}
	return s.AcceptChallenge(params.URL)
}

// IssueCertificateParams holds the parameters for IssueCertificate.
type IssueCertificateParams struct {
	Domain       string
	OrderURL     string
	FinalizeURL  string
	PollInterval time.Duration
	PollMaxWait  time.Duration
}

// IssueCertificateResult describes the installed certificate.
type IssueCertificateResult struct {
	OrderStatus    string
	CertificateURL string
	Thumbprint     string
	NotAfter       time.Time
}

// IssueCertificate generates the key and CSR, finalizes the order, waits for
// the certificate, bundles it and installs it. The private key never leaves
// this activity, so it runs as a single attempt: every failure is terminal
// and typed with its audit event.
func (a *ACME) IssueCertificate(ctx context.Context, params IssueCertificateParams) (*IssueCertificateResult, error) {
	logger := a.logger.With().Str("domain", params.Domain).Logger()

	key, csr, err := pki.Generate(params.Domain)
	if err != nil {
		return nil, terminal(model.EventExceptionThrown, err)
	}

	s, err := a.sessions(ctx)
	if err != nil {
		return nil, terminal(model.EventACMEUnavailable, err)
	}

	a.recordHeartbeat(ctx, "finalize")
	order, err := s.Finalize(params.OrderURL, params.FinalizeURL, csr)
	if err != nil {
		return nil, terminal(model.EventFinalizeInvalid, err)
	}
	if order.Status != model.OrderValid {
		return nil, terminal(model.EventFinalizeInvalid, fmt.Errorf("order %s is %q after finalize", params.OrderURL, order.Status))
	}

	if order.CertificateURL == "" {
		order, err = poll.Until(poll.ContextClock(ctx),
			poll.Options{Interval: params.PollInterval, MaxWait: params.PollMaxWait},
			func() (model.OrderInfo, error) {
				a.recordHeartbeat(ctx, "wait-certificate")
				return s.GetOrder(params.OrderURL)
			},
			func(o model.OrderInfo) bool { return o.CertificateURL != "" || o.Status == model.OrderInvalid },
		)
		switch {
		case errors.Is(err, poll.ErrTimeout):
			return nil, terminal(model.EventCertificateTimeout, fmt.Errorf("certificate for %s: %w", params.Domain, err))
		case err != nil:
			return nil, terminal(model.EventACMEUnavailable, err)
		case order.Status == model.OrderInvalid:
			return nil, terminal(model.EventFinalizeInvalid, fmt.Errorf("order %s became invalid", params.OrderURL))
		}
	}

	a.recordHeartbeat(ctx, "download")
	certPEM, err := s.DownloadCertificate(order.CertificateURL)
	if err != nil {
		return nil, terminal(model.EventDownloadFailed, err)
	}

	a.recordHeartbeat(ctx, "bundle")
	bundle, err := a.bundler.Bundle(ctx, certPEM, key, a.pfxPassword)
	if err != nil {
		return nil, terminal(model.EventBundleFailed, err)
	}

	a.recordHeartbeat(ctx, "install")
	installed, err := a.installer.InstallCertificate(ctx, hosting.Certificate{
		Hostname: params.Domain,
		PFX:      bundle.PFX,
		Password: a.pfxPassword,
	})
	if err != nil {
		logger.Error().Err(err).Msg("certificate install failed")
		return nil, terminal(model.EventInstallFailed, err)
	}

	thumbprint := installed.Thumbprint
	if thumbprint == "" {
		thumbprint = secrets.Thumbprint(bundle.Leaf.Raw)
	}
	metrics.CertificatesIssued.Inc()
	logger.Info().Str("thumbprint", thumbprint).Time("not_after", bundle.Leaf.NotAfter).Msg("certificate installed")

	return &IssueCertificateResult{
		OrderStatus:    order.Status,
		CertificateURL: order.CertificateURL,
		Thumbprint:     thumbprint,
		NotAfter:       bundle.Leaf.NotAfter,
	}, nil
}

// recordHeartbeat reports progress of IssueCertificate with the step name as
// the heartbeat detail.
func (a *ACME) recordHeartbeat(ctx context.Context, step string) {
	if a.heartbeat != nil {
		a.heartbeat(ctx, step)
		return
	}
	activity.RecordHeartbeat(ctx, step)
}

// terminal marks err as not retryable with the audit event as its type.
func terminal(event string, err error) error {
	return temporal.NewNonRetryableApplicationError(err.Error(), event, err)
}
