package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"golang.org/x/sync/singleflight"

	"github.com/edvin/certbind/internal/domain"
	"github.com/edvin/certbind/internal/hosting"
	"github.com/edvin/certbind/internal/platform"
	"github.com/edvin/certbind/internal/workflow"
)

// ErrInvalidDomain is returned for domains that fail validation.
var ErrInvalidDomain = errors.New("invalid domain")

// HostnameBinder binds a customer hostname to the hosted application.
// *hosting.Client satisfies it.
type HostnameBinder interface {
	BindHostname(ctx context.Context, h hosting.Hostname) error
}

// DomainService accepts customer domains: it validates them, binds the
// hostname and starts certificate issuance in the background.
type DomainService struct {
	validator *domain.Validator
	binder    HostnameBinder
	tc        temporalclient.Client
	taskQueue string
	params    workflow.IssueCertificateParams
	group     singleflight.Group
	logger    zerolog.Logger
}

// NewDomainService creates a DomainService. params supplies the timing of
// each started workflow; its Domain is ignored.
func NewDomainService(validator *domain.Validator, binder HostnameBinder, tc temporalclient.Client, taskQueue string, params workflow.IssueCertificateParams, logger zerolog.Logger) *DomainService {
	return &DomainService{
		validator: validator,
		binder:    binder,
		tc:        tc,
		taskQueue: taskQueue,
		params:    params,
		logger:    logger.With().Str("component", "domains").Logger(),
	}
}

// Validate reports whether every domain passes validation.
func (s *DomainService) Validate(domains ...string) bool {
	if len(domains) == 0 {
		return false
	}
	for _, d := range domains {
		if !s.validator.Validate(d) {
			return false
		}
	}
	return true
}

// Submit validates the domain, binds it to the hosted application and starts
// IssueCertificateWorkflow. It returns once the workflow is started; the
// outcome of issuance is only visible in the order state and audit log.
// Concurrent submissions of the same domain share one binding call, and a
// domain whose workflow is already running is not started again.
func (s *DomainService) Submit(ctx context.Context, raw string) error {
	if !s.validator.Validate(raw) {
		return ErrInvalidDomain
	}
	d := domain.Normalize(raw)
	// The shared call must not end when the first caller goes away.
	shared := context.WithoutCancel(ctx)
	_, err, _ := s.group.Do(d, func() (any, error) {
		return nil, s.submit(shared, d)
	})
	return err
}

func (s *DomainService) submit(ctx context.Context, d string) error {
	apex, sub := domain.Split(d)
	err := s.binder.BindHostname(ctx, hosting.Hostname{
		Apex:       apex,
		Subdomain:  sub,
		RecordType: hosting.RecordTypeCName,
	})
	if err != nil {
		if !errors.Is(err, hosting.ErrOwnership) {
			err = fmt.Errorf("%w: %w", hosting.ErrOwnership, err)
		}
		return fmt.Errorf("bind hostname %s: %w", d, err)
	}

	params := s.params
	params.Domain = d
	run, err := s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:                                       platform.CertificateWorkflowID(d),
		TaskQueue:                                s.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflow.IssueCertificateWorkflow, params)
	if temporal.IsWorkflowExecutionAlreadyStartedError(err) {
		s.logger.Info().Str("domain", d).Msg("certificate workflow already running")
		return nil
	}
	if err != nil {
		return fmt.Errorf("start IssueCertificateWorkflow: %w", err)
	}
	s.logger.Info().Str("domain", d).Str("workflow_id", run.GetID()).Str("run_id", run.GetRunID()).Msg("certificate workflow started")
	return nil
}
