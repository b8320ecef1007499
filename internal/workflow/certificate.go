package workflow

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/certbind/internal/activity"
	"github.com/edvin/certbind/internal/model"
	"github.com/edvin/certbind/internal/platform"
	"github.com/edvin/certbind/internal/poll"
)

// DefaultSettleDelay is the pause between publishing a challenge response
// and asking the authority to check it.
const DefaultSettleDelay = 10 * time.Second

// IssueCertificateParams holds the parameters for IssueCertificateWorkflow.
// Zero durations select the defaults.
type IssueCertificateParams struct {
	Domain       string
	SettleDelay  time.Duration
	PollInterval time.Duration
	PollMaxWait  time.Duration
}

func (p IssueCertificateParams) withDefaults() IssueCertificateParams {
	if p.SettleDelay <= 0 {
		p.SettleDelay = DefaultSettleDelay
	}
	if p.PollInterval <= 0 {
		p.PollInterval = poll.DefaultInterval
	}
	if p.PollMaxWait <= 0 {
		p.PollMaxWait = poll.DefaultMaxWait
	}
	return p
}

var defaultActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 2 * time.Minute,
	RetryPolicy: &temporal.RetryPolicy{
		MaximumAttempts:    3,
		InitialInterval:    1 * time.Second,
		MaximumInterval:    10 * time.Second,
		BackoffCoefficient: 2.0,
	},
}

// issueHeartbeatSlack covers the longest stretch between heartbeats outside
// the certificate poll: one bundle step with up to four issuer fetches.
const issueHeartbeatSlack = 3 * time.Minute

// issueActivityOptions runs IssueCertificate once. The key it generates
// cannot survive a retry, so a failed attempt ends the run.
func issueActivityOptions(pollInterval, pollMaxWait time.Duration) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: max(10*time.Minute, pollMaxWait+5*time.Minute),
		HeartbeatTimeout:    2*pollInterval + issueHeartbeatSlack,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}

// IssueCertificateWorkflow obtains a certificate for a domain over ACME
// HTTP-01 and installs it on the hosted application. Any failure ends the run
// and writes exactly one audit record; the run is never retried as a whole.
func IssueCertificateWorkflow(ctx workflow.Context, params IssueCertificateParams) error {
	params = params.withDefaults()
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions)
	logger := workflow.GetLogger(ctx)
	domain := params.Domain

	fail := func(step, event string, err error) error {
		event = auditEvent(err, event)
		var auditID string
		if sErr := workflow.SideEffect(ctx, func(workflow.Context) any {
			return platform.NewID()
		}).Get(&auditID); sErr != nil {
			return sErr
		}
		aErr := workflow.ExecuteActivity(ctx, "RecordAudit", activity.RecordAuditParams{
			ID:     auditID,
			Domain: domain,
			Event:  event,
			Payload: model.AuditPayload{
				Message: err.Error(),
				Type:    errorType(err),
				Step:    step,
			},
		}).Get(ctx, nil)
		if aErr != nil {
			logger.Error("failed to record audit", "domain", domain, "event", event, "error", aErr)
		}
		return temporal.NewNonRetryableApplicationError(err.Error(), event, err)
	}

	recordState := func(s activity.RecordOrderStateParams) error {
		s.Domain = domain
		return workflow.ExecuteActivity(ctx, "RecordOrderState", s).Get(ctx, nil)
	}

	// Step 1: create the order.
	var order model.OrderInfo
	err := workflow.ExecuteActivity(ctx, "CreateOrder", activity.CreateOrderParams{
		Domain: domain,
	}).Get(ctx, &order)
	if err != nil {
		return fail("create-order", model.EventACMEUnavailable, err)
	}
	if err := recordState(activity.RecordOrderStateParams{
		OrderURL:    order.URL,
		Status:      order.Status,
		FinalizeURL: order.FinalizeURL,
	}); err != nil {
		return fail("create-order", model.EventExceptionThrown, err)
	}
	if order.Status == model.OrderInvalid {
		return fail("create-order", model.EventOrderInvalid, fmt.Errorf("order %s for %s is invalid", order.URL, domain))
	}
	if len(order.Authorizations) == 0 {
		return fail("get-authorization", model.EventAuthorizationMissing, fmt.Errorf("order %s has no authorizations", order.URL))
	}

	markInvalid := func() {
		if err := recordState(activity.RecordOrderStateParams{
			OrderURL:    order.URL,
			Status:      model.OrderInvalid,
			FinalizeURL: order.FinalizeURL,
		}); err != nil {
			logger.Warn("failed to record invalid order", "domain", domain, "error", err)
		}
	}

	// Challenge responses are removed however the run ends.
	var tokens []string
	defer func() {
		if len(tokens) == 0 {
			return
		}
		cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
		if err := workflow.ExecuteActivity(cleanupCtx, "DeleteChallenges", tokens).Get(cleanupCtx, nil); err != nil {
			logger.Warn("failed to delete challenges", "domain", domain, "error", err)
		}
	}()

	for _, authzURL := range order.Authorizations {
		// Step 2: fetch the authorization and answer its challenges.
		var authz model.Authorization
		err := workflow.ExecuteActivity(ctx, "GetAuthorization", activity.GetAuthorizationParams{
			URL: authzURL,
		}).Get(ctx, &authz)
		if err != nil {
			return fail("get-authorization", model.EventACMEUnavailable, err)
		}
		if authz.Status == model.AuthzValid {
			continue
		}
		if model.IsTerminalAuthz(authz.Status) {
			markInvalid()
			return fail("get-authorization", model.EventAuthorizationInvalid, fmt.Errorf("authorization %s is %q", authzURL, authz.Status))
		}
		if len(authz.Challenges) == 0 {
			return fail("select-challenge", model.EventChallengeUnsupported, fmt.Errorf("authorization %s offers no supported challenge", authzURL))
		}

		for _, ch := range authz.Challenges {
			err := workflow.ExecuteActivity(ctx, "PutChallenge", activity.PutChallengeParams{
				Token:       ch.Token,
				Value:       ch.Value,
				ContentType: ch.ContentType,
			}).Get(ctx, nil)
			if err != nil {
				return fail("put-challenge", model.EventExceptionThrown, err)
			}
			tokens = append(tokens, ch.Token)

			if err := workflow.Sleep(ctx, params.SettleDelay); err != nil {
				return err
			}

			err = workflow.ExecuteActivity(ctx, "AcceptChallenge", activity.AcceptChallengeParams{
				URL: ch.URL,
			}).Get(ctx, nil)
			if err != nil {
				return fail("accept-challenge", model.EventACMEUnavailable, err)
			}
		}

		// Step 3: wait for the authority to validate.
		authz, err = poll.Until(workflowClock{ctx: ctx},
			poll.Options{Interval: params.PollInterval, MaxWait: params.PollMaxWait},
			func() (model.Authorization, error) {
				var a model.Authorization
				err := workflow.ExecuteActivity(ctx, "GetAuthorization", activity.GetAuthorizationParams{
					URL: authzURL,
				}).Get(ctx, &a)
				return a, err
			},
			func(a model.Authorization) bool { return model.IsTerminalAuthz(a.Status) },
		)
		switch {
		case errors.Is(err, poll.ErrTimeout):
			return fail("poll-authorization", model.EventAuthorizationTimeout, fmt.Errorf("authorization %s: %w", authzURL, err))
		case err != nil:
			return fail("poll-authorization", model.EventACMEUnavailable, err)
		case authz.Status != model.AuthzValid:
			markInvalid()
			return fail("poll-authorization", model.EventAuthorizationInvalid, fmt.Errorf("authorization %s is %q", authzURL, authz.Status))
		}
	}

	if err := recordState(activity.RecordOrderStateParams{
		OrderURL:    order.URL,
		Status:      model.OrderReady,
		FinalizeURL: order.FinalizeURL,
	}); err != nil {
		return fail("poll-authorization", model.EventExceptionThrown, err)
	}

	// Step 4: key, CSR, finalize, download, bundle and install. The private
	// key stays inside this one activity.
	issueCtx := workflow.WithActivityOptions(ctx, issueActivityOptions(params.PollInterval, params.PollMaxWait))
	var issued activity.IssueCertificateResult
	err = workflow.ExecuteActivity(issueCtx, "IssueCertificate", activity.IssueCertificateParams{
		Domain:       domain,
		OrderURL:     order.URL,
		FinalizeURL:  order.FinalizeURL,
		PollInterval: params.PollInterval,
		PollMaxWait:  params.PollMaxWait,
	}).Get(ctx, &issued)
	if err != nil {
		return fail("issue-certificate", model.EventExceptionThrown, err)
	}

	if err := recordState(activity.RecordOrderStateParams{
		OrderURL:       order.URL,
		Status:         model.OrderValid,
		FinalizeURL:    order.FinalizeURL,
		CertificateURL: issued.CertificateURL,
	}); err != nil {
		logger.Warn("failed to record issued order", "domain", domain, "error", err)
	}

	logger.Info("certificate installed", "domain", domain, "thumbprint", issued.Thumbprint)
	return nil
}

// auditEvent returns the audit event carried as the error type, or
// fallback when err carries none.
func auditEvent(err error, fallback string) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && model.IsAuditEvent(appErr.Type()) {
		return appErr.Type()
	}
	return fallback
}

func errorType(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return appErr.Type()
	}
	return fmt.Sprintf("%T", err)
}
