package activity

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/edvin/certbind/internal/metrics"
	"github.com/edvin/certbind/internal/model"
)

// AuditSink appends audit records. *audit.PostgresSink satisfies it.
type AuditSink interface {
	Record(ctx context.Context, id, domain, event string, payload model.AuditPayload) (*model.AuditRecord, error)
}

// Audit records terminal failures of issuance runs.
type Audit struct {
	sink   AuditSink
	logger zerolog.Logger
}

func NewAudit(sink AuditSink, logger zerolog.Logger) *Audit {
	return &Audit{sink: sink, logger: logger.With().Str("component", "audit").Logger()}
}

// RecordAuditParams holds the parameters for RecordAudit.
type RecordAuditParams struct {
	ID      string
	Domain  string
	Event   string
	Payload model.AuditPayload
}

// RecordAudit appends one audit record and counts the failure.
func (a *Audit) RecordAudit(ctx context.Context, params RecordAuditParams) error {
	rec, err := a.sink.Record(ctx, params.ID, params.Domain, params.Event, params.Payload)
	if err != nil {
		return err
	}
	metrics.CertificateFailures.WithLabelValues(params.Event).Inc()
	a.logger.Warn().
		Str("domain", params.Domain).
		Str("event", params.Event).
		Str("step", params.Payload.Step).
		Str("audit_id", rec.ID).
		Msg(params.Payload.Message)
	return nil
}
