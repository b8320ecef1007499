package model

import (
	"encoding/json"
	"time"
)

// Audit events. Every terminal failure of an issuance run is recorded under
// exactly one of these.
const (
	EventOrderInvalid         = "order-invalid"
	EventAuthorizationMissing = "authorization-missing"
	EventChallengeUnsupported = "challenge-unsupported"
	EventAuthorizationTimeout = "authorization-timeout"
	EventAuthorizationInvalid = "authorization-invalid"
	EventFinalizeInvalid      = "finalize-invalid"
	EventCertificateTimeout   = "certificate-timeout"
	EventDownloadFailed       = "download-failed"
	EventBundleFailed         = "bundle-failed"
	EventInstallFailed        = "install-failed"
	EventACMEUnavailable      = "acme-unavailable"
	EventExceptionThrown      = "exception-thrown"
)

type AuditRecord struct {
	ID        string          `json:"id" db:"id"`
	Domain    string          `json:"domain" db:"domain"`
	Event     string          `json:"event" db:"event"`
	Data      json.RawMessage `json:"data" db:"data"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// AuditPayload is the serialized error stored in AuditRecord.Data.
type AuditPayload struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Step    string `json:"step,omitempty"`
}

var auditEvents = map[string]bool{
	EventOrderInvalid:         true,
	EventAuthorizationMissing: true,
	EventChallengeUnsupported: true,
	EventAuthorizationTimeout: true,
	EventAuthorizationInvalid: true,
	EventFinalizeInvalid:      true,
	EventCertificateTimeout:   true,
	EventDownloadFailed:       true,
	EventBundleFailed:         true,
	EventInstallFailed:        true,
	EventACMEUnavailable:      true,
	EventExceptionThrown:      true,
}

// IsAuditEvent reports whether s is one of the audit event tags.
func IsAuditEvent(s string) bool {
	return auditEvents[s]
}
