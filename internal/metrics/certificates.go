package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CertificatesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certbind_certificates_issued_total",
		Help: "Certificates issued and installed on the hosting provider.",
	})

	// CertificateFailures counts terminal issuance failures by audit event.
	CertificateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certbind_certificate_failures_total",
		Help: "Issuance runs that ended in a recorded failure.",
	}, []string{"event"})
)
