package model

import "time"

// Order statuses as reported by the ACME authority.
const (
	OrderPending    = "pending"
	OrderReady      = "ready"
	OrderProcessing = "processing"
	OrderValid      = "valid"
	OrderInvalid    = "invalid"
)

// Authorization statuses.
const (
	AuthzPending = "pending"
	AuthzValid   = "valid"
	AuthzInvalid = "invalid"
	AuthzExpired = "expired"
)

// CertificateOrder is the persisted progress of one ACME order for a domain.
type CertificateOrder struct {
	Domain         string    `json:"domain" db:"domain"`
	OrderURL       string    `json:"order_url" db:"order_url"`
	Status         string    `json:"status" db:"status"`
	FinalizeURL    string    `json:"finalize_url" db:"finalize_url"`
	CertificateURL *string   `json:"certificate_url,omitempty" db:"certificate_url"`
	LastEvent      *string   `json:"last_event,omitempty" db:"last_event"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// OrderRank orders statuses along the order lifecycle. valid and invalid
// share the terminal rank so neither can replace the other.
func OrderRank(status string) int {
	switch status {
	case OrderPending:
		return 0
	case OrderReady:
		return 1
	case OrderProcessing:
		return 2
	case OrderValid, OrderInvalid:
		return 4
	default:
		return -1
	}
}

// CanAdvance reports whether an order may move from one status to another.
func CanAdvance(from, to string) bool {
	if OrderRank(to) < 0 {
		return false
	}
	return OrderRank(to) > OrderRank(from)
}

// IsTerminalOrder reports whether no further transitions are possible.
func IsTerminalOrder(status string) bool {
	return status == OrderValid || status == OrderInvalid
}

// IsTerminalAuthz reports whether an authorization has stopped changing.
func IsTerminalAuthz(status string) bool {
	return status != AuthzPending && status != ""
}

// Authorization is the subset of an ACME authorization the workflow acts on.
// Challenges only lists challenges with a registered solver.
type Authorization struct {
	URL        string      `json:"url"`
	Status     string      `json:"status"`
	Challenges []Challenge `json:"challenges"`
}

// Challenge is a proof the authority offered, with the response to publish.
type Challenge struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Token       string `json:"token"`
	Value       string `json:"value"`
	ContentType string `json:"content_type"`
}

// OrderInfo is what the workflow keeps about an order between steps.
type OrderInfo struct {
	URL            string   `json:"url"`
	Status         string   `json:"status"`
	Authorizations []string `json:"authorizations"`
	FinalizeURL    string   `json:"finalize_url"`
	CertificateURL string   `json:"certificate_url,omitempty"`
}
