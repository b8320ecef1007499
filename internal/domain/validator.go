// Package domain holds the policy for customer-supplied domains: which ones
// may be bound, and how a domain splits into apex and subdomain.
package domain

import (
	"strings"
)

const maxHostnameLength = 253

// Validator decides whether a domain may be bound. It has no side effects.
type Validator struct {
	reserved string
}

// NewValidator returns a Validator that additionally rejects the operator's
// own reserved hostname.
func NewValidator(reserved string) *Validator {
	return &Validator{reserved: Normalize(reserved)}
}

// Validate reports whether domain is a syntactically valid hostname with
// more than two labels that is not the reserved hostname.
func (v *Validator) Validate(domain string) bool {
	if strings.TrimSpace(domain) == "" {
		return false
	}
	if !isValidHostname(domain) {
		return false
	}
	d := Normalize(domain)
	if len(strings.Split(d, ".")) <= 2 {
		return false
	}
	return v.reserved == "" || d != v.reserved
}

// Normalize lowercases the domain and drops a trailing root dot.
func Normalize(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// Split breaks a domain into its apex (the last two labels) and the
// remaining subdomain labels. Split("shop.eu.example.com") returns
// ("example.com", "shop.eu").
func Split(domain string) (apex, subdomain string) {
	labels := strings.Split(Normalize(domain), ".")
	if len(labels) <= 2 {
		return strings.Join(labels, "."), ""
	}
	n := len(labels)
	return strings.Join(labels[n-2:], "."), strings.Join(labels[:n-2], ".")
}

// isValidHostname checks RFC 1123 hostname syntax. IP literals are not
// hostnames, so an all-numeric top label is rejected.
func isValidHostname(s string) bool {
	if s == "" || len(s) > maxHostnameLength {
		return false
	}
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return false
	}
	labels := strings.Split(s, ".")
	for _, label := range labels {
		if !isValidLabel(label) {
			return false
		}
	}
	return !isNumeric(labels[len(labels)-1])
}

func isValidLabel(label string) bool {
	n := len(label)
	if n == 0 || n > 63 {
		return false
	}
	if label[0] == '-' || label[n-1] == '-' {
		return false
	}
	for _, c := range label {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-') {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
