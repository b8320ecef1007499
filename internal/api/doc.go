// Package api serves the public certbind HTTP API: domain submission and
// validation, the ACME HTTP-01 challenge endpoint and read-only views of
// order progress and audit records.
package api
