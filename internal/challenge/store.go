// Package challenge stores pending ACME HTTP-01 responses so the public
// /.well-known/acme-challenge endpoint can serve them to the authority.
//
// Entries are keyed by challenge token, written once, and expire after a TTL.
// The issuing flow deletes its entries when it ends; PurgeExpired sweeps
// whatever was left behind.
package challenge

import (
	"bytes"
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long an unanswered challenge stays servable.
const DefaultTTL = time.Hour

var (
	ErrNotFound = errors.New("challenge not found")
	// ErrExists is returned when a live token is already bound to a
	// different response.
	ErrExists = errors.New("challenge token already in use")
)

// Entry is one servable challenge response.
type Entry struct {
	Token       string
	Value       []byte
	ContentType string
	ExpiresAt   time.Time
}

func (e Entry) sameResponse(o Entry) bool {
	return bytes.Equal(e.Value, o.Value) && e.ContentType == o.ContentType
}

// Store is shared by the worker, which writes entries, and the API, which
// serves them. Implementations must be safe for concurrent use.
type Store interface {
	// Put stores e. Writing the identical response again is a no-op so
	// retried writers are safe.
	Put(ctx context.Context, e Entry) error
	// Get returns the live entry for token or ErrNotFound.
	Get(ctx context.Context, token string) (Entry, error)
	Delete(ctx context.Context, tokens ...string) error
	// PurgeExpired removes entries that expired at or before now and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
