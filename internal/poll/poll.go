// Package poll repeatedly checks a remote status at a fixed cadence until it
// reaches a terminal value or the wait budget is spent.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults used by the ACME flow for authorization and certificate polling.
const (
	DefaultInterval = 10 * time.Second
	DefaultMaxWait  = 300 * time.Second
)

// ErrTimeout is returned when the budget is exhausted before a terminal
// status was observed.
var ErrTimeout = errors.New("poll: timed out waiting for terminal status")

// Clock sleeps. Workflow code supplies a deterministic clock; activity code
// uses ContextClock.
type Clock interface {
	Sleep(d time.Duration) error
}

// Options bounds a poll. Zero values select the defaults.
type Options struct {
	Interval time.Duration
	MaxWait  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	return o
}

// MaxChecks is the number of status fetches a poll may perform:
// ceil(MaxWait / Interval).
func (o Options) MaxChecks() int {
	o = o.withDefaults()
	n := o.MaxWait / o.Interval
	if o.MaxWait%o.Interval != 0 {
		n++
	}
	return int(n)
}

// Until sleeps one interval, fetches, and stops as soon as done reports the
// fetched value terminal. The first fetch only happens after one interval.
// It returns the last observed value together with ErrTimeout when the
// budget runs out, or the fetch error if a fetch fails.
func Until[T any](clock Clock, opts Options, fetch func() (T, error), done func(T) bool) (T, error) {
	opts = opts.withDefaults()

	var last T
	for i := 0; i < opts.MaxChecks(); i++ {
		if err := clock.Sleep(opts.Interval); err != nil {
			return last, err
		}
		v, err := fetch()
		if err != nil {
			return last, fmt.Errorf("poll check %d: %w", i+1, err)
		}
		last = v
		if done(v) {
			return v, nil
		}
	}
	return last, ErrTimeout
}

// ContextClock sleeps on the wall clock and wakes early when ctx is done.
func ContextClock(ctx context.Context) Clock {
	return ctxClock{ctx: ctx}
}

type ctxClock struct {
	ctx context.Context
}

func (c ctxClock) Sleep(d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	case <-t.C:
		return nil
	}
}
