package activity

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/certbind/internal/challenge"
	"github.com/edvin/certbind/internal/model"
)

// Challenges publishes and removes HTTP-01 challenge responses.
type Challenges struct {
	store  challenge.Store
	logger zerolog.Logger
}

func NewChallenges(store challenge.Store, logger zerolog.Logger) *Challenges {
	return &Challenges{store: store, logger: logger.With().Str("component", "challenges").Logger()}
}

// PutChallengeParams holds the parameters for PutChallenge.
type PutChallengeParams struct {
	Token       string
	Value       string
	ContentType string
}

// PutChallenge stores the response for a token. Storing the same response
// again is a no-op, so retries are safe.
func (a *Challenges) PutChallenge(ctx context.Context, params PutChallengeParams) error {
	err := a.store.Put(ctx, challenge.Entry{
		Token:       params.Token,
		Value:       []byte(params.Value),
		ContentType: params.ContentType,
	})
	if errors.Is(err, challenge.ErrExists) {
		return terminal(model.EventExceptionThrown, err)
	}
	return err
}

// DeleteChallenges removes the responses for tokens.
func (a *Challenges) DeleteChallenges(ctx context.Context, tokens []string) error {
	return a.store.Delete(ctx, tokens...)
}

// PurgeExpiredChallenges removes every response past its TTL.
func (a *Challenges) PurgeExpiredChallenges(ctx context.Context) (int64, error) {
	n, err := a.store.PurgeExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		a.logger.Info().Int64("purged", n).Msg("PurgeExpiredChallenges")
	}
	return n, nil
}
