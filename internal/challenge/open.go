package challenge

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/edvin/certbind/internal/config"
)

// Open builds the store selected by CHALLENGE_STORE. For the redis backend
// the client is returned as well so the caller can probe and close it; it
// is nil otherwise.
func Open(ctx context.Context, cfg *config.Config, db DB) (Store, *redis.Client, error) {
	switch cfg.ChallengeStore {
	case config.ChallengeStorePostgres:
		return NewPostgresStore(db, cfg.ChallengeTTL), nil, nil
	case config.ChallengeStoreRedis:
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, cfg.ChallengeTTL), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown challenge store %q", cfg.ChallengeStore)
	}
}
