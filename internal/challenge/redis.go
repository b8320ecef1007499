package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "certbind:acme-challenge:"

// RedisStore keeps entries as JSON values whose expiry is the entry TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type redisEntry struct {
	Value       []byte    `json:"value"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// or rediss:// URL and verifies the
// server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Put(ctx context.Context, e Entry) error {
	data, err := json.Marshal(redisEntry{
		Value:       e.Value,
		ContentType: e.ContentType,
		ExpiresAt:   time.Now().Add(s.ttl).UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode challenge %s: %w", e.Token, err)
	}

	ok, err := s.client.SetNX(ctx, redisKeyPrefix+e.Token, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("set challenge %s: %w", e.Token, err)
	}
	if ok {
		return nil
	}

	cur, err := s.Get(ctx, e.Token)
	if errors.Is(err, ErrNotFound) {
		// Expired between SETNX and GET.
		return s.Put(ctx, e)
	}
	if err != nil {
		return err
	}
	if cur.sameResponse(e) {
		return nil
	}
	return ErrExists
}

func (s *RedisStore) Get(ctx context.Context, token string) (Entry, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get challenge %s: %w", token, err)
	}

	var re redisEntry
	if err := json.Unmarshal(data, &re); err != nil {
		return Entry{}, fmt.Errorf("decode challenge %s: %w", token, err)
	}
	return Entry{Token: token, Value: re.Value, ContentType: re.ContentType, ExpiresAt: re.ExpiresAt}, nil
}

func (s *RedisStore) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = redisKeyPrefix + t
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete challenges: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis expires keys on its own.
func (s *RedisStore) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
