package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps entries in the acme_challenges table so the API and
// worker processes see the same set.
type PostgresStore struct {
	db  DB
	ttl time.Duration
	now func() time.Time
}

func NewPostgresStore(db DB, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}
}

// Put inserts the entry. An expired row, or a live row holding the same
// response, is overwritten; a live row holding a different response is left
// alone and ErrExists is returned.
func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO acme_challenges (token, value, content_type, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (token) DO UPDATE
		 SET value = EXCLUDED.value, content_type = EXCLUDED.content_type, expires_at = EXCLUDED.expires_at
		 WHERE acme_challenges.expires_at <= now()
		    OR (acme_challenges.value = EXCLUDED.value AND acme_challenges.content_type = EXCLUDED.content_type)`,
		e.Token, e.Value, e.ContentType, s.now().Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("insert challenge %s: %w", e.Token, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, token string) (Entry, error) {
	e := Entry{Token: token}
	err := s.db.QueryRow(ctx,
		`SELECT value, content_type, expires_at FROM acme_challenges
		 WHERE token = $1 AND expires_at > now()`, token,
	).Scan(&e.Value, &e.ContentType, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get challenge %s: %w", token, err)
	}
	return e, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM acme_challenges WHERE token = ANY($1)`, tokens); err != nil {
		return fmt.Errorf("delete challenges: %w", err)
	}
	return nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM acme_challenges WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired challenges: %w", err)
	}
	return tag.RowsAffected(), nil
}
