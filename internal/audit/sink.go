// Package audit records terminal failures of certificate issuance runs.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/certbind/internal/model"
	"github.com/edvin/certbind/internal/platform"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// DB is the subset of *pgxpool.Pool used by PostgresSink.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSink appends audit records and mirrors the latest event onto the
// domain's certificate order.
type PostgresSink struct {
	db  DB
	now func() time.Time
}

func NewPostgresSink(db DB) *PostgresSink {
	return &PostgresSink{db: db, now: time.Now}
}

// Record appends one audit record for domain. A record whose id already
// exists is not written again, so callers that retry should pass a stable id.
// An empty id is replaced with a new one.
func (s *PostgresSink) Record(ctx context.Context, id, domain, event string, payload model.AuditPayload) (*model.AuditRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	if id == "" {
		id = platform.NewID()
	}
	rec := &model.AuditRecord{
		ID:        id,
		Domain:    domain,
		Event:     event,
		Data:      data,
		CreatedAt: s.now().UTC(),
	}

	_, err = s.db.Exec(ctx,
		`WITH rec AS (
		   INSERT INTO audit_records (id, domain, event, data, created_at)
		   VALUES ($1, $2, $3, $4, $5)
		   ON CONFLICT (id) DO NOTHING
		 )
		 UPDATE certificate_orders SET last_event = $3, updated_at = $5 WHERE domain = $2`,
		rec.ID, rec.Domain, rec.Event, rec.Data, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit record for %s: %w", domain, err)
	}
	return rec, nil
}

// List returns the newest records for domain first.
func (s *PostgresSink) List(ctx context.Context, domain string, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, domain, event, data, created_at FROM audit_records
		 WHERE domain = $1 ORDER BY created_at DESC LIMIT $2`, domain, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit records for %s: %w", domain, err)
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		var r model.AuditRecord
		if err := rows.Scan(&r.ID, &r.Domain, &r.Event, &r.Data, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
