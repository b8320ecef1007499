package activity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/edvin/certbind/internal/model"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Orders persists certificate order progress.
type Orders struct {
	db     DB
	logger zerolog.Logger
}

func NewOrders(db DB, logger zerolog.Logger) *Orders {
	return &Orders{db: db, logger: logger.With().Str("component", "orders").Logger()}
}

// RecordOrderStateParams holds the parameters for RecordOrderState.
type RecordOrderStateParams struct {
	Domain         string
	OrderURL       string
	Status         string
	FinalizeURL    string
	CertificateURL string
}

// RecordOrderState upserts the order row for a domain. A status update for
// the same order is applied only when it moves the order forward; a new order
// URL replaces the row and clears the previous failure.
func (a *Orders) RecordOrderState(ctx context.Context, params RecordOrderStateParams) error {
	rank := model.OrderRank(params.Status)
	if rank < 0 {
		return terminal(model.EventExceptionThrown, fmt.Errorf("unknown order status %q", params.Status))
	}

	tag, err := a.db.Exec(ctx,
		`INSERT INTO certificate_orders (domain, order_url, status, status_rank, finalize_url, certificate_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), now(), now())
		 ON CONFLICT (domain) DO UPDATE SET
		   status = EXCLUDED.status,
		   status_rank = EXCLUDED.status_rank,
		   finalize_url = EXCLUDED.finalize_url,
		   certificate_url = COALESCE(EXCLUDED.certificate_url, certificate_orders.certificate_url),
		   last_event = CASE WHEN certificate_orders.order_url <> EXCLUDED.order_url THEN NULL ELSE certificate_orders.last_event END,
		   created_at = CASE WHEN certificate_orders.order_url <> EXCLUDED.order_url THEN now() ELSE certificate_orders.created_at END,
		   order_url = EXCLUDED.order_url,
		   updated_at = now()
		 WHERE certificate_orders.order_url <> EXCLUDED.order_url
		    OR EXCLUDED.status_rank > certificate_orders.status_rank`,
		params.Domain, params.OrderURL, params.Status, rank, params.FinalizeURL, params.CertificateURL,
	)
	if err != nil {
		return fmt.Errorf("record order state for %s: %w", params.Domain, err)
	}
	if tag.RowsAffected() == 0 {
		a.logger.Debug().Str("domain", params.Domain).Str("status", params.Status).Msg("order state not advanced")
	}
	return nil
}
