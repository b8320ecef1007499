package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/certbind/internal/domain"
	"github.com/edvin/certbind/internal/model"
)

// ErrNotFound is returned when a domain has no certificate order.
var ErrNotFound = errors.New("not found")

// AuditLister lists audit records. *audit.PostgresSink satisfies it.
type AuditLister interface {
	List(ctx context.Context, domain string, limit int) ([]model.AuditRecord, error)
}

// OrderService reads the persisted issuance progress of domains.
type OrderService struct {
	db    DB
	audit AuditLister
}

func NewOrderService(db DB, audit AuditLister) *OrderService {
	return &OrderService{db: db, audit: audit}
}

func (s *OrderService) Get(ctx context.Context, d string) (*model.CertificateOrder, error) {
	d = domain.Normalize(d)
	var o model.CertificateOrder
	err := s.db.QueryRow(ctx,
		`SELECT domain, order_url, status, finalize_url, certificate_url, last_event, created_at, updated_at
		 FROM certificate_orders WHERE domain = $1`, d,
	).Scan(&o.Domain, &o.OrderURL, &o.Status, &o.FinalizeURL, &o.CertificateURL, &o.LastEvent, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("certificate order for %s: %w", d, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate order %s: %w", d, err)
	}
	return &o, nil
}

// ListAudit returns the audit records of a domain, newest first.
func (s *OrderService) ListAudit(ctx context.Context, d string, limit int) ([]model.AuditRecord, error) {
	records, err := s.audit.List(ctx, domain.Normalize(d), limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records for %s: %w", d, err)
	}
	return records, nil
}
