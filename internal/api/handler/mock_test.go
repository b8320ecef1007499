package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/certbind/internal/model"
)

type mockDomainService struct {
	mock.Mock
}

func (m *mockDomainService) Submit(ctx context.Context, domain string) error {
	return m.Called(ctx, domain).Error(0)
}

func (m *mockDomainService) Validate(domains ...string) bool {
	return m.Called(domains).Bool(0)
}

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) Get(ctx context.Context, domain string) (*model.CertificateOrder, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CertificateOrder), args.Error(1)
}

func (m *mockOrderService) ListAudit(ctx context.Context, domain string, limit int) ([]model.AuditRecord, error) {
	args := m.Called(ctx, domain, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditRecord), args.Error(1)
}
