package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/certbind/internal/core"
	"github.com/edvin/certbind/internal/model"
)

func TestOrderGet(t *testing.T) {
	svc := &mockOrderService{}
	event := model.EventAuthorizationInvalid
	svc.On("Get", mock.Anything, "shop.example.com").Return(&model.CertificateOrder{
		Domain:    "shop.example.com",
		OrderURL:  "https://acme.test/order/1",
		Status:    model.OrderInvalid,
		LastEvent: &event,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil)

	rec := httptest.NewRecorder()
	NewOrder(svc).Get(rec, withChiURLParam(newRequest("GET", "/domains/shop.example.com", nil), "domain", "shop.example.com"))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got model.CertificateOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.OrderInvalid, got.Status)
	require.NotNil(t, got.LastEvent)
	assert.Equal(t, model.EventAuthorizationInvalid, *got.LastEvent)
}

func TestOrderGet_NotFound(t *testing.T) {
	svc := &mockOrderService{}
	svc.On("Get", mock.Anything, "shop.example.com").Return(nil, fmt.Errorf("certificate order for shop.example.com: %w", core.ErrNotFound))

	rec := httptest.NewRecorder()
	NewOrder(svc).Get(rec, withChiURLParam(newRequest("GET", "/domains/shop.example.com", nil), "domain", "shop.example.com"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderGet_Error(t *testing.T) {
	svc := &mockOrderService{}
	svc.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	rec := httptest.NewRecorder()
	NewOrder(svc).Get(rec, withChiURLParam(newRequest("GET", "/domains/shop.example.com", nil), "domain", "shop.example.com"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOrderListAudit(t *testing.T) {
	svc := &mockOrderService{}
	svc.On("ListAudit", mock.Anything, "shop.example.com", 100).Return([]model.AuditRecord{
		{ID: "a", Domain: "shop.example.com", Event: model.EventCertificateTimeout, Data: json.RawMessage(`{"message":"timed out"}`)},
	}, nil)

	rec := httptest.NewRecorder()
	NewOrder(svc).ListAudit(rec, withChiURLParam(newRequest("GET", "/domains/shop.example.com/audit", nil), "domain", "shop.example.com"))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []model.AuditRecord `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, model.EventCertificateTimeout, body.Items[0].Event)
}

func TestOrderListAudit_Empty(t *testing.T) {
	svc := &mockOrderService{}
	svc.On("ListAudit", mock.Anything, "shop.example.com", 5).Return(nil, nil)

	rec := httptest.NewRecorder()
	NewOrder(svc).ListAudit(rec, withChiURLParam(newRequest("GET", "/domains/shop.example.com/audit?limit=5", nil), "domain", "shop.example.com"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestOrderListAudit_BadLimit(t *testing.T) {
	svc := &mockOrderService{}

	rec := httptest.NewRecorder()
	NewOrder(svc).ListAudit(rec, withChiURLParam(newRequest("GET", "/domains/shop.example.com/audit?limit=zero", nil), "domain", "shop.example.com"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "ListAudit", mock.Anything, mock.Anything, mock.Anything)
}
