package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/certbind/internal/api/response"
	"github.com/edvin/certbind/internal/audit"
	"github.com/edvin/certbind/internal/core"
	"github.com/edvin/certbind/internal/model"
)

// OrderService is implemented by *core.OrderService.
type OrderService interface {
	Get(ctx context.Context, domain string) (*model.CertificateOrder, error)
	ListAudit(ctx context.Context, domain string, limit int) ([]model.AuditRecord, error)
}

type Order struct {
	svc OrderService
}

func NewOrder(svc OrderService) *Order {
	return &Order{svc: svc}
}

// Get handles GET /domains/{domain}.
func (h *Order) Get(w http.ResponseWriter, r *http.Request) {
	d := chi.URLParam(r, "domain")
	o, err := h.svc.Get(r.Context(), d)
	if errors.Is(err, core.ErrNotFound) {
		response.WriteError(w, http.StatusNotFound, "no certificate order for "+d)
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("domain", d).Msg("get order")
		response.WriteError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	response.WriteJSON(w, http.StatusOK, o)
}

// ListAudit handles GET /domains/{domain}/audit?limit=N.
func (h *Order) ListAudit(w http.ResponseWriter, r *http.Request) {
	d := chi.URLParam(r, "domain")
	limit := audit.DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			response.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	records, err := h.svc.ListAudit(r.Context(), d, limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("domain", d).Msg("list audit records")
		response.WriteError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if records == nil {
		records = []model.AuditRecord{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"items": records})
}
