package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/certbind/internal/api/request"
	"github.com/edvin/certbind/internal/api/response"
	"github.com/edvin/certbind/internal/core"
	"github.com/edvin/certbind/internal/hosting"
)

// Error messages returned to callers of the domain endpoints.
const (
	msgInvalidDomain = "Invalid domain"
	msgOwnership     = "Unable to validate domain ownership"
	msgInternal      = "internal error"
)

// DomainService is implemented by *core.DomainService.
type DomainService interface {
	Submit(ctx context.Context, domain string) error
	Validate(domains ...string) bool
}

type Domain struct {
	svc DomainService
}

func NewDomain(svc DomainService) *Domain {
	return &Domain{svc: svc}
}

// Submit handles POST /domains. It answers as soon as the hostname is bound;
// certificate issuance continues in the background.
func (h *Domain) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitDomain
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, msgInvalidDomain)
		return
	}

	err := h.svc.Submit(r.Context(), req.Domain)
	switch {
	case err == nil:
		response.WriteSuccess(w)
	case errors.Is(err, core.ErrInvalidDomain):
		response.WriteError(w, http.StatusBadRequest, msgInvalidDomain)
	case errors.Is(err, hosting.ErrOwnership):
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("domain", req.Domain).Msg("hostname binding failed")
		response.WriteError(w, http.StatusBadRequest, msgOwnership)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("domain", req.Domain).Msg("submit domain")
		response.WriteError(w, http.StatusInternalServerError, msgInternal)
	}
}

// Validate handles POST /domains/validate. It has no side effects.
func (h *Domain) Validate(w http.ResponseWriter, r *http.Request) {
	var req request.ValidateDomains
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, msgInvalidDomain)
		return
	}
	if !h.svc.Validate(req.BaseDomain, req.MobileDomain, req.DesktopDomain) {
		response.WriteError(w, http.StatusBadRequest, msgInvalidDomain)
		return
	}
	response.WriteSuccess(w)
}
