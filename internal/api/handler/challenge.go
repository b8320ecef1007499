package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/certbind/internal/challenge"
)

const defaultChallengeContentType = "application/octet-stream"

type Challenge struct {
	store challenge.Store
}

func NewChallenge(store challenge.Store) *Challenge {
	return &Challenge{store: store}
}

// Get handles GET /.well-known/acme-challenge/{token}. The stored bytes are
// written unchanged with the stored content type.
func (h *Challenge) Get(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	e, err := h.store.Get(r.Context(), token)
	if errors.Is(err, challenge.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("token", token).Msg("get challenge")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	contentType := e.ContentType
	if contentType == "" {
		contentType = defaultChallengeContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(e.Value)
}
