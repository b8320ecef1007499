package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/certbind/internal/challenge"
)

func TestChallengeGet(t *testing.T) {
	store := challenge.NewMemoryStore(time.Hour)
	require.NoError(t, store.Put(context.Background(), challenge.Entry{
		Token:       "tok",
		Value:       []byte("tok.thumbprint"),
		ContentType: "text/plain",
	}))
	h := NewChallenge(store)

	rec := httptest.NewRecorder()
	h.Get(rec, withChiURLParam(httptest.NewRequest("GET", "/.well-known/acme-challenge/tok", nil), "token", "tok"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "tok.thumbprint", rec.Body.String())
}

func TestChallengeGet_DefaultContentType(t *testing.T) {
	store := challenge.NewMemoryStore(time.Hour)
	require.NoError(t, store.Put(context.Background(), challenge.Entry{Token: "tok", Value: []byte("v")}))

	rec := httptest.NewRecorder()
	NewChallenge(store).Get(rec, withChiURLParam(httptest.NewRequest("GET", "/.well-known/acme-challenge/tok", nil), "token", "tok"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}

func TestChallengeGet_Unknown(t *testing.T) {
	h := NewChallenge(challenge.NewMemoryStore(time.Hour))

	rec := httptest.NewRecorder()
	h.Get(rec, withChiURLParam(httptest.NewRequest("GET", "/.well-known/acme-challenge/nope", nil), "token", "nope"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
