package request

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_SubmitDomain(t *testing.T) {
	r := httptest.NewRequest("POST", "/domains", strings.NewReader(`{"domain":"shop.example.com"}`))

	var req SubmitDomain
	require.NoError(t, Decode(r, &req))
	assert.Equal(t, "shop.example.com", req.Domain)
}

func TestDecode_MissingField(t *testing.T) {
	r := httptest.NewRequest("POST", "/domains", strings.NewReader(`{}`))

	var req SubmitDomain
	err := Decode(r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestDecode_InvalidJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/domains", strings.NewReader(`{"domain":`))

	var req SubmitDomain
	err := Decode(r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDecode_HostnameMulti(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{"all valid", `{"baseDomain":"www.example.com","mobileDomain":"m.example.com","desktopDomain":"shop.example.com"}`, true},
		{"two labels", `{"baseDomain":"example.com","mobileDomain":"m.example.com","desktopDomain":"shop.example.com"}`, false},
		{"bad syntax", `{"baseDomain":"www.example.com","mobileDomain":"m_.example.com","desktopDomain":"shop.example.com"}`, false},
		{"missing", `{"baseDomain":"www.example.com","mobileDomain":"m.example.com"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/domains/validate", strings.NewReader(tt.body))
			var req ValidateDomains
			err := Decode(r, &req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
