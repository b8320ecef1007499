package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator("mfork.azurewebsites.net")

	tests := []struct {
		name   string
		domain string
		want   bool
	}{
		{"three labels", "shop.example.com", true},
		{"four labels", "eu.shop.example.com", true},
		{"digits and hyphens", "shop-2.my-store.co", true},
		{"uppercase", "Shop.Example.COM", true},
		{"trailing root dot", "shop.example.com.", true},
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"single label", "localhost", false},
		{"apex only", "example.com", false},
		{"apex with trailing dot", "example.com.", false},
		{"reserved hostname", "mfork.azurewebsites.net", false},
		{"reserved hostname uppercase", "MFORK.azurewebsites.net", false},
		{"sibling of reserved", "other.azurewebsites.net", true},
		{"space inside", "shop .example.com", false},
		{"underscore", "_acme.example.com", false},
		{"leading hyphen", "-shop.example.com", false},
		{"trailing hyphen label", "shop-.example.com", false},
		{"empty label", "shop..example.com", false},
		{"leading dot", ".shop.example.com", false},
		{"ipv4 literal", "10.0.0.1", false},
		{"scheme", "https://shop.example.com", false},
		{"path", "shop.example.com/path", false},
		{"label too long", strings.Repeat("a", 64) + ".example.com", false},
		{"hostname too long", strings.Repeat("abcdefghi.", 26) + "com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Validate(tt.domain))
		})
	}
}

func TestValidator_NoReservedHostname(t *testing.T) {
	v := NewValidator("")
	assert.True(t, v.Validate("mfork.azurewebsites.net"))
	assert.False(t, v.Validate("example.com"))
}

func TestValidator_TwoLabelsNeverValid(t *testing.T) {
	v := NewValidator("reserved.example.net")
	for _, d := range []string{"a.b", "example.com", "x.y.", "co.uk"} {
		assert.False(t, v.Validate(d), d)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "shop.example.com", Normalize(" Shop.Example.com. "))
	assert.Equal(t, "", Normalize(""))
}

func TestSplit(t *testing.T) {
	tests := []struct {
		domain, apex, sub string
	}{
		{"shop.example.com", "example.com", "shop"},
		{"eu.shop.example.com", "example.com", "eu.shop"},
		{"Shop.Example.com.", "example.com", "shop"},
		{"example.com", "example.com", ""},
	}
	for _, tt := range tests {
		apex, sub := Split(tt.domain)
		assert.Equal(t, tt.apex, apex, tt.domain)
		assert.Equal(t, tt.sub, sub, tt.domain)
	}
}
