package pki

import (
	"crypto/elliptic"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	key, der, err := Generate("shop.example.com")
	require.NoError(t, err)

	assert.Equal(t, elliptic.P256(), key.Curve)

	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)
	require.NoError(t, csr.CheckSignature())
	assert.Equal(t, "shop.example.com", csr.Subject.CommonName)
	assert.Equal(t, []string{"shop.example.com"}, csr.DNSNames)
	assert.Equal(t, x509.ECDSAWithSHA256, csr.SignatureAlgorithm)
	assert.True(t, key.PublicKey.Equal(csr.PublicKey))
}

func TestGenerate_FreshKeyEachCall(t *testing.T) {
	k1, _, err := Generate("shop.example.com")
	require.NoError(t, err)
	k2, _, err := Generate("shop.example.com")
	require.NoError(t, err)

	assert.False(t, k1.Equal(k2))
}
