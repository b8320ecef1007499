// Package pki generates certificate key material and packages issued
// certificates for installation.
package pki

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"

	"github.com/go-acme/lego/v4/certcrypto"
)

// GenerateKey returns a fresh P-256 key. Keys are never reused across orders.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := certcrypto.GeneratePrivateKey(certcrypto.EC256)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("generate key: unexpected key type %T", key)
	}
	return ecKey, nil
}

// GenerateCSR builds a DER encoded PKCS#10 request with the domain as both
// common name and sole DNS name.
func GenerateCSR(key *ecdsa.PrivateKey, domain string) ([]byte, error) {
	tmpl := &x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: domain},
		DNSNames:           []string{domain},
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, tmpl, key)
	if err != nil {
		return nil, fmt.Errorf("create csr for %s: %w", domain, err)
	}
	return der, nil
}

// Generate returns a new key and a CSR for domain.
func Generate(domain string) (*ecdsa.PrivateKey, []byte, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, nil, err
	}
	csr, err := GenerateCSR(key, domain)
	if err != nil {
		return nil, nil, err
	}
	return key, csr, nil
}
