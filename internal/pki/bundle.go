package pki

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"software.sslmate.com/src/go-pkcs12"
)

// MaxIssuerFetches bounds how many issuers are downloaded over AIA for one chain.
const MaxIssuerFetches = 4

const maxIssuerSize = 1 << 20

// ErrKeyMismatch is returned when no certificate in the download matches the
// private key generated for the order.
var ErrKeyMismatch = errors.New("certificate does not match private key")

// Bundle is an issued certificate ready for installation.
type Bundle struct {
	Leaf  *x509.Certificate
	Chain []*x509.Certificate
	PFX   []byte
}

// Bundler turns the PEM returned by the authority into a password protected
// PKCS#12 archive.
type Bundler struct {
	client *http.Client
}

func NewBundler(client *http.Client) *Bundler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Bundler{client: client}
}

// Bundle parses certPEM, orders it leaf first, downloads missing issuers via
// the AIA extension and encodes leaf, chain and key with password.
func (b *Bundler) Bundle(ctx context.Context, certPEM []byte, key crypto.Signer, password string) (*Bundle, error) {
	certs, err := certcrypto.ParsePEMBundle(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	leaf := findLeaf(certs, key)
	if leaf == nil {
		return nil, ErrKeyMismatch
	}

	chain, err := b.buildChain(ctx, leaf, certs)
	if err != nil {
		return nil, err
	}

	pfx, err := pkcs12.LegacyDES.Encode(key, leaf, chain, password)
	if err != nil {
		return nil, fmt.Errorf("encode pfx: %w", err)
	}
	return &Bundle{Leaf: leaf, Chain: chain, PFX: pfx}, nil
}

func findLeaf(certs []*x509.Certificate, key crypto.Signer) *x509.Certificate {
	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	pub, ok := key.Public().(equaler)
	if !ok {
		return nil
	}
	for _, c := range certs {
		if pub.Equal(c.PublicKey) {
			return c
		}
	}
	return nil
}

// buildChain walks issuers starting at leaf. Self-signed roots are left out.
// A downloaded intermediate with no issuer in the download ends the walk, and
// once one intermediate is known a failed AIA fetch ends it too.
func (b *Bundler) buildChain(ctx context.Context, leaf *x509.Certificate, pool []*x509.Certificate) ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	fetches := 0
	current := leaf
	fetchedCurrent := false
	for !isSelfSigned(current) {
		issuer := findIssuer(current, pool)
		fetchedIssuer := false
		if issuer == nil {
			if current != leaf && !fetchedCurrent {
				break
			}
			if len(current.IssuingCertificateURL) == 0 {
				if current == leaf {
					return nil, fmt.Errorf("no issuer found for %s", leaf.Subject.CommonName)
				}
				break
			}
			if fetches >= MaxIssuerFetches {
				return nil, fmt.Errorf("chain for %s exceeds %d issuer fetches", leaf.Subject.CommonName, MaxIssuerFetches)
			}
			fetches++
			fetched, err := b.fetchIssuer(ctx, current.IssuingCertificateURL[0])
			if err == nil {
				if sErr := current.CheckSignatureFrom(fetched); sErr != nil {
					err = fmt.Errorf("issuer from %s did not sign %s: %w", current.IssuingCertificateURL[0], current.Subject.CommonName, sErr)
				}
			}
			if err != nil {
				if len(chain) > 0 {
					break
				}
				return nil, err
			}
			issuer = fetched
			fetchedIssuer = true
		}
		if isSelfSigned(issuer) {
			break
		}
		chain = append(chain, issuer)
		current = issuer
		fetchedCurrent = fetchedIssuer
	}
	return chain, nil
}

func findIssuer(cert *x509.Certificate, pool []*x509.Certificate) *x509.Certificate {
	for _, c := range pool {
		if c == cert || c.Equal(cert) {
			continue
		}
		if cert.CheckSignatureFrom(c) == nil {
			return c
		}
	}
	return nil
}

func isSelfSigned(cert *x509.Certificate) bool {
	return cert.CheckSignatureFrom(cert) == nil
}

// fetchIssuer downloads a CA certificate. Both DER and PEM bodies are accepted.
func (b *Bundler) fetchIssuer(ctx context.Context, url string) (*x509.Certificate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build issuer request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch issuer %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch issuer %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIssuerSize))
	if err != nil {
		return nil, fmt.Errorf("read issuer %s: %w", url, err)
	}

	if block, _ := pem.Decode(body); block != nil {
		body = block.Bytes
	}
	cert, err := x509.ParseCertificate(body)
	if err != nil {
		return nil, fmt.Errorf("parse issuer %s: %w", url, err)
	}
	return cert, nil
}
