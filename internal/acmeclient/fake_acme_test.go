package acmeclient

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeACME is a minimal RFC 8555 server that does not verify signatures.
type fakeACME struct {
	t   *testing.T
	srv *httptest.Server

	caKey  *ecdsa.PrivateKey
	caCert *x509.Certificate

	mu            sync.Mutex
	nonce         int
	accounts      int
	orderStatus   string
	authzStatus   string
	certificate   []byte
	authzOnAccept string
	issueOnFinal  bool
}

func newFakeACME(t *testing.T) *fakeACME {
	t.Helper()
	f := &fakeACME{t: t, orderStatus: "pending", authzStatus: "pending", authzOnAccept: "valid", issueOnFinal: true}

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Fake ACME Intermediate"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	f.caKey = caKey
	f.caCert, err = x509.ParseCertificate(der)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /directory", f.directory)
	mux.HandleFunc("GET /nonce", f.newNonce)
	mux.HandleFunc("POST /account", f.newAccount)
	mux.HandleFunc("POST /order", f.newOrder)
	mux.HandleFunc("POST /order/1", f.getOrder)
	mux.HandleFunc("POST /authz/1", f.getAuthz)
	mux.HandleFunc("POST /chall/http", f.acceptChallenge)
	mux.HandleFunc("POST /finalize/1", f.finalize)
	mux.HandleFunc("POST /cert/1", f.getCert)
	f.srv = httptest.NewServer(f.withNonce(mux))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeACME) url(path string) string { return f.srv.URL + path }

func (f *fakeACME) withNonce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.nonce++
		n := f.nonce
		f.mu.Unlock()
		w.Header().Set("Replay-Nonce", "nonce-"+strconv.Itoa(n))
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (f *fakeACME) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func (f *fakeACME) directory(w http.ResponseWriter, _ *http.Request) {
	f.writeJSON(w, http.StatusOK, map[string]string{
		"newNonce":   f.url("/nonce"),
		"newAccount": f.url("/account"),
		"newOrder":   f.url("/order"),
		"revokeCert": f.url("/revoke"),
		"keyChange":  f.url("/key-change"),
	})
}

func (f *fakeACME) newNonce(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (f *fakeACME) newAccount(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.accounts++
	f.mu.Unlock()
	w.Header().Set("Location", f.url("/acct/1"))
	f.writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "valid",
		"contact": []string{"mailto:ops@example.com"},
	})
}

func (f *fakeACME) orderBody() map[string]any {
	body := map[string]any{
		"status":         f.orderStatus,
		"identifiers":    []map[string]string{{"type": "dns", "value": "shop.example.com"}},
		"authorizations": []string{f.url("/authz/1")},
		"finalize":       f.url("/finalize/1"),
	}
	if f.certificate != nil {
		body["certificate"] = f.url("/cert/1")
	}
	return body
}

func (f *fakeACME) newOrder(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Location", f.url("/order/1"))
	f.writeJSON(w, http.StatusCreated, f.orderBody())
}

func (f *fakeACME) getOrder(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeJSON(w, http.StatusOK, f.orderBody())
}

func (f *fakeACME) getAuthz(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeJSON(w, http.StatusOK, map[string]any{
		"status":     f.authzStatus,
		"identifier": map[string]string{"type": "dns", "value": "shop.example.com"},
		"challenges": []map[string]string{
			{"type": "dns-01", "url": f.url("/chall/dns"), "token": "tok-dns", "status": "pending"},
			{"type": "http-01", "url": f.url("/chall/http"), "token": "tok-http", "status": "pending"},
		},
	})
}

func (f *fakeACME) acceptChallenge(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authzStatus = f.authzOnAccept
	if f.authzOnAccept == "valid" {
		f.orderStatus = "ready"
	} else {
		f.orderStatus = "invalid"
	}
	w.Header().Add("Link", "<"+f.url("/authz/1")+">;rel=\"up\"")
	f.writeJSON(w, http.StatusOK, map[string]string{
		"type": "http-01", "url": f.url("/chall/http"), "token": "tok-http", "status": "processing",
	})
}

func (f *fakeACME) finalize(w http.ResponseWriter, r *http.Request) {
	var jws struct {
		Payload string `json:"payload"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&jws))
	payload, err := base64.RawURLEncoding.DecodeString(jws.Payload)
	require.NoError(f.t, err)
	var msg struct {
		CSR string `json:"csr"`
	}
	require.NoError(f.t, json.Unmarshal(payload, &msg))
	csrDER, err := base64.RawURLEncoding.DecodeString(msg.CSR)
	require.NoError(f.t, err)
	csr, err := x509.ParseCertificateRequest(csrDER)
	require.NoError(f.t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issueOnFinal {
		f.certificate = f.sign(csr)
		f.orderStatus = "valid"
	} else {
		f.orderStatus = "processing"
	}
	f.writeJSON(w, http.StatusOK, f.orderBody())
}

func (f *fakeACME) sign(csr *x509.CertificateRequest) []byte {
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: csr.Subject.CommonName},
		DNSNames:     csr.DNSNames,
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(90 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, f.caCert, csr.PublicKey, f.caKey)
	require.NoError(f.t, err)
	out := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: f.caCert.Raw})...)
}

func (f *fakeACME) getCert(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/pem-certificate-chain")
	_, _ = w.Write(f.certificate)
}

func (f *fakeACME) accountCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts
}
