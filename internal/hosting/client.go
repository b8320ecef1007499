// Package hosting is the client for the hosting provider that serves
// customer domains.
package hosting

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrOwnership is returned when the provider refuses a hostname binding,
// usually because the domain's DNS does not point at the application.
var ErrOwnership = errors.New("unable to validate domain ownership")

type Client struct {
	baseURL    string
	apiKey     string
	appID      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, appID string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		appID:   appID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hosting API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// StatusError is a non-2xx response from the provider.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hosting API %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// BindHostname attaches a custom hostname to the application. Client errors
// from the provider are reported as ErrOwnership.
func (c *Client) BindHostname(ctx context.Context, h Hostname) error {
	if h.RecordType == "" {
		h.RecordType = RecordTypeCName
	}
	path := fmt.Sprintf("/apps/%s/hostnames/%s", url.PathEscape(c.appID), url.PathEscape(h.FQDN()))
	err := c.doJSON(ctx, http.MethodPut, path, h, nil)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
		return fmt.Errorf("%w: %s", ErrOwnership, err)
	}
	return err
}

// InstallCertificate uploads a PKCS#12 bundle and binds it to the hostname
// with SNI.
func (c *Client) InstallCertificate(ctx context.Context, cert Certificate) (*InstalledCertificate, error) {
	req := installCertificateRequest{
		Hostname: cert.Hostname,
		PFX:      base64.StdEncoding.EncodeToString(cert.PFX),
		Password: cert.Password,
		SSLState: SSLStateSNI,
	}
	var installed InstalledCertificate
	path := fmt.Sprintf("/apps/%s/certificates", url.PathEscape(c.appID))
	if err := c.doJSON(ctx, http.MethodPost, path, req, &installed); err != nil {
		return nil, fmt.Errorf("install certificate for %s: %w", cert.Hostname, err)
	}
	return &installed, nil
}
