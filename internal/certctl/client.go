package certctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edvin/certbind/internal/model"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Response is a decoded API reply. Body holds the raw JSON.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// APIError is returned for 4xx and 5xx replies.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Submit asks the API to bind and secure one domain.
func (c *Client) Submit(ctx context.Context, domain string) error {
	_, err := c.do(ctx, http.MethodPost, "/domains", map[string]string{"domain": domain})
	return err
}

// Status returns the persisted certificate order for a domain.
func (c *Client) Status(ctx context.Context, domain string) (*model.CertificateOrder, error) {
	resp, err := c.do(ctx, http.MethodGet, "/domains/"+url.PathEscape(domain), nil)
	if err != nil {
		return nil, err
	}
	var o model.CertificateOrder
	if err := json.Unmarshal(resp.Body, &o); err != nil {
		return nil, fmt.Errorf("parse order: %w", err)
	}
	return &o, nil
}

// Audit returns the newest audit records for a domain.
func (c *Client) Audit(ctx context.Context, domain string, limit int) ([]model.AuditRecord, error) {
	path := "/domains/" + url.PathEscape(domain) + "/audit"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var page struct {
		Items []model.AuditRecord `json:"items"`
	}
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("parse audit records: %w", err)
	}
	return page.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	r := &Response{StatusCode: resp.StatusCode, Body: json.RawMessage(respBody)}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return r, fmt.Errorf("%s %s: %w", method, path, &APIError{StatusCode: resp.StatusCode, Message: msg})
	}
	return r, nil
}
