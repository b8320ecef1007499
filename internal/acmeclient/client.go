// Package acmeclient drives the ACME protocol steps of a certificate order.
package acmeclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-acme/lego/v4/acme"
	"github.com/go-acme/lego/v4/acme/api"

	"github.com/edvin/certbind/internal/model"
	"github.com/edvin/certbind/internal/pki"
)

const userAgent = "certbind"

// Client opens sessions against one ACME directory using the operator
// account.
type Client struct {
	directoryURL string
	email        string
	accounts     AccountStore
	solvers      Solvers
	httpClient   *http.Client

	mu      sync.Mutex
	account *Account
}

type Config struct {
	DirectoryURL string
	Email        string
	HTTPClient   *http.Client
	Solvers      Solvers
}

func New(cfg Config, accounts AccountStore) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	solvers := cfg.Solvers
	if solvers == nil {
		solvers = DefaultSolvers()
	}
	return &Client{
		directoryURL: cfg.DirectoryURL,
		email:        cfg.Email,
		accounts:     accounts,
		solvers:      solvers,
		httpClient:   httpClient,
	}
}

// Solvers returns the registered challenge solvers.
func (c *Client) Solvers() Solvers { return c.solvers }

// Session fetches the directory and binds the operator account. Every request
// made through the session is bound to ctx, so the session must not outlive it.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	acct, err := c.loadAccount(ctx)
	if err != nil {
		return nil, err
	}

	core, err := api.New(withContext(ctx, c.httpClient), userAgent, c.directoryURL, acct.KID, acct.Key)
	if err != nil {
		return nil, fmt.Errorf("fetch acme directory %s: %w", c.directoryURL, err)
	}

	if acct.KID == "" {
		// newAccount is idempotent per key, so a registration racing with
		// another worker resolves to the same account.
		ext, err := core.Accounts.New(acme.Account{
			Contact:              []string{"mailto:" + c.email},
			TermsOfServiceAgreed: true,
		})
		if err != nil {
			return nil, fmt.Errorf("register acme account: %w", err)
		}
		if err := c.accounts.SetKID(ctx, c.directoryURL, ext.Location); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.account = &Account{DirectoryURL: acct.DirectoryURL, Email: acct.Email, KID: ext.Location, Key: acct.Key}
		c.mu.Unlock()
	}

	return &Session{core: core, solvers: c.solvers}, nil
}

// loadAccount returns the stored account, creating a key on first use.
func (c *Client) loadAccount(ctx context.Context) (*Account, error) {
	c.mu.Lock()
	cached := c.account
	c.mu.Unlock()
	if cached != nil && cached.KID != "" {
		return cached, nil
	}

	acct, err := c.accounts.Load(ctx, c.directoryURL)
	if errors.Is(err, ErrAccountNotFound) {
		key, err := pki.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generate acme account key: %w", err)
		}
		if err := c.accounts.Create(ctx, &Account{DirectoryURL: c.directoryURL, Email: c.email, Key: key}); err != nil {
			return nil, err
		}
		// Reload so concurrent creators converge on the stored key.
		acct, err = c.accounts.Load(ctx, c.directoryURL)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.account = acct
	c.mu.Unlock()
	return acct, nil
}

// Session is one authenticated conversation with the authority.
type Session struct {
	core    *api.Core
	solvers Solvers
}

// CreateOrder submits a new order for domain.
func (s *Session) CreateOrder(domain string) (model.OrderInfo, error) {
	order, err := s.core.Orders.New([]string{domain})
	if err != nil {
		return model.OrderInfo{}, fmt.Errorf("create order for %s: %w", domain, err)
	}
	return orderInfo(order.Location, order.Order), nil
}

func (s *Session) GetOrder(orderURL string) (model.OrderInfo, error) {
	order, err := s.core.Orders.Get(orderURL)
	if err != nil {
		return model.OrderInfo{}, fmt.Errorf("get order %s: %w", orderURL, err)
	}
	return orderInfo(orderURL, order.Order), nil
}

// GetAuthorization fetches an authorization and computes the response for
// every challenge a registered solver supports. Other challenges are dropped.
func (s *Session) GetAuthorization(authzURL string) (model.Authorization, error) {
	authz, err := s.core.Authorizations.Get(authzURL)
	if err != nil {
		return model.Authorization{}, fmt.Errorf("get authorization %s: %w", authzURL, err)
	}

	out := model.Authorization{URL: authzURL, Status: string(authz.Status)}
	for _, chlg := range authz.Challenges {
		solver, ok := s.solvers.get(chlg.Type)
		if !ok {
			continue
		}
		keyAuth, err := s.core.GetKeyAuthorization(chlg.Token)
		if err != nil {
			return model.Authorization{}, fmt.Errorf("key authorization for %s: %w", chlg.URL, err)
		}
		resp := solver.Response(chlg.Token, keyAuth)
		out.Challenges = append(out.Challenges, model.Challenge{
			Type:        chlg.Type,
			URL:         chlg.URL,
			Token:       chlg.Token,
			Value:       resp.Value,
			ContentType: resp.ContentType,
		})
	}
	return out, nil
}

// AcceptChallenge tells the authority the challenge response is published.
func (s *Session) AcceptChallenge(challengeURL string) error {
	if _, err := s.core.Challenges.New(challengeURL); err != nil {
		return fmt.Errorf("accept challenge %s: %w", challengeURL, err)
	}
	return nil
}

// Finalize submits the DER encoded CSR. The returned order keeps orderURL as
// its location.
func (s *Session) Finalize(orderURL, finalizeURL string, csr []byte) (model.OrderInfo, error) {
	order, err := s.core.Orders.UpdateForCSR(finalizeURL, csr)
	if err != nil {
		return model.OrderInfo{}, fmt.Errorf("finalize order %s: %w", orderURL, err)
	}
	return orderInfo(orderURL, order.Order), nil
}

// DownloadCertificate returns the PEM certificate chain at certURL.
func (s *Session) DownloadCertificate(certURL string) ([]byte, error) {
	cert, _, err := s.core.Certificates.Get(certURL, true)
	if err != nil {
		return nil, fmt.Errorf("download certificate %s: %w", certURL, err)
	}
	return cert, nil
}

func orderInfo(location string, order acme.Order) model.OrderInfo {
	return model.OrderInfo{
		URL:            location,
		Status:         order.Status,
		Authorizations: order.Authorizations,
		FinalizeURL:    order.Finalize,
		CertificateURL: order.Certificate,
	}
}
