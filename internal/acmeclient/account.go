package acmeclient

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"sync"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	secrets "github.com/edvin/certbind/internal/crypto"
)

// ErrAccountNotFound is returned by AccountStore.Load for an unknown directory.
var ErrAccountNotFound = errors.New("acme account not found")

// Account is the operator account registered with one ACME directory.
// KID is empty until the authority has accepted the registration.
type Account struct {
	DirectoryURL string
	Email        string
	KID          string
	Key          crypto.Signer
}

// AccountStore persists the account key so every worker signs with the same
// account.
type AccountStore interface {
	Load(ctx context.Context, directoryURL string) (*Account, error)
	// Create stores acct unless an account for the directory already exists.
	Create(ctx context.Context, acct *Account) error
	SetKID(ctx context.Context, directoryURL, kid string) error
}

// DB is the subset of *pgxpool.Pool used by PostgresAccountStore.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresAccountStore keeps accounts in acme_accounts with the private key
// sealed under a secret key.
type PostgresAccountStore struct {
	db  DB
	key []byte
}

func NewPostgresAccountStore(db DB, sealingKey []byte) *PostgresAccountStore {
	return &PostgresAccountStore{db: db, key: sealingKey}
}

func (s *PostgresAccountStore) Load(ctx context.Context, directoryURL string) (*Account, error) {
	var (
		acct   = Account{DirectoryURL: directoryURL}
		sealed string
	)
	err := s.db.QueryRow(ctx,
		`SELECT email, kid, key_sealed FROM acme_accounts WHERE directory_url = $1`, directoryURL,
	).Scan(&acct.Email, &acct.KID, &sealed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load acme account: %w", err)
	}

	keyPEM, err := secrets.Decrypt(sealed, s.key)
	if err != nil {
		return nil, fmt.Errorf("unseal acme account key: %w", err)
	}
	key, err := parseKey(keyPEM)
	if err != nil {
		return nil, err
	}
	acct.Key = key
	return &acct, nil
}

func (s *PostgresAccountStore) Create(ctx context.Context, acct *Account) error {
	sealed, err := secrets.Encrypt(certcrypto.PEMEncode(acct.Key), s.key)
	if err != nil {
		return fmt.Errorf("seal acme account key: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO acme_accounts (directory_url, email, kid, key_sealed, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (directory_url) DO NOTHING`,
		acct.DirectoryURL, acct.Email, acct.KID, sealed,
	)
	if err != nil {
		return fmt.Errorf("create acme account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) SetKID(ctx context.Context, directoryURL, kid string) error {
	_, err := s.db.Exec(ctx, `UPDATE acme_accounts SET kid = $2 WHERE directory_url = $1`, directoryURL, kid)
	if err != nil {
		return fmt.Errorf("update acme account kid: %w", err)
	}
	return nil
}

// MemoryAccountStore keeps accounts for the life of the process.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]Account)}
}

func (s *MemoryAccountStore) Load(_ context.Context, directoryURL string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[directoryURL]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &acct, nil
}

func (s *MemoryAccountStore) Create(_ context.Context, acct *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.DirectoryURL]; !ok {
		s.accounts[acct.DirectoryURL] = *acct
	}
	return nil
}

func (s *MemoryAccountStore) SetKID(_ context.Context, directoryURL, kid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[directoryURL]
	if !ok {
		return ErrAccountNotFound
	}
	acct.KID = kid
	s.accounts[directoryURL] = acct
	return nil
}

func parseKey(keyPEM []byte) (crypto.Signer, error) {
	key, err := certcrypto.ParsePEMPrivateKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse acme account key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("acme account key of type %T cannot sign", key)
	}
	return signer, nil
}
