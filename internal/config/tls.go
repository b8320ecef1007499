package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TemporalTLS builds the mTLS configuration for the Temporal client.
// Returns nil, nil when no client certificate is configured.
func (c *Config) TemporalTLS() (*tls.Config, error) {
	if c.TemporalTLSCert == "" && c.TemporalTLSKey == "" {
		return nil, nil
	}
	tlsConfig, err := clientTLS(c.TemporalTLSCert, c.TemporalTLSKey, c.TemporalTLSCACert)
	if err != nil {
		return nil, fmt.Errorf("temporal: %w", err)
	}
	tlsConfig.ServerName = c.TemporalTLSServerName
	return tlsConfig, nil
}

func clientTLS(certFile, keyFile, caFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if caFile == "" {
		return tlsConfig, nil
	}
	caPEM, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("parse CA cert %s: no certificates found", caFile)
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}
