package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig configures one side of a TLS connection. On a client, CAFile
// verifies the server and CertFile/KeyFile enable mTLS. On a server,
// CertFile/KeyFile are required and CAFile turns on client verification.
type TLSConfig struct {
	SkipVerify bool   `yaml:"skip_verify" mapstructure:"skip_verify"`
	CAFile     string `yaml:"ca_file" mapstructure:"ca_file"`
	CertFile   string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile    string `yaml:"key_file" mapstructure:"key_file"`
	ServerName string `yaml:"server_name" mapstructure:"server_name"`
	// MinVersion defaults to TLS 1.2.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// Build returns the client-side tls.Config, or nil when nothing is set.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	cfg := c.base()
	cfg.InsecureSkipVerify = c.SkipVerify
	cfg.ServerName = c.ServerName

	pool, err := c.caPool()
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = pool

	if c.CertFile != "" && c.KeyFile != "" {
		cert, err := c.keyPair()
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// BuildServer returns the server-side tls.Config, or nil when no certificate
// is configured.
func (c *TLSConfig) BuildServer() (*tls.Config, error) {
	if c == nil || c.CertFile == "" {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cert, err := c.keyPair()
	if err != nil {
		return nil, err
	}
	cfg := c.base()
	cfg.Certificates = []tls.Certificate{cert}

	pool, err := c.caPool()
	if err != nil {
		return nil, err
	}
	if pool != nil {
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

// Validate requires cert_file and key_file to be set together.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("security/tls: both cert_file and key_file must be provided together")
	}
	return nil
}

// IsEnabled reports whether any setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.SkipVerify || c.CAFile != "" || c.CertFile != "" || c.ServerName != ""
}

func (c *TLSConfig) base() *tls.Config {
	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return &tls.Config{MinVersion: minVersion}
}

func (c *TLSConfig) caPool() (*x509.CertPool, error) {
	if c.CAFile == "" {
		return nil, nil
	}
	ca, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("security/tls: failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("security/tls: failed to parse CA certificate")
	}
	return pool, nil
}

func (c *TLSConfig) keyPair() (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("security/tls: failed to load certificate: %w", err)
	}
	return cert, nil
}
