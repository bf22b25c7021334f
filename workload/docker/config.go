package docker

import (
	"errors"

	"github.com/tienminhktvn/dataops-project/security"
)

// Config holds Docker Engine connection settings.
type Config struct {
	Host       string `yaml:"host" mapstructure:"host"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
	// TLS uses CAFile, CertFile and KeyFile for a TCP daemon.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "unix:///var/run/docker.sock"
	}
}

// Validate checks the Docker configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("docker: host is required")
	}
	if c.TLS != nil && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return errors.New("docker: tls cert_file and key_file are both required when tls is enabled")
	}
	return nil
}
