package security

import (
	"crypto/tls"
	"testing"

	"github.com/tienminhktvn/dataops-project/security/tlstest"
)

func TestTLSConfig_Build_Disabled(t *testing.T) {
	var nilCfg *TLSConfig
	for _, cfg := range []*TLSConfig{nilCfg, {}} {
		got, err := cfg.Build()
		if err != nil || got != nil {
			t.Errorf("Build() = %v, %v; want nil, nil", got, err)
		}
	}
}

func TestTLSConfig_Build_Client(t *testing.T) {
	certs := tlstest.Generate(t)
	cfg := &TLSConfig{
		CAFile:     certs.CAFile,
		CertFile:   certs.CertFile,
		KeyFile:    certs.KeyFile,
		ServerName: "localhost",
		MinVersion: tls.VersionTLS13,
	}
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RootCAs == nil || len(got.Certificates) != 1 {
		t.Error("expected CA pool and client certificate")
	}
	if got.ServerName != "localhost" || got.MinVersion != tls.VersionTLS13 {
		t.Errorf("unexpected config: server=%q min=%d", got.ServerName, got.MinVersion)
	}
}

func TestTLSConfig_Build_SkipVerifyDefaultsToTLS12(t *testing.T) {
	got, err := (&TLSConfig{SkipVerify: true}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.InsecureSkipVerify || got.MinVersion != tls.VersionTLS12 {
		t.Errorf("skip=%v min=%d", got.InsecureSkipVerify, got.MinVersion)
	}
}

func TestTLSConfig_Build_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TLSConfig
	}{
		{"missing CA", &TLSConfig{CAFile: "/nonexistent/ca.pem"}},
		{"invalid CA", &TLSConfig{CAFile: tlstest.InvalidPEM(t, "ca.pem")}},
		{"missing key pair", &TLSConfig{CertFile: "/nonexistent/c.pem", KeyFile: "/nonexistent/k.pem"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTLSConfig_BuildServer(t *testing.T) {
	certs := tlstest.Generate(t)

	got, err := (&TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}).BuildServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Certificates) != 1 || got.ClientAuth != tls.NoClientCert {
		t.Errorf("unexpected server config: certs=%d auth=%v", len(got.Certificates), got.ClientAuth)
	}

	mtls, err := (&TLSConfig{CAFile: certs.CAFile, CertFile: certs.CertFile, KeyFile: certs.KeyFile}).BuildServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mtls.ClientAuth != tls.RequireAndVerifyClientCert || mtls.ClientCAs == nil {
		t.Error("expected client verification with a CA")
	}

	if none, err := (&TLSConfig{}).BuildServer(); none != nil || err != nil {
		t.Errorf("BuildServer() without cert = %v, %v", none, err)
	}
	if _, err := (&TLSConfig{CertFile: certs.CertFile}).BuildServer(); err == nil {
		t.Error("expected error for cert without key")
	}
}

func TestTLSConfig_IsEnabled(t *testing.T) {
	var nilCfg *TLSConfig
	if nilCfg.IsEnabled() || (&TLSConfig{}).IsEnabled() {
		t.Error("empty config should be disabled")
	}
	if !(&TLSConfig{ServerName: "x"}).IsEnabled() {
		t.Error("server name should enable TLS")
	}
}
