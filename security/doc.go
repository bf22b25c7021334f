// Package security holds the TLS settings shared by the webhook client and
// the HTTP API server.
//
//	tlsCfg, err := security.TLSConfig{CAFile: "/etc/ssl/internal-ca.pem"}.Build()
package security
