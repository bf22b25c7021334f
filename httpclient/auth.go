package httpclient

import "net/http"

// AuthType identifies the authentication method.
type AuthType int

const (
	AuthNone AuthType = iota
	AuthBearer
	AuthBasic
	// AuthHeader sends a raw token in a named header.
	AuthHeader
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type     AuthType
	Token    string
	Username string
	Password string
	// Header is the header name for AuthHeader. Defaults to "X-API-Key".
	Header string
}

// BearerAuth authenticates with "Authorization: Bearer <token>".
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth authenticates with HTTP basic credentials.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// HeaderAuth sends token in the named header.
func HeaderAuth(header, token string) *AuthConfig {
	return &AuthConfig{Type: AuthHeader, Header: header, Token: token}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		req.SetBasicAuth(a.Username, a.Password)
	case AuthHeader:
		name := a.Header
		if name == "" {
			name = "X-API-Key"
		}
		req.Header.Set(name, a.Token)
	}
}
