package httpclient

import "github.com/tienminhktvn/dataops-project/security"

// TLSConfig configures the client transport. See security.TLSConfig.
type TLSConfig = security.TLSConfig
