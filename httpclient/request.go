package httpclient

// Request describes an outbound HTTP request.
type Request struct {
	Method string
	// Path is appended to BaseURL unless it is already an absolute URL.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body accepts an io.Reader, []byte or string as-is; anything else is
	// JSON-encoded.
	Body any
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
}

// Response is the result of an HTTP request.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}
