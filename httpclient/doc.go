// Package httpclient is the outbound HTTP transport used for webhook
// notifications. It adds auth, TLS and the resilience package's retry,
// circuit breaker and rate limiter on top of net/http.
//
//	client, err := httpclient.New(httpclient.Config{
//	    Name:           "slack",
//	    Timeout:        10 * time.Second,
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("slack"),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   webhookURL,
//	    Body:   payload,
//	})
//
// A non-2xx response is returned together with an *Error whose Code and
// Retryable fields classify it.
package httpclient
