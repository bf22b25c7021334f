package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tienminhktvn/dataops-project/component"
)

func TestComponent_Lifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := DefaultCircuitBreakerConfig("slack")
	cb.MaxFailures = 1
	c := NewComponent(Config{Name: "slack", BaseURL: srv.URL, CircuitBreaker: cb})
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("before start: %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("after start: %s", h.Status)
	}

	_, _ = c.Client().Do(ctx, Request{Method: http.MethodPost, Path: "/"})
	if h := c.Health(ctx); h.Status != component.StatusDegraded {
		t.Errorf("open circuit: %s (%s)", h.Status, h.Message)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestComponent_Describe(t *testing.T) {
	c := NewComponent(Config{Retry: DefaultRetryConfig()})
	d := c.Describe()
	if d.Name != "http" || d.Type != "http-client" {
		t.Errorf("unexpected description %+v", d)
	}
	if d.Details != "timeout=10s retry=true" {
		t.Errorf("details = %q", d.Details)
	}
}
