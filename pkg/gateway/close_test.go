package gateway

import (
	"net/http"
	"sync/atomic"
	"testing"
)

type testTransport struct{ called int32 }

func (t *testTransport) RoundTrip(req *http.Request) (*http.Response, error) { panic("not used") }
func (t *testTransport) CloseIdleConnections()                               { atomic.AddInt32(&t.called, 1) }

func TestClient_Close_IdempotentAndCallsTransport(t *testing.T) {
	tr := &testTransport{}
	c, err := NewClient(Config{Endpoint: "http://localhost:8080/api/pqrs/sync", Timeout: 1}, &http.Client{Transport: tr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close second call error: %v", err)
	}
	if n := atomic.LoadInt32(&tr.called); n != 1 {
		t.Fatalf("expected CloseIdleConnections called once, got %d", n)
	}

	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Fatalf("Close on nil client: %v", err)
	}
}

func TestNewClient_InvalidEndpoint(t *testing.T) {
	if _, err := NewClient(Config{Endpoint: "not a url"}, nil); err == nil {
		t.Fatalf("expected error for invalid endpoint")
	}
}
