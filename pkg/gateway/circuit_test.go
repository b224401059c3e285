package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_CircuitOpensAndHalfOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	cfg := Config{Endpoint: srv.URL, Timeout: 2 * time.Second, CircuitFailureThreshold: 2, CircuitReset: time.Minute}
	c, err := NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.Submit(ctx, Payload{Title: "PQRS-20250314-00001"})
		if !errors.Is(err, ErrRemoteRejected) {
			t.Fatalf("attempt %d: expected remote rejection, got %v", i, err)
		}
	}

	if _, err := c.Submit(ctx, Payload{Title: "PQRS-20250314-00001"}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected 2 requests while circuit open, got %d", n)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Submit(ctx, Payload{Title: "PQRS-20250314-00001"}); errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected half-open request after reset, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("expected request after reset, hits=%d", n)
	}
}

func TestClient_ClientErrorsDoNotOpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, Timeout: 2 * time.Second, CircuitFailureThreshold: 1, CircuitReset: time.Hour}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Submit(context.Background(), Payload{}); errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("4xx replies must not open the circuit")
		}
	}
}
