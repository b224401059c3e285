package gateway_test

import (
	"testing"
	"time"

	"github.com/garnizeh/pqrs/pkg/gateway"
)

func TestSignAndVerifyToken(t *testing.T) {
	now := time.Now()
	tok, err := gateway.SignToken("s3cret", time.Minute, now)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	if err := gateway.VerifyToken("s3cret", tok); err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if err := gateway.VerifyToken("other", tok); err == nil {
		t.Fatalf("expected failure with wrong secret")
	}

	expired, err := gateway.SignToken("s3cret", time.Minute, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	if err := gateway.VerifyToken("s3cret", expired); err == nil {
		t.Fatalf("expected failure for expired token")
	}

	if _, err := gateway.SignToken("", time.Minute, now); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
