package models

import (
	"testing"
	"time"
)

func TestAuthToken_Expired(t *testing.T) {
	exp := time.Date(2026, 11, 18, 10, 0, 0, 0, time.UTC)
	tok := &AuthToken{ExpiresAt: exp}

	if tok.Expired(exp.Add(-time.Nanosecond)) {
		t.Fatal("token must be valid before expiry")
	}
	if !tok.Expired(exp) {
		t.Fatal("token must be expired at expiry")
	}
	if !tok.Expired(exp.Add(time.Hour)) {
		t.Fatal("token must be expired after expiry")
	}
}
