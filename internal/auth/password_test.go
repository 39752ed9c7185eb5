package auth

import "testing"

func TestHashAndVerifyRoundTrip(t *testing.T) {
	h := NewPasswordHasher(4) // low cost for fast tests
	hashed, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Verify(hashed, "correct horse battery staple") {
		t.Fatal("expected verify to succeed with the original password")
	}
	if h.Verify(hashed, "wrong password") {
		t.Fatal("expected verify to fail with the wrong password")
	}
}

func TestNewPasswordHasherDefaultsCost(t *testing.T) {
	h := NewPasswordHasher(0)
	if h.cost <= 0 {
		t.Fatalf("expected a positive default cost, got %d", h.cost)
	}
}
