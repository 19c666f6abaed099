package service

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_Roundtrip(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("longenough1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "longenough1" {
		t.Fatalf("hash must not equal plaintext")
	}

	ok, err := hasher.Verify("longenough1", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected matching password to verify")
	}

	ok, err = hasher.Verify("otherpassword", hash)
	if err != nil {
		t.Fatalf("verify mismatch: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatching password to fail")
	}
}

func TestPasswordHasher_SaltedHashesDiffer(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	h1, err := hasher.Hash("longenough1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := hasher.Hash("longenough1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected salted hashes to differ")
	}
}

func TestPasswordHasher_MalformedStoredHash(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	if _, err := hasher.Verify("whatever", "not-a-bcrypt-hash"); err == nil {
		t.Fatalf("expected error for malformed stored hash")
	}
}

func TestPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	hasher := NewPasswordHasher(99)

	hash, err := hasher.Hash("longenough1")
	if err != nil {
		t.Fatalf("hash with fallback cost: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
}
