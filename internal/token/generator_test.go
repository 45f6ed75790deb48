package token_test

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/socraticschool/accounts/internal/token"
)

func TestGenerate_HexOf32Bytes(t *testing.T) {
	tok, _ := token.Generate(time.Hour)

	if len(tok) != 64 {
		t.Fatalf("token length = %d, want 64", len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("token is not valid hex: %v", err)
	}
}

func TestGenerate_URLSafeAlphabet(t *testing.T) {
	// The whole point of hex: nothing transport-sensitive in the output,
	// so the normalizer's first candidate is always the right one.
	tok, _ := token.Generate(time.Hour)

	if got := token.Candidates(tok); len(got) != 1 || got[0] != tok {
		t.Fatalf("fresh token produced candidates %v, want just itself", got)
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		tok, _ := token.Generate(time.Hour)
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token generated: %s", token.Prefix(tok))
		}
		seen[tok] = struct{}{}
	}
}

func TestGenerate_ExpiryFromTTL(t *testing.T) {
	before := time.Now()
	_, expiresAt := token.Generate(time.Hour)
	after := time.Now()

	if expiresAt.Before(before.Add(time.Hour)) || expiresAt.After(after.Add(time.Hour)) {
		t.Fatalf("expiry %v not within one hour of now", expiresAt)
	}
}

func TestPrefix_Truncates(t *testing.T) {
	if got := token.Prefix("abcdefghij"); got != "abcdefgh" {
		t.Errorf("Prefix = %q, want %q", got, "abcdefgh")
	}
	if got := token.Prefix("abc"); got != "abc" {
		t.Errorf("Prefix of short string = %q, want unchanged", got)
	}
}
