// Package token generates and canonicalizes the opaque bearer tokens
// used by the email-verification and password-reset flows.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"
)

// entropyBytes is fixed at 32 (256 bits). Hex output is 64 characters.
const entropyBytes = 32

// Generate produces a random hex token and its absolute expiry.
//
// Hex is deliberate: it contains none of the characters ('+', '/', '=')
// that URL or form encoding can mangle, so a freshly issued token
// survives any email client untouched. Candidates exists only for
// tokens that predate this alphabet.
func Generate(ttl time.Duration) (string, time.Time) {
	raw := make([]byte, entropyBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		// A failing CSPRNG is not a recoverable condition.
		panic("token: random source failed: " + err.Error())
	}
	return hex.EncodeToString(raw), time.Now().Add(ttl)
}

// Prefix returns the first 8 characters of a token for log correlation.
// Full tokens never appear in logs.
func Prefix(tok string) string {
	if len(tok) <= 8 {
		return tok
	}
	return tok[:8]
}
