package token

import (
	"net/url"
	"strings"
)

// Candidates returns the canonical forms of an inbound raw token to try
// against the store, most likely first:
//
//  1. the raw string unchanged (the router already percent-decoded the
//     query parameter once)
//  2. percent-decoded again, for email clients that re-escape the link
//  3. raw with '+' restored to space, for clients that transcribe the
//     form-encoding convention into the URL
//  4. percent-decoded with '+' restored to space
//
// Duplicates are dropped, order preserved, so the result holds between
// one and four strings. Feeding an already-canonical token back in
// yields itself as the first candidate.
func Candidates(raw string) []string {
	out := []string{raw}

	// PathUnescape rather than QueryUnescape: only %XX sequences are
	// decoded here, '+' is handled as its own candidate step.
	decoded, decodeErr := url.PathUnescape(raw)
	if decodeErr == nil {
		out = append(out, decoded)
	}
	if strings.Contains(raw, "+") {
		out = append(out, strings.ReplaceAll(raw, "+", " "))
	}
	if decodeErr == nil && strings.Contains(decoded, "+") {
		out = append(out, strings.ReplaceAll(decoded, "+", " "))
	}

	return dedup(out)
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
