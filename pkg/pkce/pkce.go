// Package pkce generates Proof Key for Code Exchange pairs (RFC 7636) for
// providers whose authorization flow requires them.
//
// The verifier is 32 cryptographically random bytes, base64url-encoded. It
// must never be transmitted to the provider or embedded in any URL; it stays
// server-side in an httpOnly cookie until the callback completes the code
// exchange. Only the derived challenge travels with the authorization request,
// always advertised with the S256 method.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// MethodS256 is the only challenge method this system advertises; plain is
// deliberately unsupported.
const MethodS256 = "S256"

// Pair holds a generated verifier and its derived challenge.
type Pair struct {
	// Verifier is base64url(32 random bytes). Server-side only.
	Verifier string

	// Challenge is base64url(SHA-256(Verifier)), sent to the provider.
	Challenge string
}

// Method reports the challenge method advertised to the provider.
func (Pair) Method() string { return MethodS256 }

// Generate produces a fresh verifier/challenge pair.
func Generate() (Pair, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Pair{}, err
	}

	verifier := base64.RawURLEncoding.EncodeToString(raw)
	return Pair{
		Verifier:  verifier,
		Challenge: ChallengeFor(verifier),
	}, nil
}

// ChallengeFor derives the S256 challenge for an existing verifier. The
// callback collaborator uses it to cross-check the cookie-held verifier
// against what was sent to the provider.
func ChallengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
