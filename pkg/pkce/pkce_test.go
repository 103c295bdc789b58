package pkce_test

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dealersync/integrations/pkg/pkce"
)

func TestGenerate(t *testing.T) {
	t.Parallel()
	pair, err := pkce.Generate()
	require.NoError(t, err)

	// 32 random bytes encode to 43 base64url characters without padding.
	require.Len(t, pair.Verifier, 43)
	require.NotContains(t, pair.Verifier, "=")
	require.NotContains(t, pair.Challenge, "=")

	sum := sha256.Sum256([]byte(pair.Verifier))
	require.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), pair.Challenge)
	require.Equal(t, "S256", pair.Method())
}

func TestGenerateIsRandom(t *testing.T) {
	t.Parallel()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		pair, err := pkce.Generate()
		require.NoError(t, err)
		_, dup := seen[pair.Verifier]
		require.False(t, dup, "verifier repeated")
		seen[pair.Verifier] = struct{}{}
	}
}

func TestChallengeFor(t *testing.T) {
	t.Parallel()
	pair, err := pkce.Generate()
	require.NoError(t, err)
	require.Equal(t, pair.Challenge, pkce.ChallengeFor(pair.Verifier))

	require.NotEqual(t, pair.Challenge, pkce.ChallengeFor(pair.Verifier+"x"))
}
