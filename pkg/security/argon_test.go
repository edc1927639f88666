package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cheap parameters so the suite doesn't spend seconds in argon2
func testArgon() *ArgonHash {
	return &ArgonHash{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	a := testArgon()

	for _, p := range []string{"Passw0rd!", "Sup3r$ecretValue", "ünïcødé-Pa55"} {
		hash, err := a.Hash(p)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
		assert.True(t, a.Verify(hash, p), "password %q should verify", p)
		assert.False(t, a.Verify(hash, p+"x"), "password %q+x should not verify", p)
	}
}

func TestHashIsSalted(t *testing.T) {
	a := testArgon()

	h1, err := a.Hash("Passw0rd!")
	require.NoError(t, err)
	h2, err := a.Hash("Passw0rd!")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestVerifyUsesEmbeddedParameters(t *testing.T) {
	hash, err := testArgon().Hash("Passw0rd!")
	require.NoError(t, err)

	// A hasher with different defaults still verifies old hashes
	assert.True(t, New().Verify(hash, "Passw0rd!"))
}

func TestVerifyMalformedHash(t *testing.T) {
	a := testArgon()

	for _, h := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$***$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		assert.False(t, a.Verify(h, "Passw0rd!"), "hash %q", h)
	}
}
