package authorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, VerifyPassword("correct horse battery staple", hash))
	assert.False(t, VerifyPassword("wrong password", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestHashPasswordSalted(t *testing.T) {
	first, err := HashPassword("secret")
	require.NoError(t, err)
	second, err := HashPassword("secret")
	require.NoError(t, err)

	// Salted hashes of the same input differ, but both verify.
	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("secret", first))
	assert.True(t, VerifyPassword("secret", second))
}
