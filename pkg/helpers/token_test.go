package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenToken(t *testing.T) {
	a, err := GenToken(20)
	require.NoError(t, err)
	b, err := GenToken(20)
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestHashToken(t *testing.T) {
	h := HashToken("sometoken")

	assert.Len(t, h, 64, "hex-encoded sha256")
	assert.Equal(t, h, HashToken("sometoken"))
	assert.NotEqual(t, h, HashToken("othertoken"))
	assert.NotContains(t, h, "sometoken")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)

	assert.NotEqual(t, "password123", hash)
	assert.True(t, CompareHashAndPassword(hash, "password123"))
	assert.False(t, CompareHashAndPassword(hash, "wrong"))
}
