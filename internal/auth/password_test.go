package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Sup3r$ecretPass!", 4)
	require.NoError(t, err)
	require.NotEqual(t, "Sup3r$ecretPass!", hash)

	assert.NoError(t, ComparePassword(hash, "Sup3r$ecretPass!"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}

func TestPasswordHashesDiffer(t *testing.T) {
	first, err := HashPassword("Sup3r$ecretPass!", 4)
	require.NoError(t, err)
	second, err := HashPassword("Sup3r$ecretPass!", 4)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
