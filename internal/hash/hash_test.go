package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndCheck(t *testing.T) {
	b := Bcrypt{Cost: bcrypt.MinCost}

	h, err := b.HashPassword("p1")
	require.NoError(t, err)
	assert.NotEqual(t, "p1", h)

	assert.True(t, b.CheckPassword(h, "p1"))
	assert.False(t, b.CheckPassword(h, "p2"))
	assert.False(t, b.CheckPassword("not-a-hash", "p1"))
}
