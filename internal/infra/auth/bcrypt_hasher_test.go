package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hubauth/config"
	domainerrors "hubauth/internal/domain/errors"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	hash, err := hasher.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	ok, err := hasher.Verify("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = hasher.Verify("", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_HashIsSalted(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	first, err := hasher.Hash("abc")
	require.NoError(t, err)
	second, err := hasher.Hash("abc")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, hash := range []string{first, second} {
		ok, err := hasher.Verify("abc", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	valid, err := hasher.Hash("abc")
	require.NoError(t, err)

	testCases := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"too short", "$2a$04$short"},
		{"not a bcrypt hash", strings.Repeat("x", 60)},
		{"unknown version", "$3a" + valid[3:]},
		{"bad cost", valid[:4] + "99" + valid[6:]},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := hasher.Verify("abc", tc.hash)
			assert.False(t, ok)
			assert.ErrorIs(t, err, domainerrors.ErrMalformedHash)
		})
	}
}

func TestNewBcryptHasher_Cost(t *testing.T) {
	testCases := []struct {
		name string
		cost int
		want int
	}{
		{"default", 0, bcrypt.DefaultCost},
		{"below minimum", 1, bcrypt.MinCost},
		{"above maximum", 99, bcrypt.MaxCost},
		{"explicit", 6, 6},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hasher := NewBcryptHasherWithCost(tc.cost).(*bcryptHasher)
			assert.Equal(t, tc.want, hasher.cost)
		})
	}

	hasher := NewBcryptHasher(&config.Config{Auth: &config.AuthConfig{BcryptCost: 5}}).(*bcryptHasher)
	assert.Equal(t, 5, hasher.cost)

	hasher = NewBcryptHasher(&config.Config{}).(*bcryptHasher)
	assert.Equal(t, bcrypt.DefaultCost, hasher.cost)
}

func TestBcryptHasher_LongPasswords(t *testing.T) {
	hasher := NewBcryptHasherWithCost(bcrypt.MinCost)

	long := strings.Repeat("a", 100)
	hash, err := hasher.Hash(long)
	require.NoError(t, err)

	ok, err := hasher.Verify(long, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	// Bytes past the 72nd still count.
	ok, err = hasher.Verify(strings.Repeat("a", 99)+"b", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = hasher.Verify(long[:72], hash)
	require.NoError(t, err)
	assert.False(t, ok)

	atLimit := strings.Repeat("z", 72)
	hash, err = hasher.Hash(atLimit)
	require.NoError(t, err)
	ok, err = hasher.Verify(atLimit, hash)
	require.NoError(t, err)
	assert.True(t, ok)
}
