package hasher_test

import (
	"strings"
	"testing"

	"saas_backend/internal/lib/apperr"
	"saas_backend/internal/lib/hasher"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := hasher.New(bcrypt.MinCost)

	digest, err := h.Hash("Secret#123")
	require.NoError(t, err)

	require.True(t, h.Verify("Secret#123", digest))
	require.False(t, h.Verify("Secret#124", digest))
}

func TestHashIsSalted(t *testing.T) {
	h := hasher.New(bcrypt.MinCost)

	a, err := h.Hash("Secret#123")
	require.NoError(t, err)
	b, err := h.Hash("Secret#123")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := hasher.New(bcrypt.MinCost)

	require.False(t, h.Verify("Secret#123", []byte("not-a-bcrypt-hash")))
	require.False(t, h.Verify("Secret#123", nil))
}

func TestNewClampsCost(t *testing.T) {
	h := hasher.New(100)

	digest, err := h.Hash("x")
	require.NoError(t, err)

	cost, err := bcrypt.Cost(digest)
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
}

func TestHashRejectsLongPassword(t *testing.T) {
	h := hasher.New(bcrypt.MinCost)

	_, err := h.Hash("Aa1!" + strings.Repeat("x", 96))
	require.ErrorIs(t, err, apperr.ErrValidation)

	// 44 символа, но 84 байта
	_, err = h.Hash("Aa1!" + strings.Repeat("ж", 40))
	require.ErrorIs(t, err, apperr.ErrValidation)

	digest, err := h.Hash("Aa1!" + strings.Repeat("x", 68))
	require.NoError(t, err)
	require.True(t, h.Verify("Aa1!"+strings.Repeat("x", 68), digest))
}
