package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgon2KAT(t *testing.T) {
	t.Parallel()

	password := []byte("correct horse battery staple")
	salt := []byte("0123456789abcdef0123456789abcdef")
	params := Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 1,
		SaltLen:     32,
		KeyLen:      32,
	}

	got := deriveKey(password, salt, params)
	require.Equal(t, mustDecodeHex(t, "d12ac228e1566ecd9f80cf05621657ee1b5b34e40133438917d7ed334641f455"), got)
}

func TestArgon2ParamsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultArgon2Params().Validate())

	cases := []Argon2Params{
		{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32},
		{Memory: MinArgon2MemoryKiB, Iterations: 0, Parallelism: 1, SaltLen: 16, KeyLen: 32},
		{Memory: MinArgon2MemoryKiB, Iterations: 1, Parallelism: 0, SaltLen: 16, KeyLen: 32},
		{Memory: MinArgon2MemoryKiB, Iterations: 1, Parallelism: 1, SaltLen: 8, KeyLen: 32},
		{Memory: MinArgon2MemoryKiB, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 8},
	}
	for _, params := range cases {
		require.ErrorIs(t, params.Validate(), ErrInvalidArgon2Params)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	params := testParams()
	encoded, err := HashPassword([]byte("x"), params)
	require.NoError(t, err)
	require.True(t, IsHashed(encoded))
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, rehash, err := VerifyPassword(encoded, []byte("x"), params)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, rehash)

	ok, _, err = VerifyPassword(encoded, []byte("y"), params)
	require.NoError(t, err)
	require.False(t, ok)

	again, err := HashPassword([]byte("x"), params)
	require.NoError(t, err)
	require.NotEqual(t, encoded, again)
}

func TestVerifyPasswordFlagsStaleParams(t *testing.T) {
	t.Parallel()

	old := testParams()
	encoded, err := HashPassword([]byte("secret"), old)
	require.NoError(t, err)

	current := old
	current.Iterations = 2
	ok, rehash, err := VerifyPassword(encoded, []byte("secret"), current)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, rehash)
}

func TestVerifyLegacyPlaintext(t *testing.T) {
	t.Parallel()

	ok, rehash, err := VerifyPassword("hunter2", []byte("hunter2"), testParams())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, rehash)

	ok, rehash, err = VerifyPassword("hunter2", []byte("hunter3"), testParams())
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, rehash)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := HashPassword(nil, testParams())
	require.ErrorIs(t, err, ErrEmptyPassword)
}

func TestVerifyMalformedHash(t *testing.T) {
	t.Parallel()

	for _, stored := range []string{
		"$argon2id$",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$a2V5",
	} {
		_, _, err := VerifyPassword(stored, []byte("x"), testParams())
		require.ErrorIs(t, err, ErrMalformedHash, stored)
	}

	_, _, err := VerifyPassword("$argon2id$v=16$m=8192,t=1,p=1$c2FsdA$a2V5", []byte("x"), testParams())
	require.ErrorIs(t, err, ErrIncompatibleVer)
}

func testParams() Argon2Params {
	return Argon2Params{
		Memory:      MinArgon2MemoryKiB,
		Iterations:  1,
		Parallelism: 1,
		SaltLen:     16,
		KeyLen:      32,
	}
}

func mustDecodeHex(t *testing.T, value string) []byte {
	t.Helper()
	out, err := hex.DecodeString(value)
	require.NoError(t, err)
	return out
}

func TestPasswordHasher(t *testing.T) {
	t.Parallel()

	_, err := NewPasswordHasher(Argon2Params{})
	require.ErrorIs(t, err, ErrInvalidArgon2Params)

	hasher, err := NewPasswordHasher(testParams())
	require.NoError(t, err)
	encoded, err := hasher.Hash([]byte("pw"))
	require.NoError(t, err)

	ok, rehash, err := hasher.Verify(encoded, []byte("pw"))
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, rehash)
}
