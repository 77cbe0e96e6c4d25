package crypto

import (
	"bytes"
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"layeh.com/radius"
)

func TestPaddedPasswordLength(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 16},
		{1, 16},
		{16, 16},
		{17, 32},
		{127, 128},
		{128, 128},
		{200, 128},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PaddedPasswordLength(tt.in), "length %d", tt.in)
	}
}

func TestEncryptPassword(t *testing.T) {
	secret := []byte("xyzzy5461")
	vector := Authenticator{0x0f, 0x40, 0x3f, 0x94, 0x73, 0x97, 0x80, 0x57, 0xbd, 0x83, 0xd5, 0xcb, 0x98, 0xf4, 0x22, 0x7a}

	t.Run("rfc2865 example", func(t *testing.T) {
		// RFC 2865 section 7.1
		want := []byte{0x0d, 0xbe, 0x70, 0x8d, 0x93, 0xd4, 0x13, 0xce, 0x31, 0x96, 0xe4, 0x3f, 0x78, 0x2a, 0x0a, 0xee}
		assert.Equal(t, want, EncryptPassword([]byte("arctangent"), secret, vector))
	})

	t.Run("round trip", func(t *testing.T) {
		for _, n := range []int{1, 15, 16, 17, 64, 128} {
			pw := bytes.Repeat([]byte{'p'}, n)
			enc := EncryptPassword(pw, secret, vector)
			assert.Len(t, enc, PaddedPasswordLength(n))

			dec, err := DecryptPassword(enc, secret, vector)
			require.NoError(t, err)
			assert.Equal(t, pw, dec)
		}
	})

	t.Run("truncates long passwords", func(t *testing.T) {
		pw := bytes.Repeat([]byte{'x'}, 200)
		enc := EncryptPassword(pw, secret, vector)
		assert.Len(t, enc, MaxPasswordLength)

		dec, err := DecryptPassword(enc, secret, vector)
		require.NoError(t, err)
		assert.Equal(t, pw[:MaxPasswordLength], dec)
	})

	t.Run("matches layeh", func(t *testing.T) {
		pw := []byte("a rather long password value")
		enc := EncryptPassword(pw, secret, vector)

		dec, err := radius.UserPassword(enc, secret, vector[:])
		require.NoError(t, err)
		assert.Equal(t, pw, dec)
	})

	t.Run("does not modify input", func(t *testing.T) {
		pw := []byte("secret-pw")
		EncryptPassword(pw, secret, vector)
		assert.Equal(t, []byte("secret-pw"), pw)
	})
}

func TestEncryptPasswordFirstBlock(t *testing.T) {
	secret := []byte("testing123")
	var vector Authenticator

	got := EncryptPassword([]byte("abc"), secret, vector)
	require.Len(t, got, 16)

	key := md5.Sum(append(append([]byte(nil), secret...), vector[:]...))
	var want [16]byte
	copy(want[:], "abc")
	for i := range want {
		want[i] ^= key[i]
	}
	assert.Equal(t, want[:], got)
}

func TestDecryptPasswordInvalid(t *testing.T) {
	var vector Authenticator
	for _, n := range []int{0, 15, 17, 144} {
		_, err := DecryptPassword(make([]byte, n), []byte("s"), vector)
		assert.ErrorIs(t, err, ErrInvalidPassword, "length %d", n)
	}
}

func TestZero(t *testing.T) {
	b := []byte("testing123")
	Zero(b)
	assert.Equal(t, make([]byte, 10), b)

	Zero(nil)
}
