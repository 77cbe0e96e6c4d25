package crypto

import (
	"crypto/md5"
	"crypto/subtle"
	"fmt"
)

// MaxPasswordLength is the longest User-Password value that is sent; longer
// input is truncated.
const MaxPasswordLength = 128

const passwordBlock = 16

// PaddedPasswordLength returns the on-wire size of a password of n octets.
func PaddedPasswordLength(n int) int {
	if n > MaxPasswordLength {
		n = MaxPasswordLength
	}
	if n < passwordBlock {
		return passwordBlock
	}
	return (n + passwordBlock - 1) / passwordBlock * passwordBlock
}

// EncryptPassword obfuscates a User-Password value as described in RFC 2865
// section 5.2:
//
//	c(1) = p(1) xor MD5(S + RA)
//	c(i) = p(i) xor MD5(S + c(i-1))
func EncryptPassword(password, secret []byte, vector Authenticator) []byte {
	n := len(password)
	if n > MaxPasswordLength {
		n = MaxPasswordLength
	}
	out := make([]byte, PaddedPasswordLength(n))
	copy(out, password[:n])

	prev := vector[:]
	for i := 0; i < len(out); i += passwordBlock {
		h := md5.New()
		h.Write(secret)
		h.Write(prev)
		subtle.XORBytes(out[i:i+passwordBlock], out[i:i+passwordBlock], h.Sum(nil))
		prev = out[i : i+passwordBlock]
	}
	return out
}

// DecryptPassword reverses EncryptPassword and strips the trailing NUL
// padding.
func DecryptPassword(encrypted, secret []byte, vector Authenticator) ([]byte, error) {
	if len(encrypted) == 0 || len(encrypted)%passwordBlock != 0 || len(encrypted) > MaxPasswordLength {
		return nil, fmt.Errorf("%w: %d octets", ErrInvalidPassword, len(encrypted))
	}

	out := make([]byte, len(encrypted))
	prev := vector[:]
	for i := 0; i < len(encrypted); i += passwordBlock {
		h := md5.New()
		h.Write(secret)
		h.Write(prev)
		subtle.XORBytes(out[i:i+passwordBlock], encrypted[i:i+passwordBlock], h.Sum(nil))
		prev = encrypted[i : i+passwordBlock]
	}

	end := len(out)
	for end > 0 && out[end-1] == 0 {
		end--
	}
	return out[:end], nil
}

// Zero overwrites b, used to scrub secrets and clear-text passwords once a
// request is finished with them.
func Zero(b []byte) {
	subtle.XORBytes(b, b, b)
}
