package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"sync"
	"time"
)

// AuthenticatorLength is the length of RADIUS authenticators in bytes
const AuthenticatorLength = 16

// Authenticator represents a 16-byte RADIUS authenticator
type Authenticator [AuthenticatorLength]byte

var (
	fallbackMu  sync.Mutex
	fallbackRNG *mrand.Rand

	randRead = rand.Read
)

// RandomVector returns a fresh Request Authenticator. If the system random
// source fails it falls back to a generator seeded from the clock and the
// process id, so a vector is always produced.
func RandomVector() Authenticator {
	auth, err := GenerateRequestAuthenticator()
	if err == nil {
		return auth
	}

	fallbackMu.Lock()
	defer fallbackMu.Unlock()
	if fallbackRNG == nil {
		seed := uint64(time.Now().UnixNano())
		fallbackRNG = mrand.New(mrand.NewPCG(seed, uint64(os.Getpid())))
	}
	for i := 0; i < AuthenticatorLength; i += 8 {
		v := fallbackRNG.Uint64()
		for j := 0; j < 8; j++ {
			auth[i+j] = byte(v >> (8 * j))
		}
	}
	return auth
}

// GenerateRequestAuthenticator generates a random Request Authenticator
func GenerateRequestAuthenticator() (Authenticator, error) {
	var auth Authenticator
	_, err := randRead(auth[:])
	if err != nil {
		return auth, fmt.Errorf("failed to generate random authenticator: %w", err)
	}
	return auth, nil
}

// CalculateResponseAuthenticator calculates the Response Authenticator as defined in RFC 2865
// Response Authenticator = MD5(Code + ID + Length + Request Authenticator + Response Attributes + Secret)
func CalculateResponseAuthenticator(code uint8, identifier uint8, length uint16, requestAuth Authenticator, responseData []byte, sharedSecret []byte) Authenticator {
	hash := md5.New()
	hash.Write([]byte{code, identifier, byte(length >> 8), byte(length)})
	hash.Write(requestAuth[:])
	hash.Write(responseData)
	hash.Write(sharedSecret)

	var result Authenticator
	copy(result[:], hash.Sum(nil))
	return result
}

// ValidateResponseAuthenticator validates a Response Authenticator
func ValidateResponseAuthenticator(code uint8, identifier uint8, length uint16, requestAuth Authenticator, responseData []byte, receivedAuth Authenticator, sharedSecret []byte) bool {
	expected := CalculateResponseAuthenticator(code, identifier, length, requestAuth, responseData, sharedSecret)
	return hmac.Equal(expected[:], receivedAuth[:])
}

// CalculateRequestAuthenticator calculates the Request Authenticator for Accounting packets
// Request Authenticator = MD5(Code + ID + Length + 16 zero octets + Request Attributes + Secret)
func CalculateRequestAuthenticator(code uint8, identifier uint8, length uint16, requestData []byte, sharedSecret []byte) Authenticator {
	var zero Authenticator
	return CalculateResponseAuthenticator(code, identifier, length, zero, requestData, sharedSecret)
}

var (
	// ErrInvalidPassword indicates an obfuscated password of impossible length
	ErrInvalidPassword = errors.New("invalid password length")
	// ErrMessageAuthenticator indicates a missing or wrong Message-Authenticator
	ErrMessageAuthenticator = errors.New("message-authenticator validation failed")
)
