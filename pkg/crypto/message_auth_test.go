package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2869"
)

func samplePacket() []byte {
	return []byte{
		0x01,       // Code: Access-Request
		0x42,       // Identifier: 66
		0x00, 0x20, // Length: 32
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
		0x06, 0x06, 0x00, 0x00, 0x00, 0x01, // Service-Type = Login
		0x04, 0x06, 0x01, 0x02, 0x03, 0x04, // NAS-IP-Address
	}
}

func TestCalculateMessageAuthenticator(t *testing.T) {
	packetData := samplePacket()
	sharedSecret := []byte("secret")

	msgAuth, err := CalculateMessageAuthenticator(packetData, sharedSecret)
	require.NoError(t, err)

	msgAuth2, err := CalculateMessageAuthenticator(packetData, sharedSecret)
	require.NoError(t, err)
	assert.Equal(t, msgAuth, msgAuth2)

	msgAuth3, err := CalculateMessageAuthenticator(packetData, []byte("different"))
	require.NoError(t, err)
	assert.NotEqual(t, msgAuth, msgAuth3)

	_, err = CalculateMessageAuthenticator(packetData[:4], sharedSecret)
	assert.Error(t, err)
}

func TestAppendMessageAuthenticator(t *testing.T) {
	sharedSecret := []byte("secret")

	signed, err := AppendMessageAuthenticator(samplePacket(), sharedSecret)
	require.NoError(t, err)
	require.Len(t, signed, 32+18)
	assert.Equal(t, byte(0), signed[2])
	assert.Equal(t, byte(50), signed[3])
	assert.Equal(t, byte(80), signed[32])
	assert.Equal(t, byte(18), signed[33])

	zeroed := append([]byte(nil), signed...)
	clear(zeroed[34:])
	mac := hmac.New(md5.New, sharedSecret)
	mac.Write(zeroed)
	assert.Equal(t, mac.Sum(nil), signed[34:])

	_, err = AppendMessageAuthenticator(signed, sharedSecret)
	assert.Error(t, err, "second attribute must be refused")

	big := make([]byte, 4090)
	big[0] = 1
	_, err = AppendMessageAuthenticator(big, sharedSecret)
	assert.Error(t, err)
}

func TestAppendMessageAuthenticatorAcceptedByLayeh(t *testing.T) {
	sharedSecret := []byte("testing-secret")
	vector := RandomVector()

	pkt := make([]byte, 20)
	pkt[0] = byte(radius.CodeAccessRequest)
	pkt[1] = 7
	pkt[3] = 20
	copy(pkt[4:], vector[:])
	pkt = append(pkt, 79, 6, 0x02, 0x00, 0x00, 0x04) // EAP-Message
	pkt[3] = byte(len(pkt))

	signed, err := AppendMessageAuthenticator(pkt, sharedSecret)
	require.NoError(t, err)

	p, err := radius.Parse(signed, sharedSecret)
	require.NoError(t, err)
	ma, err := rfc2869.MessageAuthenticator_Lookup(p)
	require.NoError(t, err)
	assert.Equal(t, signed[len(signed)-16:], []byte(ma))
}

func TestVerifyResponseMessageAuthenticator(t *testing.T) {
	sharedSecret := []byte("auth-secret")
	req := radius.New(radius.CodeAccessRequest, sharedSecret)
	_ = rfc2869.EAPMessage_Set(req, []byte{0x01, 0x00, 0x00, 0x04})
	requestAuth := Authenticator(req.Authenticator)

	build := func(t *testing.T) []byte {
		resp := req.Response(radius.CodeAccessAccept)
		_ = rfc2869.EAPMessage_Set(resp, []byte{0x03, 0x00, 0x00, 0x04})
		_ = rfc2869.MessageAuthenticator_Set(resp, make([]byte, 16))

		unsigned, err := resp.MarshalBinary()
		require.NoError(t, err)
		copy(unsigned[4:20], requestAuth[:])
		mac := hmac.New(md5.New, sharedSecret)
		mac.Write(unsigned)
		_ = rfc2869.MessageAuthenticator_Set(resp, mac.Sum(nil))

		raw, err := resp.MarshalBinary()
		require.NoError(t, err)
		return raw
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, VerifyResponseMessageAuthenticator(build(t), requestAuth, sharedSecret, true))
	})

	t.Run("tampered", func(t *testing.T) {
		raw := build(t)
		raw[len(raw)-1] ^= 0xff
		assert.ErrorIs(t, VerifyResponseMessageAuthenticator(raw, requestAuth, sharedSecret, false), ErrMessageAuthenticator)
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.ErrorIs(t, VerifyResponseMessageAuthenticator(build(t), requestAuth, []byte("other"), false), ErrMessageAuthenticator)
	})

	t.Run("missing", func(t *testing.T) {
		resp := req.Response(radius.CodeAccessReject)
		_ = rfc2865.ReplyMessage_SetString(resp, "denied")
		raw, err := resp.MarshalBinary()
		require.NoError(t, err)

		assert.NoError(t, VerifyResponseMessageAuthenticator(raw, requestAuth, sharedSecret, false))
		assert.ErrorIs(t, VerifyResponseMessageAuthenticator(raw, requestAuth, sharedSecret, true), ErrMessageAuthenticator)
	})
}

func TestHasMessageAuthenticator(t *testing.T) {
	assert.False(t, HasMessageAuthenticator(samplePacket()))
	assert.False(t, HasMessageAuthenticator(nil))

	signed, err := AppendMessageAuthenticator(samplePacket(), []byte("s"))
	require.NoError(t, err)
	assert.True(t, HasMessageAuthenticator(signed))

	// a truncated attribute list stops the walk
	broken := append(samplePacket(), 80, 40)
	assert.False(t, HasMessageAuthenticator(broken))
}
