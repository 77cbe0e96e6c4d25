package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

func respond(t *testing.T, req *Request, secret []byte, code radius.Code, messages ...string) []byte {
	t.Helper()
	p, err := radius.Parse(req.Raw, secret)
	require.NoError(t, err)

	resp := p.Response(code)
	for _, m := range messages {
		require.NoError(t, rfc2865.ReplyMessage_AddString(resp, m))
	}
	raw, err := resp.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func TestCheckReply(t *testing.T) {
	secret := []byte("testing123")
	req, err := EncodeRequest(make([]byte, BufferLength), CodeAccessRequest, 77,
		Pairs{NewString(Standard(AttributeUserName), "alice")}, secret)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		raw := respond(t, req, secret, radius.CodeAccessAccept, "welcome")
		assert.NoError(t, CheckReply(raw, BufferLength, secret, req.Vector, req.Identifier))
	})

	t.Run("identifier mismatch", func(t *testing.T) {
		raw := respond(t, req, secret, radius.CodeAccessAccept)
		err := CheckReply(raw, BufferLength, secret, req.Vector, req.Identifier+1)
		assert.ErrorIs(t, err, ErrIdentifierMismatch)
	})

	t.Run("tampered attribute", func(t *testing.T) {
		raw := respond(t, req, secret, radius.CodeAccessAccept, "welcome")
		raw[len(raw)-1] ^= 0x01
		assert.ErrorIs(t, CheckReply(raw, BufferLength, secret, req.Vector, req.Identifier), ErrDigestMismatch)
	})

	t.Run("wrong secret", func(t *testing.T) {
		raw := respond(t, req, []byte("other"), radius.CodeAccessReject)
		assert.ErrorIs(t, CheckReply(raw, BufferLength, secret, req.Vector, req.Identifier), ErrDigestMismatch)
	})

	t.Run("short length", func(t *testing.T) {
		raw := respond(t, req, secret, radius.CodeAccessAccept)
		raw[2], raw[3] = 0, 19
		assert.ErrorIs(t, CheckReply(raw, BufferLength, secret, req.Vector, req.Identifier), ErrMalformedPacket)
	})

	t.Run("no room for secret", func(t *testing.T) {
		raw := respond(t, req, secret, radius.CodeAccessAccept)
		assert.ErrorIs(t, CheckReply(raw, len(raw), secret, req.Vector, req.Identifier), ErrMalformedPacket)
	})

	t.Run("length checked before identifier", func(t *testing.T) {
		raw := respond(t, req, secret, radius.CodeAccessAccept)
		raw[2], raw[3] = 0x10, 0x01
		assert.ErrorIs(t, CheckReply(raw, BufferLength, secret, req.Vector, req.Identifier+1), ErrMalformedPacket)
	})
}
