package client

import (
	"github.com/vitalvas/radcli/pkg/crypto"
	"github.com/vitalvas/radcli/pkg/packet"
)

// AaaContext captures the shared secret and request authenticator of a
// completed exchange, for decoding attributes that are encrypted with
// them. A context can be populated once; Release scrubs it.
type AaaContext struct {
	secret    []byte
	vector    [packet.AuthenticatorLength]byte
	populated bool
}

func (c *AaaContext) populate(secret []byte, vector [packet.AuthenticatorLength]byte) error {
	if c == nil {
		return nil
	}
	if c.populated {
		return ErrContextPopulated
	}
	c.secret = append([]byte(nil), secret...)
	c.vector = vector
	c.populated = true
	return nil
}

// Populated reports whether an exchange has filled the context.
func (c *AaaContext) Populated() bool {
	return c != nil && c.populated
}

// Secret returns the shared secret used by the exchange.
func (c *AaaContext) Secret() []byte {
	return c.secret
}

// RequestAuthenticator returns the authenticator of the request.
func (c *AaaContext) RequestAuthenticator() [packet.AuthenticatorLength]byte {
	return c.vector
}

// Release scrubs the captured secret so the context can be discarded.
func (c *AaaContext) Release() {
	if c == nil {
		return
	}
	crypto.Zero(c.secret)
	crypto.Zero(c.vector[:])
	c.secret = nil
	c.populated = false
}
