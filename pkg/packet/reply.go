package packet

import (
	"fmt"

	"github.com/vitalvas/radcli/pkg/crypto"
)

// CheckReply validates a received response against the request that produced
// it. capacity is the size of the receive buffer the response was read into;
// the declared length plus the secret must fit in it.
//
// ErrIdentifierMismatch means the packet answers a different request and
// should be discarded while the caller keeps waiting.
func CheckReply(data []byte, capacity int, secret []byte, vector [AuthenticatorLength]byte, identifier uint8) error {
	h, err := ParseHeader(data)
	if err != nil {
		return err
	}
	if int(h.Length)+len(secret) > capacity {
		return fmt.Errorf("%w: not enough buffer space to verify a %d byte response", ErrMalformedPacket, h.Length)
	}
	if h.Identifier != identifier {
		return fmt.Errorf("%w: expected %d, got %d", ErrIdentifierMismatch, identifier, h.Identifier)
	}

	ok := crypto.ValidateResponseAuthenticator(uint8(h.Code), h.Identifier, h.Length,
		crypto.Authenticator(vector), data[HeaderLength:h.Length],
		crypto.Authenticator(h.Authenticator), secret)
	if !ok {
		return fmt.Errorf("%w: code %s id %d", ErrDigestMismatch, h.Code, h.Identifier)
	}
	return nil
}
