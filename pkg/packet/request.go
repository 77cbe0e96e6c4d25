package packet

import (
	"fmt"

	"github.com/vitalvas/radcli/pkg/crypto"
)

// Request is an encoded request together with the values needed to check
// its response.
type Request struct {
	Code       Code
	Identifier uint8
	Vector     [AuthenticatorLength]byte
	Raw        []byte
}

// EncodeRequest serialises a request into dst and signs it.
//
// Accounting-Request carries MD5 over the packet with a zero authenticator
// followed by the secret; every other code carries a random authenticator.
// A Message-Authenticator is appended when the pairs contain an EAP-Message,
// and always for Status-Server.
func EncodeRequest(dst []byte, code Code, identifier uint8, pairs Pairs, secret []byte) (*Request, error) {
	if !code.IsRequest() {
		return nil, fmt.Errorf("%w: %s", ErrNotRequest, code)
	}
	if len(dst) < HeaderLength {
		return nil, fmt.Errorf("%w: header needs %d bytes", ErrBufferTooSmall, HeaderLength)
	}
	if len(dst) > MaxPacketLength {
		dst = dst[:MaxPacketLength]
	}

	random := !code.IsAccounting()
	var vector [AuthenticatorLength]byte
	if random {
		vector = crypto.RandomVector()
	}

	n, err := EncodeAttributes(dst[HeaderLength:], pairs, secret, vector)
	if err != nil {
		return nil, err
	}
	n += HeaderLength

	h := Header{Code: code, Identifier: identifier, Length: uint16(n), Authenticator: vector}
	if err := h.MarshalTo(dst); err != nil {
		return nil, err
	}

	raw := dst[:n]
	if random && (code == CodeStatusServer || pairs.Has(Standard(AttributeEAPMessage))) {
		raw, err = crypto.AppendMessageAuthenticator(raw, secret)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBufferTooSmall, err)
		}
	}

	if !random {
		vector = crypto.CalculateRequestAuthenticator(byte(code), identifier, uint16(len(raw)), raw[HeaderLength:], secret)
		copy(raw[4:HeaderLength], vector[:])
	}

	return &Request{Code: code, Identifier: identifier, Vector: vector, Raw: raw}, nil
}
