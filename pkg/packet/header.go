package packet

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed 20-octet RADIUS header.
type Header struct {
	Code          Code
	Identifier    uint8
	Length        uint16
	Authenticator [AuthenticatorLength]byte
}

// ParseHeader reads the header at the start of b and checks the declared
// length against the protocol bounds and against len(b).
func ParseHeader(b []byte) (Header, error) {
	c := newCursor(b)
	raw, err := c.take(HeaderLength)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than a header", ErrMalformedPacket, len(b))
	}

	h := Header{
		Code:       Code(raw[0]),
		Identifier: raw[1],
		Length:     binary.BigEndian.Uint16(raw[2:4]),
	}
	copy(h.Authenticator[:], raw[4:HeaderLength])

	if h.Length < MinPacketLength || h.Length > MaxPacketLength {
		return Header{}, fmt.Errorf("%w: declared length %d outside [%d, %d]", ErrMalformedPacket, h.Length, MinPacketLength, MaxPacketLength)
	}
	if int(h.Length) > len(b) {
		return Header{}, fmt.Errorf("%w: declared length %d, received %d", ErrMalformedPacket, h.Length, len(b))
	}
	return h, nil
}

// MarshalTo writes the header into the first 20 bytes of b.
func (h Header) MarshalTo(b []byte) error {
	if len(b) < HeaderLength {
		return fmt.Errorf("%w: header needs %d bytes", ErrBufferTooSmall, HeaderLength)
	}
	b[0] = byte(h.Code)
	b[1] = h.Identifier
	binary.BigEndian.PutUint16(b[2:4], h.Length)
	copy(b[4:HeaderLength], h.Authenticator[:])
	return nil
}

// DeclaredLength returns the length field of a buffer holding at least the
// first four header octets, or 0.
func DeclaredLength(b []byte) int {
	if len(b) < 4 {
		return 0
	}
	return int(binary.BigEndian.Uint16(b[2:4]))
}
