package packet

import "fmt"

// Packet is a decoded RADIUS packet.
type Packet struct {
	Header
	Pairs Pairs
}

// Decode validates raw and returns the packet it holds. Bytes after the
// declared length are ignored.
func Decode(raw []byte, resolve TypeResolver) (*Packet, error) {
	h, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	pairs, err := DecodeAttributes(raw[HeaderLength:h.Length], resolve)
	if err != nil {
		return nil, err
	}
	return &Packet{Header: h, Pairs: pairs}, nil
}

// String returns a one-line summary of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("Code=%s(%d), ID=%d, Length=%d, Attributes=%d",
		p.Code.String(), p.Code, p.Identifier, p.Length, len(p.Pairs))
}
