package packet

import "fmt"

// cursor reads a byte slice front to back and refuses any read past its end.
// All attribute parsing goes through it.
type cursor struct {
	buf []byte
	off int
}

func newCursor(b []byte) *cursor {
	return &cursor{buf: b}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) offset() int {
	return c.off
}

func (c *cursor) readByte() (byte, error) {
	if c.remaining() < 1 {
		return 0, fmt.Errorf("%w: read past end at offset %d", ErrMalformedPacket, c.off)
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

func (c *cursor) readUint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// take returns the next n bytes without copying.
func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, fmt.Errorf("%w: %d bytes requested at offset %d, %d remaining", ErrMalformedPacket, n, c.off, c.remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// tlv reads one type-length-value triple. The length octet covers the two
// header octets.
func (c *cursor) tlv() (typ uint8, value []byte, err error) {
	start := c.off
	typ, err = c.readByte()
	if err != nil {
		return 0, nil, err
	}
	length, err := c.readByte()
	if err != nil {
		return 0, nil, err
	}
	if length < AttributeHeaderLength {
		return 0, nil, fmt.Errorf("%w: attribute %d at offset %d has length %d", ErrMalformedPacket, typ, start, length)
	}
	value, err = c.take(int(length) - AttributeHeaderLength)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: attribute %d at offset %d overflows the packet", ErrMalformedPacket, typ, start)
	}
	return typ, value, nil
}
