package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/vitalvas/radcli/pkg/crypto"
)

// writer appends into a fixed buffer and fails instead of growing it.
type writer struct {
	buf []byte
	off int
}

func (w *writer) reserve(n int) ([]byte, error) {
	if n > len(w.buf)-w.off {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, capacity %d", ErrBufferTooSmall, n, w.off, len(w.buf))
	}
	b := w.buf[w.off : w.off+n]
	w.off += n
	return b, nil
}

// EncodeAttributes writes pairs as TLVs into dst in list order and returns
// the number of bytes written. vector is the request authenticator, used to
// obfuscate User-Password.
func EncodeAttributes(dst []byte, pairs Pairs, secret []byte, vector [AuthenticatorLength]byte) (int, error) {
	w := &writer{buf: dst}
	for _, p := range pairs {
		if err := w.pair(p, secret, vector); err != nil {
			return 0, err
		}
	}
	return w.off, nil
}

func (w *writer) pair(p Pair, secret []byte, vector [AuthenticatorLength]byte) error {
	value := p.Value
	if p.Attribute == Standard(AttributeUserPassword) {
		value = crypto.EncryptPassword(p.Value, secret, crypto.Authenticator(vector))
	} else if _, err := p.wireLength(); err != nil {
		return err
	}

	vendor := p.Attribute.Vendor()
	if vendor == 0 {
		if len(value) > MaxAttributeValueLength {
			return fmt.Errorf("%w: attribute %s has %d octets", ErrValueTooLong, p.Attribute, len(value))
		}
		b, err := w.reserve(AttributeHeaderLength + len(value))
		if err != nil {
			return err
		}
		b[0] = p.Attribute.Type()
		b[1] = byte(len(b))
		copy(b[2:], value)
		return nil
	}

	if len(value) > MaxVendorValueLength {
		return fmt.Errorf("%w: vendor attribute %s has %d octets", ErrValueTooLong, p.Attribute, len(value))
	}
	b, err := w.reserve(VendorSpecificHeaderLength + AttributeHeaderLength + len(value))
	if err != nil {
		return err
	}
	b[0] = AttributeVendorSpecific
	b[1] = byte(len(b))
	binary.BigEndian.PutUint32(b[2:6], vendor)
	b[6] = p.Attribute.Type()
	b[7] = byte(AttributeHeaderLength + len(value))
	copy(b[8:], value)
	return nil
}

// EncodedLength returns the number of octets pairs occupy on the wire.
func EncodedLength(pairs Pairs) int {
	n := 0
	for _, p := range pairs {
		l := len(p.Value)
		if p.Attribute == Standard(AttributeUserPassword) {
			l = crypto.PaddedPasswordLength(len(p.Value))
		}
		n += AttributeHeaderLength + l
		if p.Attribute.Vendor() != 0 {
			n += VendorSpecificHeaderLength
		}
	}
	return n
}
