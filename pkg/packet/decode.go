package packet

import (
	"encoding/binary"
	"fmt"
)

// TypeResolver maps an attribute to its value type. It stands in for the
// attribute dictionary; attributes it does not know should map to TypeString.
type TypeResolver func(AttributeID) ValueType

var standardTypes = map[uint8]ValueType{
	AttributeNASIPAddress:     TypeIPv4Addr,
	AttributeNASPort:          TypeInteger,
	AttributeServiceType:      TypeInteger,
	8:                         TypeIPv4Addr, // Framed-IP-Address
	AttributeSessionTimeout:   TypeInteger,
	28:                        TypeInteger, // Idle-Timeout
	AttributeAcctStatusType:   TypeInteger,
	AttributeAcctDelayTime:    TypeInteger,
	AttributeEventTimestamp:   TypeDate,
	AttributeNASIPv6Address:   TypeIPv6Addr,
	AttributeFramedIPv6Prefix: TypeIPv6Prefix,
	61:                        TypeInteger, // NAS-Port-Type
}

// StandardTypes resolves the RFC 2865/2866 attributes the client itself
// works with. Everything else is a string.
func StandardTypes(attr AttributeID) ValueType {
	if attr.Vendor() != 0 {
		return TypeString
	}
	if t, ok := standardTypes[attr.Type()]; ok {
		return t
	}
	return TypeString
}

// ValidateAttributes walks the attribute area without producing pairs.
func ValidateAttributes(body []byte) error {
	c := newCursor(body)
	for c.remaining() > 0 {
		typ, _, err := c.tlv()
		if err != nil {
			return err
		}
		if typ == 0 {
			return fmt.Errorf("%w: attribute type zero", ErrMalformedPacket)
		}
	}
	return nil
}

// DecodeAttributes parses the attribute area of a packet. On any structural
// error no pairs are returned.
func DecodeAttributes(body []byte, resolve TypeResolver) (Pairs, error) {
	if resolve == nil {
		resolve = func(AttributeID) ValueType { return TypeString }
	}

	var pairs Pairs
	c := newCursor(body)
	for c.remaining() > 0 {
		start := c.offset()
		typ, value, err := c.tlv()
		if err != nil {
			return nil, err
		}
		if typ == 0 {
			return nil, fmt.Errorf("%w: attribute type zero at offset %d", ErrMalformedPacket, start)
		}

		if typ == AttributeVendorSpecific {
			if vsa, ok := decodeVendor(value, resolve); ok {
				pairs = append(pairs, vsa...)
				continue
			}
		}
		pairs = append(pairs, newDecodedPair(Standard(typ), value, resolve))
	}
	return pairs, nil
}

// decodeVendor splits a Vendor-Specific payload into vendor pairs. Payloads
// that do not follow the RFC 2865 suggested format are left to the caller.
func decodeVendor(value []byte, resolve TypeResolver) (Pairs, bool) {
	c := newCursor(value)
	vendor, err := c.readUint32()
	if err != nil || vendor == 0 || vendor > 0xffffff || c.remaining() == 0 {
		return nil, false
	}

	var pairs Pairs
	for c.remaining() > 0 {
		typ, inner, err := c.tlv()
		if err != nil {
			return nil, false
		}
		pairs = append(pairs, newDecodedPair(MakeAttributeID(vendor, typ), inner, resolve))
	}
	return pairs, true
}

func newDecodedPair(attr AttributeID, value []byte, resolve TypeResolver) Pair {
	v := make([]byte, len(value))
	copy(v, value)
	p := Pair{Attribute: attr, Type: resolve(attr), Value: v}
	if _, err := p.wireLength(); err != nil {
		// the dictionary disagrees with the wire; keep the octets
		p.Type = TypeString
	}
	return p
}

// VendorOf returns the vendor code of a raw Vendor-Specific payload.
func VendorOf(value []byte) (uint32, bool) {
	if len(value) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(value[:4]), true
}
