package packet

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"
)

// AttributeID identifies an attribute. The vendor private enterprise code
// lives in the high 24 bits and the type code in the low 8 bits; vendor 0
// means a standard attribute.
type AttributeID uint32

// MakeAttributeID combines a vendor code and a type code.
func MakeAttributeID(vendor uint32, typ uint8) AttributeID {
	return AttributeID(vendor<<8 | uint32(typ))
}

// Standard returns the AttributeID of a non-vendor attribute.
func Standard(typ uint8) AttributeID {
	return AttributeID(typ)
}

// Vendor returns the vendor code, 0 for standard attributes.
func (a AttributeID) Vendor() uint32 {
	return uint32(a) >> 8
}

// Type returns the attribute type code.
func (a AttributeID) Type() uint8 {
	return uint8(a)
}

func (a AttributeID) String() string {
	if a.Vendor() != 0 {
		return fmt.Sprintf("%d:%d", a.Vendor(), a.Type())
	}
	return fmt.Sprintf("%d", a.Type())
}

// ValueType is the wire representation of an attribute value.
type ValueType uint8

const (
	TypeString ValueType = iota
	TypeInteger
	TypeIPv4Addr
	TypeIPv6Addr
	TypeIPv6Prefix
	TypeDate
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeIPv4Addr:
		return "ipaddr"
	case TypeIPv6Addr:
		return "ipv6addr"
	case TypeIPv6Prefix:
		return "ipv6prefix"
	case TypeDate:
		return "date"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Pair is one attribute/value pair. Value holds the attribute payload as it
// appears on the wire, except for User-Password which is kept in clear text
// and obfuscated during encoding.
type Pair struct {
	Attribute AttributeID
	Type      ValueType
	Value     []byte
}

// NewString creates a string attribute.
func NewString(attr AttributeID, value string) Pair {
	return Pair{Attribute: attr, Type: TypeString, Value: []byte(value)}
}

// NewBytes creates a string attribute carrying opaque octets.
func NewBytes(attr AttributeID, value []byte) Pair {
	v := make([]byte, len(value))
	copy(v, value)
	return Pair{Attribute: attr, Type: TypeString, Value: v}
}

// NewInteger creates a 32-bit integer attribute.
func NewInteger(attr AttributeID, value uint32) Pair {
	return Pair{Attribute: attr, Type: TypeInteger, Value: binary.BigEndian.AppendUint32(nil, value)}
}

// NewIPv4 creates an IPv4 address attribute.
func NewIPv4(attr AttributeID, addr netip.Addr) (Pair, error) {
	if !addr.Is4() {
		return Pair{}, fmt.Errorf("%w: %s is not an IPv4 address", ErrInvalidValue, addr)
	}
	a := addr.As4()
	return Pair{Attribute: attr, Type: TypeIPv4Addr, Value: a[:]}, nil
}

// NewIPv6 creates an IPv6 address attribute.
func NewIPv6(attr AttributeID, addr netip.Addr) (Pair, error) {
	if !addr.Is6() || addr.Is4In6() {
		return Pair{}, fmt.Errorf("%w: %s is not an IPv6 address", ErrInvalidValue, addr)
	}
	a := addr.As16()
	return Pair{Attribute: attr, Type: TypeIPv6Addr, Value: a[:]}, nil
}

// NewIPv6Prefix creates an IPv6 prefix attribute (RFC 3162): a reserved
// octet, the prefix length, then only as many prefix octets as needed.
func NewIPv6Prefix(attr AttributeID, prefix netip.Prefix) (Pair, error) {
	if !prefix.IsValid() || !prefix.Addr().Is6() {
		return Pair{}, fmt.Errorf("%w: %s is not an IPv6 prefix", ErrInvalidValue, prefix)
	}
	prefix = prefix.Masked()
	bits := prefix.Bits()
	a := prefix.Addr().As16()
	n := (bits + 7) / 8
	v := make([]byte, 2+n)
	v[1] = byte(bits)
	copy(v[2:], a[:n])
	return Pair{Attribute: attr, Type: TypeIPv6Prefix, Value: v}, nil
}

// NewDate creates a date attribute, seconds since the Unix epoch.
func NewDate(attr AttributeID, t time.Time) Pair {
	return Pair{Attribute: attr, Type: TypeDate, Value: binary.BigEndian.AppendUint32(nil, uint32(t.Unix()))}
}

// Integer returns the value of an integer or date attribute.
func (p Pair) Integer() (uint32, error) {
	if len(p.Value) != 4 {
		return 0, fmt.Errorf("%w: integer needs 4 octets, got %d", ErrInvalidValue, len(p.Value))
	}
	return binary.BigEndian.Uint32(p.Value), nil
}

// Addr returns the value of an IPv4 or IPv6 address attribute.
func (p Pair) Addr() (netip.Addr, error) {
	addr, ok := netip.AddrFromSlice(p.Value)
	if !ok {
		return netip.Addr{}, fmt.Errorf("%w: address has %d octets", ErrInvalidValue, len(p.Value))
	}
	return addr, nil
}

// Prefix returns the value of an IPv6 prefix attribute.
func (p Pair) Prefix() (netip.Prefix, error) {
	if len(p.Value) < 2 || len(p.Value) > 18 || int(p.Value[1]) > 128 {
		return netip.Prefix{}, fmt.Errorf("%w: bad ipv6 prefix", ErrInvalidValue)
	}
	var a [16]byte
	copy(a[:], p.Value[2:])
	return netip.AddrFrom16(a).Prefix(int(p.Value[1]))
}

// Time returns the value of a date attribute.
func (p Pair) Time() (time.Time, error) {
	v, err := p.Integer()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(v), 0).UTC(), nil
}

// String renders the value according to its type.
func (p Pair) String() string {
	switch p.Type {
	case TypeInteger:
		if v, err := p.Integer(); err == nil {
			return fmt.Sprintf("%d", v)
		}
	case TypeIPv4Addr, TypeIPv6Addr:
		if a, err := p.Addr(); err == nil {
			return a.String()
		}
	case TypeIPv6Prefix:
		if pfx, err := p.Prefix(); err == nil {
			return pfx.String()
		}
	case TypeDate:
		if t, err := p.Time(); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	return string(p.Value)
}

// wireLength returns the number of value octets p occupies on the wire.
func (p Pair) wireLength() (int, error) {
	switch p.Type {
	case TypeInteger, TypeIPv4Addr, TypeDate:
		if len(p.Value) != 4 {
			return 0, fmt.Errorf("%w: attribute %s (%s) needs 4 octets, got %d", ErrInvalidValue, p.Attribute, p.Type, len(p.Value))
		}
	case TypeIPv6Addr:
		if len(p.Value) != 16 {
			return 0, fmt.Errorf("%w: attribute %s needs 16 octets, got %d", ErrInvalidValue, p.Attribute, len(p.Value))
		}
	case TypeIPv6Prefix:
		if len(p.Value) < 2 || len(p.Value) > 18 {
			return 0, fmt.Errorf("%w: attribute %s prefix has %d octets", ErrInvalidValue, p.Attribute, len(p.Value))
		}
	case TypeString:
	default:
		return 0, fmt.Errorf("%w: attribute %s has unknown type %d", ErrInvalidValue, p.Attribute, p.Type)
	}
	return len(p.Value), nil
}
