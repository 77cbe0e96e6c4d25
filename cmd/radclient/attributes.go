package main

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/vitalvas/radcli/pkg/packet"
)

type attrDef struct {
	name string
	id   packet.AttributeID
	typ  packet.ValueType
}

func std(name string, typ uint8, vt packet.ValueType) attrDef {
	return attrDef{name: name, id: packet.Standard(typ), typ: vt}
}

// attributes is the small dictionary the tool understands on input and
// uses to print replies.
var attributes = []attrDef{
	std("User-Name", packet.AttributeUserName, packet.TypeString),
	std("User-Password", packet.AttributeUserPassword, packet.TypeString),
	std("CHAP-Password", packet.AttributeCHAPPassword, packet.TypeString),
	std("NAS-IP-Address", packet.AttributeNASIPAddress, packet.TypeIPv4Addr),
	std("NAS-Port", packet.AttributeNASPort, packet.TypeInteger),
	std("Service-Type", packet.AttributeServiceType, packet.TypeInteger),
	std("Framed-IP-Address", 8, packet.TypeIPv4Addr),
	std("Filter-Id", 11, packet.TypeString),
	std("Reply-Message", packet.AttributeReplyMessage, packet.TypeString),
	std("State", packet.AttributeState, packet.TypeString),
	std("Class", packet.AttributeClass, packet.TypeString),
	std("Session-Timeout", packet.AttributeSessionTimeout, packet.TypeInteger),
	std("Idle-Timeout", 28, packet.TypeInteger),
	std("Called-Station-Id", packet.AttributeCalledStationID, packet.TypeString),
	std("Calling-Station-Id", packet.AttributeCallingStationID, packet.TypeString),
	std("NAS-Identifier", packet.AttributeNASIdentifier, packet.TypeString),
	std("Acct-Status-Type", packet.AttributeAcctStatusType, packet.TypeInteger),
	std("Acct-Delay-Time", packet.AttributeAcctDelayTime, packet.TypeInteger),
	std("Acct-Input-Octets", 42, packet.TypeInteger),
	std("Acct-Output-Octets", 43, packet.TypeInteger),
	std("Acct-Session-Id", packet.AttributeAcctSessionID, packet.TypeString),
	std("Acct-Session-Time", 46, packet.TypeInteger),
	std("Acct-Terminate-Cause", 49, packet.TypeInteger),
	std("Event-Timestamp", packet.AttributeEventTimestamp, packet.TypeDate),
	std("CHAP-Challenge", packet.AttributeCHAPChallenge, packet.TypeString),
	std("NAS-Port-Type", 61, packet.TypeInteger),
	std("EAP-Message", packet.AttributeEAPMessage, packet.TypeString),
	std("NAS-IPv6-Address", packet.AttributeNASIPv6Address, packet.TypeIPv6Addr),
	std("Framed-IPv6-Prefix", packet.AttributeFramedIPv6Prefix, packet.TypeIPv6Prefix),
}

var (
	attrByName = map[string]attrDef{}
	attrByID   = map[packet.AttributeID]attrDef{}
)

func init() {
	for _, a := range attributes {
		attrByName[strings.ToLower(a.name)] = a
		attrByID[a.id] = a
	}
}

// resolveType is the client's type resolver for received attributes.
func resolveType(id packet.AttributeID) packet.ValueType {
	if a, ok := attrByID[id]; ok {
		return a.typ
	}
	return packet.TypeString
}

func attrName(id packet.AttributeID) string {
	if a, ok := attrByID[id]; ok {
		return a.name
	}
	return id.String()
}

// newPair builds a pair from its textual value.
func newPair(a attrDef, value string) (packet.Pair, error) {
	switch a.typ {
	case packet.TypeInteger:
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return packet.Pair{}, fmt.Errorf("%s: %w", a.name, err)
		}
		return packet.NewInteger(a.id, uint32(n)), nil
	case packet.TypeDate:
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			t, perr := time.Parse(time.RFC3339, value)
			if perr != nil {
				return packet.Pair{}, fmt.Errorf("%s: %w", a.name, perr)
			}
			return packet.NewDate(a.id, t), nil
		}
		return packet.NewDate(a.id, time.Unix(int64(n), 0)), nil
	case packet.TypeIPv4Addr:
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return packet.Pair{}, fmt.Errorf("%s: %w", a.name, err)
		}
		return packet.NewIPv4(a.id, addr)
	case packet.TypeIPv6Addr:
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return packet.Pair{}, fmt.Errorf("%s: %w", a.name, err)
		}
		return packet.NewIPv6(a.id, addr)
	case packet.TypeIPv6Prefix:
		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return packet.Pair{}, fmt.Errorf("%s: %w", a.name, err)
		}
		return packet.NewIPv6Prefix(a.id, prefix)
	default:
		return packet.NewString(a.id, value), nil
	}
}

// parseAttributes reads "Name = value" lines. Blank lines and lines
// starting with '#' are skipped; values may be double quoted.
func parseAttributes(r io.Reader) (packet.Pairs, error) {
	var pairs packet.Pairs
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid attribute format: %q (expected 'Name = value')", line)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if unq, err := strconv.Unquote(value); err == nil {
			value = unq
		}

		a, ok := attrByName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown attribute %q", name)
		}
		p, err := newPair(a, value)
		if err != nil {
			return nil, err
		}
		pairs.Add(p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return pairs, nil
}

func printPairs(w io.Writer, pairs packet.Pairs) {
	for _, p := range pairs {
		fmt.Fprintf(w, "\t%s = %s\n", attrName(p.Attribute), p.String())
	}
}
