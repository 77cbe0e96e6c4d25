package client

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/vitalvas/radcli/pkg/packet"
)

const (
	// DefaultAuthPort is the RADIUS authentication port (RFC 2865).
	DefaultAuthPort = 1812
	// DefaultAcctPort is the RADIUS accounting port (RFC 2866).
	DefaultAcctPort = 1813
)

// Server is one RADIUS server: a host name or address, a port and the
// shared secret.
type Server struct {
	Host   string `yaml:"host"`
	Port   uint16 `yaml:"port"`
	Secret string `yaml:"secret"`
}

func (s Server) String() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(int(s.Port)))
}

// ParseServer parses "host[:port[:secret]]". IPv6 hosts are written in
// brackets, "[2001:db8::1]:1812:secret". A missing or empty port becomes
// defaultPort. Secrets longer than packet.MaxSecretLength are rejected.
func ParseServer(s string, defaultPort uint16) (Server, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Server{}, fmt.Errorf("%w: empty server", ErrInvalidConfig)
	}

	var host, rest string
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return Server{}, fmt.Errorf("%w: %q: missing ']'", ErrInvalidConfig, s)
		}
		host = s[1:end]
		rest = strings.TrimPrefix(s[end+1:], ":")
	} else {
		host, rest, _ = strings.Cut(s, ":")
	}
	if host == "" {
		return Server{}, fmt.Errorf("%w: %q: empty host", ErrInvalidConfig, s)
	}

	portStr, secret, _ := strings.Cut(rest, ":")
	srv := Server{Host: host, Port: defaultPort, Secret: secret}
	if portStr != "" {
		p, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil || p == 0 {
			return Server{}, fmt.Errorf("%w: %q: bad port %q", ErrInvalidConfig, s, portStr)
		}
		srv.Port = uint16(p)
	}
	if err := checkSecret(srv); err != nil {
		return Server{}, err
	}
	return srv, nil
}

func checkSecret(s Server) error {
	if len(s.Secret) > packet.MaxSecretLength {
		return fmt.Errorf("%w: server %s: secret longer than %d bytes", ErrInvalidConfig, s, packet.MaxSecretLength)
	}
	return nil
}

// withDefaultPort fills a zero port with the standard port for code.
func (s Server) withDefaultPort(code packet.Code) Server {
	if s.Port != 0 {
		return s
	}
	s.Port = DefaultAuthPort
	if code.IsAccounting() {
		s.Port = DefaultAcctPort
	}
	return s
}

// ParseServers parses a list of servers separated by commas or whitespace.
func ParseServers(s string, defaultPort uint16) (ServerList, error) {
	var list ServerList
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		srv, err := ParseServer(f, defaultPort)
		if err != nil {
			return nil, err
		}
		list = append(list, srv)
	}
	return list, nil
}

// ServerList is an ordered list of servers tried one after another.
type ServerList []Server

// Find returns the first entry with the given host and, when port is non
// zero, port.
func (l ServerList) Find(host string, port uint16) (Server, bool) {
	for _, s := range l {
		if s.Host == host && (port == 0 || s.Port == port) {
			return s, true
		}
	}
	return Server{}, false
}

// Resolver looks up the addresses of a host.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// resolve returns the first address of the server's host, preferring a
// literal address.
func resolve(ctx context.Context, r Resolver, s Server) (netip.AddrPort, error) {
	if addr, err := netip.ParseAddr(s.Host); err == nil {
		return netip.AddrPortFrom(addr.Unmap(), s.Port), nil
	}
	addrs, err := r.LookupNetIP(ctx, "ip", s.Host)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("resolve %s: %w", s.Host, err)
	}
	if len(addrs) == 0 {
		return netip.AddrPort{}, fmt.Errorf("resolve %s: no addresses", s.Host)
	}
	return netip.AddrPortFrom(addrs[0].Unmap(), s.Port), nil
}
