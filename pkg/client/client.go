package client

import (
	"fmt"
	"math/rand/v2"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/vitalvas/radcli/pkg/log"
	"github.com/vitalvas/radcli/pkg/packet"
	"github.com/vitalvas/radcli/pkg/transport"
)

// Client sends RADIUS requests to the configured servers. It holds no
// per-exchange state; every exchange owns its socket.
type Client struct {
	cfg       *Config
	transport transport.Transport
	logger    log.Logger
	metrics   *Metrics
	failover  *Failover
	resolver  Resolver
	types     packet.TypeResolver

	bindAddr netip.Addr
	nasAddr  netip.Addr

	sourceAddr func(remote netip.Addr) (netip.Addr, error)
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(c *Client) {
		cp := *cfg
		c.cfg = &cp
	}
}

// WithTransport sets the transport, overriding Config.Transport.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics records exchanges into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithFailover guards the servers tried by Auth and Acct with circuit
// breakers.
func WithFailover(f *Failover) Option {
	return func(c *Client) {
		c.failover = f
	}
}

// WithTypeResolver sets the dictionary used to type received attributes.
func WithTypeResolver(r packet.TypeResolver) Option {
	return func(c *Client) {
		c.types = r
	}
}

// WithResolver sets the host name resolver.
func WithResolver(r Resolver) Option {
	return func(c *Client) {
		c.resolver = r
	}
}

// WithSourceAddr replaces the route probe used to pick the local address
// when the bind address is unspecified.
func WithSourceAddr(fn func(remote netip.Addr) (netip.Addr, error)) Option {
	return func(c *Client) {
		c.sourceAddr = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client. Without WithConfig the defaults apply and no
// servers are configured.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		cfg:        DefaultConfig(),
		resolver:   net.DefaultResolver,
		types:      packet.StandardTypes,
		sourceAddr: transport.SourceAddr,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = log.NewDiscardLogger()
	}

	c.cfg.applyDefaults()
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	if c.cfg.BindAddr != "" {
		c.bindAddr = netip.MustParseAddr(c.cfg.BindAddr).Unmap()
	}
	if c.cfg.NASAddr != "" {
		c.nasAddr = netip.MustParseAddr(c.cfg.NASAddr).Unmap()
	}

	if c.transport == nil {
		switch strings.ToLower(c.cfg.Transport) {
		case "tcp":
			c.transport = transport.TCP()
		default:
			c.transport = transport.UDP()
		}
	}

	c.logger.Debugf("RADIUS client over %s, timeout %s, retries %d", c.transport.Name(), c.cfg.Timeout, c.cfg.Retries)
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return *c.cfg
}

// Transport returns the transport the client opens sockets with.
func (c *Client) Transport() transport.Transport {
	return c.transport
}

// secretFor picks the shared secret for a request to srv. Administrative
// requests use the fixed management secret; otherwise an explicit secret
// on srv wins over the configured server lists. Secrets longer than
// packet.MaxSecretLength are rejected.
func (c *Client) secretFor(srv Server, code packet.Code, pairs packet.Pairs) ([]byte, error) {
	if p, ok := pairs.Get(packet.Standard(packet.AttributeServiceType)); ok {
		if v, err := p.Integer(); err == nil && v == packet.ServiceTypeAdministrative {
			return []byte(packet.ManagementSecret), nil
		}
	}
	if srv.Secret != "" {
		if err := checkSecret(srv); err != nil {
			return nil, err
		}
		return []byte(srv.Secret), nil
	}

	lists := []ServerList{c.cfg.AuthServers, c.cfg.AcctServers}
	if code.IsAccounting() {
		lists[0], lists[1] = lists[1], lists[0]
	}
	for _, l := range lists {
		if s, ok := l.Find(srv.Host, srv.Port); ok && s.Secret != "" {
			if err := checkSecret(s); err != nil {
				return nil, err
			}
			return []byte(s.Secret), nil
		}
	}
	return nil, fmt.Errorf("%w: no secret for server %s", ErrInvalidConfig, srv)
}

// localAddr returns the address to bind a socket to when talking to
// remote. An unspecified bind address is replaced by the source address
// the route to remote selects.
func (c *Client) localAddr(remote netip.Addr) (netip.Addr, error) {
	local := c.bindAddr
	if !local.IsValid() {
		local = transport.Wildcard(remote)
	}
	if !local.IsUnspecified() {
		return local, nil
	}

	src, err := c.sourceAddr(remote)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to find source address for %s: %w", remote, err)
	}
	return src.Unmap(), nil
}

// fillNAS adds the NAS address attributes to pairs. A configured NAS
// address replaces any present; otherwise local is added when neither
// NAS-IP-Address nor NAS-IPv6-Address is given.
func (c *Client) fillNAS(pairs *packet.Pairs, local netip.Addr) error {
	v4 := packet.Standard(packet.AttributeNASIPAddress)
	v6 := packet.Standard(packet.AttributeNASIPv6Address)

	addr := local
	if c.nasAddr.IsValid() {
		pairs.Remove(v4)
		pairs.Remove(v6)
		addr = c.nasAddr
	} else if pairs.Has(v4) || pairs.Has(v6) {
		addr = netip.Addr{}
	}

	if addr.IsValid() && !addr.IsUnspecified() {
		var p packet.Pair
		var err error
		if addr.Is4() {
			p, err = packet.NewIPv4(v4, addr)
		} else {
			p, err = packet.NewIPv6(v6, addr)
		}
		if err != nil {
			return err
		}
		pairs.Add(p)
	}

	if c.cfg.NASIdentifier != "" {
		pairs.Replace(packet.NewString(packet.Standard(packet.AttributeNASIdentifier), c.cfg.NASIdentifier))
	}
	return nil
}

func (c *Client) timeoutFor(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return c.cfg.Timeout
}

// randomIdentifier returns a fresh request identifier.
func randomIdentifier() uint8 {
	return uint8(rand.UintN(256))
}
