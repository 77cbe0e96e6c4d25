package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitalvas/radcli/pkg/packet"
)

// Auth sends an Access-Request to the configured authentication servers in
// order, moving to the next one until a server accepts, rejects or
// challenges. NAS-Port is added when send has none.
func (c *Client) Auth(ctx context.Context, nasPort uint32, send packet.Pairs, aaa *AaaContext) (*Reply, error) {
	pairs := send.Clone()
	if !pairs.Has(packet.Standard(packet.AttributeNASPort)) {
		pairs.Add(packet.NewInteger(packet.Standard(packet.AttributeNASPort), nasPort))
	}
	return c.iterate(ctx, c.cfg.AuthServers, packet.CodeAccessRequest, pairs, aaa, nil)
}

// Acct sends an Accounting-Request to the configured accounting servers in
// order. Acct-Delay-Time is kept current for each attempt, on top of any
// value send already carries.
func (c *Client) Acct(ctx context.Context, nasPort uint32, send packet.Pairs) (*Reply, error) {
	pairs := send.Clone()
	if !pairs.Has(packet.Standard(packet.AttributeNASPort)) {
		pairs.Add(packet.NewInteger(packet.Standard(packet.AttributeNASPort), nasPort))
	}

	attr := packet.Standard(packet.AttributeAcctDelayTime)
	var base uint32
	if p, ok := pairs.Get(attr); ok {
		base, _ = p.Integer()
	}
	start := c.now()

	return c.iterate(ctx, c.cfg.AcctServers, packet.CodeAccountingRequest, pairs, nil, func(p *packet.Pairs) {
		delay := uint32(c.now().Sub(start) / time.Second)
		p.Replace(packet.NewInteger(attr, base+delay))
	})
}

// Status sends a Status-Server request to s.
func (c *Client) Status(ctx context.Context, s Server) (*Reply, error) {
	data := &SendData{
		Server:     s,
		Code:       packet.CodeStatusServer,
		Identifier: randomIdentifier(),
		Retries:    c.cfg.Retries,
	}
	return c.SendServer(ctx, data, nil)
}

func (c *Client) iterate(ctx context.Context, servers ServerList, code packet.Code, pairs packet.Pairs, aaa *AaaContext, update func(*packet.Pairs)) (*Reply, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("%w configured for %s", ErrNoServer, code)
	}

	var (
		reply *Reply
		err   error
	)
	for _, s := range servers {
		if update != nil {
			update(&pairs)
		}
		data := &SendData{
			Server:     s,
			Code:       code,
			Identifier: randomIdentifier(),
			Retries:    c.cfg.Retries,
			Send:       pairs,
		}

		reply, err = c.failover.Do(s, func() (*Reply, error) {
			return c.SendServer(ctx, data, aaa)
		})
		if errors.Is(err, ErrServerUnavailable) {
			c.logger.Warnf("skipping %s: %v", s, err)
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if err == nil && reply.Result != ResultBadResponse {
			return reply, nil
		}
		if err == nil {
			c.logger.Warnf("bad response from %s, trying next server", s)
		}
	}
	return reply, err
}
