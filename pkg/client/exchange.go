package client

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/vitalvas/radcli/pkg/crypto"
	"github.com/vitalvas/radcli/pkg/log"
	"github.com/vitalvas/radcli/pkg/packet"
	"github.com/vitalvas/radcli/pkg/transport"
)

// waitSlice bounds a single blocking wait so context cancellation is
// noticed while a long timeout runs.
const waitSlice = 250 * time.Millisecond

// SendData describes one request to one server.
type SendData struct {
	// Server is the destination. An empty Secret is looked up in the
	// configured server lists.
	Server     Server
	Code       packet.Code
	Identifier uint8
	// Timeout is the wait for each transmission; zero uses the configured
	// timeout.
	Timeout time.Duration
	// Retries is the number of retransmissions after the first send.
	Retries int
	Send    packet.Pairs
	// Received holds the attributes of the response once the exchange
	// completes.
	Received packet.Pairs
}

// Reply is a response that passed validation.
type Reply struct {
	Code       packet.Code
	Identifier uint8
	Pairs      packet.Pairs
	// Message is every Reply-Message value followed by a newline.
	Message string
	Result  Result
}

// exchange is the per-request state shared by the synchronous and
// asynchronous paths: an open socket, the encoded request and the secret
// it was signed with.
type exchange struct {
	sock   transport.Socket
	local  netip.AddrPort
	remote netip.AddrPort
	req    *packet.Request
	pairs  packet.Pairs
	secret []byte
}

// prepare resolves the server, picks the local address, fills the NAS
// attributes, encodes the request and opens a socket for it. A server
// without a port gets the standard one for code.
func (c *Client) prepare(ctx context.Context, srv Server, code packet.Code, id uint8, send packet.Pairs) (*exchange, error) {
	srv = srv.withDefaultPort(code)
	secret, err := c.secretFor(srv, code, send)
	if err != nil {
		return nil, err
	}
	ex := &exchange{secret: secret}

	ex.remote, err = resolve(ctx, c.resolver, srv)
	if err != nil {
		ex.close()
		return nil, err
	}

	local, err := c.localAddr(ex.remote.Addr())
	if err != nil {
		ex.close()
		return nil, err
	}
	ex.local = netip.AddrPortFrom(local, 0)

	ex.pairs = send.Clone()
	if err := c.fillNAS(&ex.pairs, local); err != nil {
		ex.close()
		return nil, err
	}

	ex.req, err = packet.EncodeRequest(make([]byte, packet.MaxPacketLength), code, id, ex.pairs, ex.secret)
	if err != nil {
		ex.close()
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ex.sock, err = c.transport.Open(ex.local)
	if err != nil {
		ex.close()
		return nil, fmt.Errorf("failed to open %s socket: %w", c.transport.Name(), err)
	}
	return ex, nil
}

// close releases the socket and scrubs the secret.
func (ex *exchange) close() {
	if ex.sock != nil {
		ex.sock.Close()
		ex.sock = nil
	}
	crypto.Zero(ex.secret)
}

// frame returns the first complete packet among the have bytes read into
// buf. A stream transport reports false until the declared length has
// arrived; a datagram is always complete or malformed.
func frame(kind transport.Kind, buf []byte, have int) ([]byte, bool, error) {
	if kind == transport.Datagram {
		if have < packet.HeaderLength || have < packet.DeclaredLength(buf[:have]) {
			return nil, false, fmt.Errorf("%w: reply too short (%d bytes)", packet.ErrMalformedPacket, have)
		}
		return buf[:have], true, nil
	}

	if have < packet.HeaderLength {
		return nil, false, nil
	}
	n := packet.DeclaredLength(buf)
	if n < packet.MinPacketLength || n > packet.MaxPacketLength {
		return nil, false, fmt.Errorf("%w: declared length %d", packet.ErrMalformedPacket, n)
	}
	if have < n {
		return nil, false, nil
	}
	return buf[:n], true, nil
}

// readReply validates raw against the request and decodes it. capacity is
// the size of the buffer raw was received into.
func (c *Client) readReply(ex *exchange, raw []byte, capacity int) (*Reply, error) {
	if err := packet.CheckReply(raw, capacity, ex.secret, ex.req.Vector, ex.req.Identifier); err != nil {
		return nil, err
	}

	pkt, err := packet.Decode(raw, c.types)
	if err != nil {
		return nil, err
	}

	err = crypto.VerifyResponseMessageAuthenticator(raw[:pkt.Length], crypto.Authenticator(ex.req.Vector), ex.secret, c.cfg.RequireMessageAuthenticator)
	if err != nil {
		return nil, err
	}

	return &Reply{
		Code:       pkt.Code,
		Identifier: pkt.Identifier,
		Pairs:      pkt.Pairs,
		Message:    joinMessages(pkt.Pairs),
		Result:     classify(pkt.Code),
	}, nil
}

// joinMessages concatenates the Reply-Message values, each followed by a
// newline. Values that would take the text past MaxMessageLength, counting
// a terminator, are dropped along with everything after them.
func joinMessages(pairs packet.Pairs) string {
	var b strings.Builder
	for _, p := range pairs.GetAll(packet.Standard(packet.AttributeReplyMessage)) {
		if b.Len()+len(p.Value)+2 > packet.MaxMessageLength {
			break
		}
		b.Write(p.Value)
		b.WriteByte('\n')
	}
	return b.String()
}

// SendServer performs one blocking exchange with data.Server: it sends the
// request, waits up to the timeout for a valid response and retransmits the
// identical packet up to data.Retries times. Stream transports are written
// once and each retry only extends the wait. Responses carrying another
// identifier are discarded and the wait goes on.
//
// A validated response is returned with its classification in Reply.Result
// and aaa, when given, is populated. Failures are returned as errors that
// ResultOf maps to a Result.
func (c *Client) SendServer(ctx context.Context, data *SendData, aaa *AaaContext) (*Reply, error) {
	start := c.now()
	reply, err := c.sendServer(ctx, data, aaa)

	result := ResultOf(err)
	if err == nil {
		result = reply.Result
	}
	c.metrics.observe(data.Code.String(), result, c.now().Sub(start))
	return reply, err
}

func (c *Client) sendServer(ctx context.Context, data *SendData, aaa *AaaContext) (*Reply, error) {
	logger := c.logger.WithFields(log.Fields{
		"server": data.Server.String(),
		"code":   data.Code.String(),
		"id":     data.Identifier,
	})

	if aaa.Populated() {
		return nil, ErrContextPopulated
	}

	if l, ok := c.transport.(transport.Locker); ok {
		if err := l.Lock(); err != nil {
			logger.Errorf("failed to lock transport: %v", err)
			return nil, fmt.Errorf("failed to lock transport: %w", err)
		}
		defer func() {
			if err := l.Unlock(); err != nil {
				logger.Errorf("failed to unlock transport: %v", err)
			}
		}()
	}

	ex, err := c.prepare(ctx, data.Server, data.Code, data.Identifier, data.Send)
	if err != nil {
		logger.Errorf("failed to prepare request: %v", err)
		return nil, err
	}
	defer ex.close()

	timeout := c.timeoutFor(data.Timeout)
	logger.Debugf("sending request from %s to %s, timeout %s, retries %d", ex.local.Addr(), ex.remote, timeout, data.Retries)

	if err := c.connect(ctx, ex, timeout); err != nil {
		logger.Errorf("failed to connect to %s: %v", ex.remote, err)
		return nil, err
	}

	stream := c.transport.Kind() == transport.Stream
	in := &inbound{buf: make([]byte, packet.BufferLength)}
	for attempt := 0; attempt <= data.Retries; attempt++ {
		// A stream request was written once; later attempts keep reading the
		// same connection along with whatever part of a reply already arrived.
		if attempt > 0 && stream {
			logger.Infof("no response from %s, waiting again (%d of %d)", ex.remote, attempt, data.Retries)
		} else {
			if attempt > 0 {
				logger.Infof("no response from %s, retransmitting (%d of %d)", ex.remote, attempt, data.Retries)
				c.metrics.retransmit(data.Code.String())
			}
			if err := c.sendAll(ctx, ex, timeout); err != nil {
				logger.Errorf("failed to send request: %v", err)
				return nil, err
			}
		}

		reply, err := c.awaitReply(ctx, ex, in, timeout, logger)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if err != nil {
			logger.Errorf("failed to receive response: %v", err)
			return nil, err
		}

		if reply.Result != ResultBadResponse {
			if err := aaa.populate(ex.secret, ex.req.Vector); err != nil {
				return nil, err
			}
		}
		data.Received = reply.Pairs
		logger.Debugf("received %s from %s", reply.Code, ex.remote)
		return reply, nil
	}

	logger.Errorf("no reply from RADIUS server %s after %d attempts", ex.remote, data.Retries+1)
	return nil, fmt.Errorf("%w %s", ErrTimeout, ex.remote)
}

// wait blocks until sock reports one of ev or the deadline passes, in
// which case it returns ErrTimeout.
func (c *Client) wait(ctx context.Context, sock transport.Socket, ev transport.Events, deadline time.Time) (transport.Events, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		remaining := deadline.Sub(c.now())
		if remaining <= 0 {
			return 0, ErrTimeout
		}

		got, err := sock.Wait(ev, min(remaining, waitSlice))
		if err != nil {
			return 0, err
		}
		if got != 0 {
			return got, nil
		}
	}
}

// connect connects sockets of transports that need it.
func (c *Client) connect(ctx context.Context, ex *exchange, timeout time.Duration) error {
	conn, ok := ex.sock.(transport.Connector)
	if !ok {
		return nil
	}

	err := conn.Connect(ex.remote)
	if !errors.Is(err, transport.ErrInProgress) {
		return err
	}

	deadline := c.now().Add(timeout)
	for {
		if _, err := c.wait(ctx, ex.sock, transport.EventWrite, deadline); err != nil {
			return err
		}
		err := conn.ConnectResult()
		if !errors.Is(err, transport.ErrInProgress) {
			return err
		}
	}
}

// sendAll writes the whole request. Stream sockets may need several
// writes; a datagram must go out in one.
func (c *Client) sendAll(ctx context.Context, ex *exchange, timeout time.Duration) error {
	raw := ex.req.Raw
	deadline := c.now().Add(timeout)

	for sent := 0; sent < len(raw); {
		n, err := ex.sock.Send(raw[sent:], ex.remote)
		if errors.Is(err, transport.ErrWouldBlock) {
			if _, err := c.wait(ctx, ex.sock, transport.EventWrite, deadline); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if c.transport.Kind() == transport.Datagram && n != len(raw) {
			return fmt.Errorf("short write: sent %d of %d bytes", n, len(raw))
		}
		sent += n
	}
	return nil
}

// inbound holds the bytes received for an exchange. On stream transports
// it outlives a timeout so a reply split across attempts still frames.
type inbound struct {
	buf  []byte
	have int
}

// awaitReply reads until a response for the request arrives or the
// timeout passes.
func (c *Client) awaitReply(ctx context.Context, ex *exchange, in *inbound, timeout time.Duration, logger log.Logger) (*Reply, error) {
	kind := c.transport.Kind()
	deadline := c.now().Add(timeout)

	if kind == transport.Datagram {
		in.have = 0
	}
	for {
		if in.have > 0 {
			raw, complete, err := frame(kind, in.buf, in.have)
			if err != nil {
				return nil, err
			}
			if complete {
				reply, err := c.readReply(ex, raw, len(in.buf))
				if !errors.Is(err, packet.ErrIdentifierMismatch) {
					return reply, err
				}
				logger.Debugf("discarding response: %v", err)
				in.have = copy(in.buf, in.buf[len(raw):in.have])
				continue
			}
		}

		if _, err := c.wait(ctx, ex.sock, transport.EventRead, deadline); err != nil {
			return nil, err
		}
		n, err := ex.sock.Receive(in.buf[in.have:])
		if errors.Is(err, transport.ErrWouldBlock) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to receive: %w", err)
		}
		in.have += n
	}
}
