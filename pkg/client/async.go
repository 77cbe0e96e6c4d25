package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitalvas/radcli/pkg/log"
	"github.com/vitalvas/radcli/pkg/packet"
	"github.com/vitalvas/radcli/pkg/transport"
)

// State is the stage of an asynchronous request.
type State uint8

const (
	StateCreated State = iota
	StatePrepared
	StateConnecting
	StateSending
	StateReceiving
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePrepared:
		return "prepared"
	case StateConnecting:
		return "connecting"
	case StateSending:
		return "sending"
	case StateReceiving:
		return "receiving"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// interest is the readiness each state waits for. Created and Prepared
// advance without any.
var interest = [...]transport.Events{
	StateCreated:    0,
	StatePrepared:   0,
	StateConnecting: transport.EventWrite,
	StateSending:    transport.EventWrite,
	StateReceiving:  transport.EventRead,
	StateDone:       0,
}

// handlers holds the single transition function of each state. A handler
// returns the next state, or its own state when it would block.
var handlers = [...]func(*Request) State{
	StateCreated:    (*Request).prepare,
	StatePrepared:   (*Request).connect,
	StateConnecting: (*Request).checkConnected,
	StateSending:    (*Request).send,
	StateReceiving:  (*Request).receive,
}

// Request is a non-blocking exchange driven by Process. It never blocks;
// the caller polls its descriptor, or ticks it periodically so timeouts are
// still noticed. A request is used from one goroutine at a time.
type Request struct {
	c      *Client
	logger log.Logger

	server     Server
	code       packet.Code
	identifier uint8
	pairs      packet.Pairs
	aaa        *AaaContext

	state  State
	result Result
	err    error
	reply  *Reply

	ex          *exchange
	buf         []byte
	transferred int
	received    int

	timeout    time.Duration
	retries    int
	maxRetries int
	start      time.Time
	began      time.Time

	multi *Multi
	key   Key
}

// NewRequest creates an asynchronous request to server. Only the given
// server is tried. NAS-Port is added when send has none, and accounting
// requests get Acct-Delay-Time counted from the first transmission unless
// send carries one. Transports that need serialized access are rejected.
func (c *Client) NewRequest(server Server, code packet.Code, nasPort uint32, send packet.Pairs, aaa *AaaContext) (*Request, error) {
	if _, ok := c.transport.(transport.Locker); ok {
		return nil, ErrLockingTransport
	}
	if aaa.Populated() {
		return nil, ErrContextPopulated
	}

	pairs := send.Clone()
	if !pairs.Has(packet.Standard(packet.AttributeNASPort)) {
		pairs.Add(packet.NewInteger(packet.Standard(packet.AttributeNASPort), nasPort))
	}

	r := &Request{
		c:          c,
		server:     server,
		code:       code,
		identifier: randomIdentifier(),
		pairs:      pairs,
		aaa:        aaa,
		timeout:    c.cfg.Timeout,
		maxRetries: c.cfg.Retries,
		began:      c.now(),
	}
	r.logger = c.logger.WithFields(log.Fields{
		"server": server.String(),
		"code":   code.String(),
		"id":     r.identifier,
	})
	return r, nil
}

// Process advances the request with the observed readiness ev and reports
// whether it is done. States advance only on the readiness they wait for,
// so calling it with nothing relevant changes nothing but the timeout
// check.
func (r *Request) Process(ev transport.Events) bool {
	for r.state != StateDone {
		want := interest[r.state]
		if want != 0 && ev&want == 0 {
			break
		}
		next := handlers[r.state](r)
		if next == r.state {
			break
		}
		r.state = next
	}

	if r.state != StateCreated && r.state != StateDone {
		r.checkTimeout()
	}
	return r.state == StateDone
}

func (r *Request) prepare() State {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if r.code.IsAccounting() {
		r.fillDelay()
	}

	ex, err := r.c.prepare(ctx, r.server, r.code, r.identifier, r.pairs)
	if err != nil {
		return r.fail(fmt.Errorf("failed to prepare request: %w", err))
	}
	r.ex = ex
	r.pairs = ex.pairs
	r.buf = make([]byte, packet.BufferLength)
	r.start = r.c.now()
	r.logger.Debugf("prepared request from %s to %s", ex.local.Addr(), ex.remote)
	return StatePrepared
}

// fillDelay sets Acct-Delay-Time to the time since the request was
// created, unless the caller already supplied one.
func (r *Request) fillDelay() {
	attr := packet.Standard(packet.AttributeAcctDelayTime)
	if r.pairs.Has(attr) {
		return
	}
	delay := r.c.now().Sub(r.began) / time.Second
	r.pairs.Add(packet.NewInteger(attr, uint32(delay)))
}

func (r *Request) connect() State {
	conn, ok := r.ex.sock.(transport.Connector)
	if !ok {
		return StateSending
	}

	err := conn.Connect(r.ex.remote)
	switch {
	case err == nil:
		return StateSending
	case errors.Is(err, transport.ErrInProgress), errors.Is(err, transport.ErrWouldBlock):
		return StateConnecting
	default:
		return r.fail(fmt.Errorf("failed to connect to %s: %w", r.ex.remote, err))
	}
}

func (r *Request) checkConnected() State {
	err := r.ex.sock.(transport.Connector).ConnectResult()
	switch {
	case err == nil:
		return StateSending
	case errors.Is(err, transport.ErrInProgress), errors.Is(err, transport.ErrWouldBlock):
		return StateConnecting
	default:
		return r.fail(fmt.Errorf("failed to connect to %s: %w", r.ex.remote, err))
	}
}

func (r *Request) send() State {
	raw := r.ex.req.Raw
	n, err := r.ex.sock.Send(raw[r.transferred:], r.ex.remote)
	if errors.Is(err, transport.ErrWouldBlock) {
		return StateSending
	}
	if err != nil {
		return r.fail(fmt.Errorf("failed to send request: %w", err))
	}

	if r.c.transport.Kind() == transport.Datagram && n != len(raw) {
		return r.fail(fmt.Errorf("short write: sent %d of %d bytes", n, len(raw)))
	}
	r.transferred += n
	if r.transferred < len(raw) {
		return StateSending
	}
	return StateReceiving
}

func (r *Request) receive() State {
	n, err := r.ex.sock.Receive(r.buf[r.received:])
	if errors.Is(err, transport.ErrWouldBlock) {
		return StateReceiving
	}
	if err != nil {
		return r.fail(fmt.Errorf("failed to receive: %w", err))
	}
	r.received += n

	raw, complete, err := frame(r.c.transport.Kind(), r.buf, r.received)
	if err != nil {
		return r.fail(err)
	}
	if !complete {
		return StateReceiving
	}

	reply, err := r.c.readReply(r.ex, raw, len(r.buf))
	if errors.Is(err, packet.ErrIdentifierMismatch) {
		r.logger.Debugf("discarding response: %v", err)
		r.received = copy(r.buf, r.buf[len(raw):r.received])
		return StateReceiving
	}
	if err != nil {
		return r.fail(err)
	}

	if reply.Result != ResultBadResponse {
		if err := r.aaa.populate(r.ex.secret, r.ex.req.Vector); err != nil {
			return r.fail(err)
		}
	}
	r.reply = reply
	r.logger.Debugf("received %s from %s", reply.Code, r.ex.remote)
	return r.finish(reply.Result, nil)
}

// checkTimeout ends the request once the timeout passes with no retries
// left. Otherwise the window restarts; datagram requests also go back to
// Sending to retransmit the identical packet, stream requests keep waiting
// on the connection they already wrote to.
func (r *Request) checkTimeout() {
	if r.c.now().Sub(r.start) < r.timeout {
		return
	}

	if r.retries >= r.maxRetries {
		r.logger.Errorf("no reply from RADIUS server %s after %d attempts", r.server, r.retries+1)
		r.state = r.finish(ResultTimeout, fmt.Errorf("%w %s", ErrTimeout, r.server))
		return
	}

	r.retries++
	r.start = r.c.now()
	if r.c.transport.Kind() == transport.Datagram && (r.state == StateSending || r.state == StateReceiving) {
		r.logger.Infof("no response from %s, retransmitting (%d of %d)", r.server, r.retries, r.maxRetries)
		r.c.metrics.retransmit(r.code.String())
		r.transferred = 0
		r.state = StateSending
	}
}

func (r *Request) fail(err error) State {
	r.logger.Error(err)
	return r.finish(ResultOf(err), err)
}

// finish records the outcome, releases the socket and scrubs the secret.
func (r *Request) finish(result Result, err error) State {
	r.result = result
	r.err = err
	if r.ex != nil {
		r.ex.close()
	}
	r.c.metrics.observe(r.code.String(), result, r.c.now().Sub(r.began))
	return StateDone
}

// Events returns the readiness the request currently waits for.
func (r *Request) Events() transport.Events {
	return interest[r.state]
}

// Fd returns the descriptor to poll, or -1 when the request has none.
func (r *Request) Fd() int {
	if r.ex == nil || r.ex.sock == nil {
		return -1
	}
	return r.ex.sock.Fd()
}

func (r *Request) State() State { return r.state }

func (r *Request) Done() bool { return r.state == StateDone }

// Result returns the outcome. It is meaningful once the request is done.
func (r *Request) Result() Result { return r.result }

// Err returns the failure that ended the request, if any.
func (r *Request) Err() error { return r.err }

// Reply returns the validated response, or nil.
func (r *Request) Reply() *Reply { return r.reply }

func (r *Request) Identifier() uint8 { return r.identifier }

// Retries returns how many times the timeout has restarted.
func (r *Request) Retries() int { return r.retries }

// SendPairs returns the attributes sent, including those the client added.
func (r *Request) SendPairs() packet.Pairs { return r.pairs }

// ReceivePairs returns the attributes of the response.
func (r *Request) ReceivePairs() packet.Pairs {
	if r.reply == nil {
		return nil
	}
	return r.reply.Pairs
}

// Message returns the Reply-Message text of the response.
func (r *Request) Message() string {
	if r.reply == nil {
		return ""
	}
	return r.reply.Message
}

// Close abandons the request. Nothing is sent to the server; the socket is
// closed and the secret scrubbed.
func (r *Request) Close() error {
	if r.multi != nil {
		r.multi.remove(r)
	}
	if r.ex != nil {
		r.ex.close()
	}
	if r.state != StateDone {
		r.state = StateDone
		r.result = ResultError
		r.err = errors.New("request closed")
	}
	return nil
}
