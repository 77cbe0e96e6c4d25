// Package transport is the socket abstraction the RADIUS engine talks to.
// Every socket is non-blocking: operations that cannot complete return
// ErrWouldBlock or ErrInProgress and the caller waits for readiness.
package transport

import (
	"errors"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrWouldBlock means the operation cannot make progress until the
	// descriptor becomes ready.
	ErrWouldBlock = errors.New("operation would block")
	// ErrInProgress means a non-blocking connect has not completed yet.
	ErrInProgress = errors.New("connect in progress")
	// ErrNetworkUnreachable is reported when no route to the server exists.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrClosed is returned by operations on a closed socket.
	ErrClosed = errors.New("socket closed")
)

// Kind tells the engine how the transport frames packets.
type Kind uint8

const (
	// Datagram transports carry one whole packet per send and receive.
	Datagram Kind = iota
	// Stream transports are byte oriented; packets are delimited by the
	// length field in the header and may be written or read in pieces.
	Stream
)

func (k Kind) String() string {
	if k == Stream {
		return "stream"
	}
	return "datagram"
}

// Events is a readiness mask.
type Events uint8

const (
	EventRead Events = 1 << iota
	EventWrite
)

// Has reports whether any bit of o is set in e.
func (e Events) Has(o Events) bool {
	return e&o != 0
}

func (e Events) String() string {
	var parts []string
	if e.Has(EventRead) {
		parts = append(parts, "read")
	}
	if e.Has(EventWrite) {
		parts = append(parts, "write")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// PollEvents converts the mask to poll(2) request bits.
func (e Events) PollEvents() int16 {
	var ev int16
	if e.Has(EventRead) {
		ev |= unix.POLLIN
	}
	if e.Has(EventWrite) {
		ev |= unix.POLLOUT
	}
	return ev
}

// EventsFromPoll converts poll(2) result bits. Error and hangup conditions
// report both directions so the next read or write surfaces the error.
func EventsFromPoll(revents int16) Events {
	var e Events
	if revents&unix.POLLIN != 0 {
		e |= EventRead
	}
	if revents&unix.POLLOUT != 0 {
		e |= EventWrite
	}
	if revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		e |= EventRead | EventWrite
	}
	return e
}

// Transport opens sockets of one flavour.
type Transport interface {
	Name() string
	Kind() Kind
	// Open creates a non-blocking socket bound to local. A zero port
	// leaves the choice to the kernel.
	Open(local netip.AddrPort) (Socket, error)
}

// Socket is one open descriptor, exclusively owned by a single request.
type Socket interface {
	// Fd returns the descriptor used for readiness polling.
	Fd() int
	// Send writes b. Datagram sockets address remote; connected stream
	// sockets ignore it and may write only part of b.
	Send(b []byte, remote netip.AddrPort) (int, error)
	// Receive reads into b. Datagram sockets return one packet per call.
	Receive(b []byte) (int, error)
	// Wait blocks until one of ev is ready or the timeout expires, in which
	// case it returns no events and no error.
	Wait(ev Events, timeout time.Duration) (Events, error)
	Close() error
}

// Connector is implemented by sockets that must be connected before use.
type Connector interface {
	// Connect starts connecting to remote. ErrInProgress means completion
	// is signalled by writability.
	Connect(remote netip.AddrPort) error
	// ConnectResult reports the outcome of a pending connect; ErrInProgress
	// while it is still pending.
	ConnectResult() error
}

// Locker is implemented by transports whose sockets share an underlying
// resource, so exchanges over them must be serialized.
type Locker interface {
	Lock() error
	Unlock() error
}
