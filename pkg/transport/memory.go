package transport

import (
	"errors"
	"net/netip"
	"sync"
	"time"
)

// Responder produces the packets a Memory server sends back for one
// request. Returning nil simulates a lost request.
type Responder func(request []byte) [][]byte

// Memory is an in-process transport for tests. Every socket it opens hands
// sent packets to Responder and queues the replies for Receive.
type Memory struct {
	Responder Responder
	// Framing selects datagram or stream behaviour.
	Framing Kind
	// MaxWrite and MaxRead cap the bytes moved per call on stream sockets,
	// to exercise partial transfers. Zero means unlimited.
	MaxWrite int
	MaxRead  int
	// ConnectPolls is the number of ConnectResult calls that report
	// ErrInProgress before a connect succeeds. Only stream sockets connect.
	ConnectPolls int
	// OpenErr, when set, fails every Open.
	OpenErr error
	// FdBase offsets the descriptor numbers reported by sockets, which
	// otherwise start at 3.
	FdBase int

	mu     sync.Mutex
	sent   [][]byte
	nextFd int
	opened int
	closed int
	last   *memorySocket
}

// NewMemory returns a datagram Memory transport answering with r.
func NewMemory(r Responder) *Memory {
	return &Memory{Responder: r}
}

func (m *Memory) Name() string { return "memory" }
func (m *Memory) Kind() Kind   { return m.Framing }

func (m *Memory) Open(local netip.AddrPort) (Socket, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFd++
	m.opened++
	s := &memorySocket{
		m:      m,
		fd:     m.FdBase + 2 + m.nextFd,
		local:  local,
		notify: make(chan struct{}, 1),
	}
	m.last = s
	if m.Framing == Stream {
		return &memoryStreamSocket{memorySocket: s, connectPolls: m.ConnectPolls}, nil
	}
	return s, nil
}

// Sent returns a copy of every packet written so far, in order. Stream
// writes are reported per call.
func (m *Memory) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	for i, b := range m.sent {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

// Opened returns the number of sockets opened.
func (m *Memory) Opened() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// Closed returns the number of sockets closed.
func (m *Memory) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Deliver queues an unsolicited packet on the most recently opened socket.
func (m *Memory) Deliver(b []byte) error {
	m.mu.Lock()
	s := m.last
	m.mu.Unlock()
	if s == nil {
		return errors.New("memory transport: no open socket")
	}
	s.push([][]byte{b})
	return nil
}

type memorySocket struct {
	m      *Memory
	fd     int
	local  netip.AddrPort
	closed bool

	mu     sync.Mutex
	inbox  [][]byte
	notify chan struct{}
}

func (s *memorySocket) Fd() int {
	return s.fd
}

// LocalAddr returns the address the socket was opened with.
func (s *memorySocket) LocalAddr() (netip.AddrPort, error) {
	return s.local, nil
}

func (s *memorySocket) push(pkts [][]byte) {
	if len(pkts) == 0 {
		return
	}
	s.mu.Lock()
	for _, p := range pkts {
		s.inbox = append(s.inbox, append([]byte(nil), p...))
	}
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *memorySocket) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inbox) > 0
}

func (s *memorySocket) record(b []byte) {
	s.m.mu.Lock()
	s.m.sent = append(s.m.sent, append([]byte(nil), b...))
	s.m.mu.Unlock()
}

func (s *memorySocket) respond(b []byte) {
	if s.m.Responder != nil {
		s.push(s.m.Responder(append([]byte(nil), b...)))
	}
}

func (s *memorySocket) Send(b []byte, _ netip.AddrPort) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	s.record(b)
	s.respond(b)
	return len(b), nil
}

func (s *memorySocket) Receive(b []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inbox) == 0 {
		return 0, ErrWouldBlock
	}
	n := copy(b, s.inbox[0])
	s.inbox = s.inbox[1:]
	return n, nil
}

func (s *memorySocket) Wait(ev Events, timeout time.Duration) (Events, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if ev.Has(EventWrite) {
		if s.pending() && ev.Has(EventRead) {
			return EventRead | EventWrite, nil
		}
		return EventWrite, nil
	}
	if !ev.Has(EventRead) {
		return 0, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for !s.pending() {
		select {
		case <-s.notify:
		case <-timer.C:
			return 0, nil
		}
	}
	return EventRead, nil
}

func (s *memorySocket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.m.mu.Lock()
	s.m.closed++
	s.m.mu.Unlock()
	return nil
}

// memoryStreamSocket reassembles written bytes into packets using the
// header length and hands replies back as a byte stream.
type memoryStreamSocket struct {
	*memorySocket
	connectPolls int
	connecting   bool
	connected    bool
	partial      []byte
}

func (s *memoryStreamSocket) Connect(netip.AddrPort) error {
	if s.closed {
		return ErrClosed
	}
	if s.connectPolls > 0 {
		s.connecting = true
		return ErrInProgress
	}
	s.connected = true
	return nil
}

func (s *memoryStreamSocket) ConnectResult() error {
	if !s.connecting {
		return nil
	}
	if s.connectPolls > 0 {
		s.connectPolls--
		return ErrInProgress
	}
	s.connecting = false
	s.connected = true
	return nil
}

func (s *memoryStreamSocket) Send(b []byte, _ netip.AddrPort) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if !s.connected {
		return 0, errors.New("memory transport: stream socket not connected")
	}
	n := len(b)
	if s.m.MaxWrite > 0 && n > s.m.MaxWrite {
		n = s.m.MaxWrite
	}
	s.record(b[:n])

	s.partial = append(s.partial, b[:n]...)
	for len(s.partial) >= 4 {
		l := int(s.partial[2])<<8 | int(s.partial[3])
		if l < 4 || len(s.partial) < l {
			break
		}
		s.respond(s.partial[:l])
		s.partial = s.partial[l:]
	}
	return n, nil
}

func (s *memoryStreamSocket) Receive(b []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.m.MaxRead > 0 && len(b) > s.m.MaxRead {
		b = b[:s.m.MaxRead]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inbox) == 0 {
		return 0, ErrWouldBlock
	}
	n := copy(b, s.inbox[0])
	if n < len(s.inbox[0]) {
		s.inbox[0] = s.inbox[0][n:]
	} else {
		s.inbox = s.inbox[1:]
	}
	return n, nil
}
