package client

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/vitalvas/radcli/pkg/transport"
)

var (
	// ErrAlreadyMember is returned when adding a request that belongs to a
	// scheduler.
	ErrAlreadyMember = errors.New("request already belongs to a scheduler")
	// ErrUnknownKey is returned for a key that names no current member.
	ErrUnknownKey = errors.New("unknown request key")
)

const (
	// fdSetSize is FD_SETSIZE, the number of descriptors an FdSet holds.
	fdSetSize = int(unsafe.Sizeof(unix.FdSet{})) * 8
	// minTick is the shortest poll Perform waits for.
	minTick = 10 * time.Millisecond
)

// Key identifies a member of a Multi. Keys of removed members never match
// a later member stored in the same slot.
type Key struct {
	index      uint32
	generation uint32
}

type slot struct {
	req        *Request
	generation uint32
}

// Multi drives many asynchronous requests from one polling loop. Members
// live in an arena of slots; freed slots are reused through a free list, so
// adding and removing are O(1). Completion order is unspecified.
type Multi struct {
	slots []slot
	free  []uint32
	count int
}

// NewMulti creates an empty scheduler.
func NewMulti() *Multi {
	return &Multi{}
}

// Add makes r a member and returns its key.
func (m *Multi) Add(r *Request) (Key, error) {
	if r.multi != nil {
		return Key{}, ErrAlreadyMember
	}

	var idx uint32
	if n := len(m.free); n > 0 {
		idx = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		idx = uint32(len(m.slots))
		m.slots = append(m.slots, slot{})
	}

	m.slots[idx].req = r
	key := Key{index: idx, generation: m.slots[idx].generation}
	r.multi = m
	r.key = key
	m.count++
	return key, nil
}

// Remove takes the member with key out of the scheduler without closing
// it.
func (m *Multi) Remove(key Key) (*Request, error) {
	r := m.Get(key)
	if r == nil {
		return nil, fmt.Errorf("%w: %d/%d", ErrUnknownKey, key.index, key.generation)
	}
	m.remove(r)
	return r, nil
}

func (m *Multi) remove(r *Request) {
	s := &m.slots[r.key.index]
	s.req = nil
	s.generation++
	m.free = append(m.free, r.key.index)
	m.count--
	r.multi = nil
}

// Get returns the member with key, or nil.
func (m *Multi) Get(key Key) *Request {
	if int(key.index) >= len(m.slots) {
		return nil
	}
	s := m.slots[key.index]
	if s.req == nil || s.generation != key.generation {
		return nil
	}
	return s.req
}

// Len returns the number of members.
func (m *Multi) Len() int {
	return m.count
}

func (m *Multi) each(fn func(*Request)) {
	for i := range m.slots {
		if r := m.slots[i].req; r != nil {
			fn(r)
		}
	}
}

// FDSet marks the descriptor of every member in r or w according to the
// readiness it waits for, and returns the highest descriptor plus one for
// select. Descriptors at or above FD_SETSIZE do not fit a set and are left
// out; ProcessFDSet drives those members as fully ready. Callers with many
// open descriptors should use PollFds.
func (m *Multi) FDSet(r, w *unix.FdSet) int {
	nfd := 0
	m.each(func(req *Request) {
		fd := req.Fd()
		if fd < 0 || fd >= fdSetSize {
			return
		}
		ev := req.Events()
		if ev.Has(transport.EventRead) {
			r.Set(fd)
		}
		if ev.Has(transport.EventWrite) {
			w.Set(fd)
		}
		if ev != 0 && fd+1 > nfd {
			nfd = fd + 1
		}
	})
	return nfd
}

// PollFds appends one entry per member waiting on a descriptor to dst.
func (m *Multi) PollFds(dst []unix.PollFd) []unix.PollFd {
	m.each(func(req *Request) {
		fd, ev := req.Fd(), req.Events()
		if fd < 0 || ev == 0 {
			return
		}
		dst = append(dst, unix.PollFd{Fd: int32(fd), Events: ev.PollEvents()})
	})
	return dst
}

// Process drives every member as if its descriptor were both readable and
// writable, and returns the number of members that are done.
func (m *Multi) Process() int {
	return m.drive(func(*Request) transport.Events {
		return transport.EventRead | transport.EventWrite
	})
}

// ProcessFDSet drives every member with the readiness reported by select.
// Members without a descriptor, or with one FDSet could not mark, are
// driven as if fully ready.
func (m *Multi) ProcessFDSet(r, w *unix.FdSet) int {
	return m.drive(func(req *Request) transport.Events {
		fd := req.Fd()
		if fd < 0 || fd >= fdSetSize {
			return transport.EventRead | transport.EventWrite
		}
		var ev transport.Events
		if r != nil && r.IsSet(fd) {
			ev |= transport.EventRead
		}
		if w != nil && w.IsSet(fd) {
			ev |= transport.EventWrite
		}
		return ev
	})
}

// ProcessPollFds drives every member with the readiness reported by poll.
// Members whose descriptor is not in fds are driven as if fully ready.
func (m *Multi) ProcessPollFds(fds []unix.PollFd) int {
	revents := make(map[int32]int16, len(fds))
	for _, p := range fds {
		revents[p.Fd] |= p.Revents
	}
	return m.drive(func(req *Request) transport.Events {
		fd := req.Fd()
		if fd < 0 {
			return transport.EventRead | transport.EventWrite
		}
		re, ok := revents[int32(fd)]
		if !ok {
			return transport.EventRead | transport.EventWrite
		}
		return transport.EventsFromPoll(re)
	})
}

func (m *Multi) drive(readiness func(*Request) transport.Events) int {
	done := 0
	m.each(func(r *Request) {
		if r.Process(readiness(r)) {
			done++
		}
	})
	return done
}

// NextDone removes and returns one member that is done. It returns false
// when none is; call it until then to drain every completion.
func (m *Multi) NextDone() (*Request, Key, bool) {
	for i := range m.slots {
		r := m.slots[i].req
		if r != nil && r.Done() {
			key := r.key
			m.remove(r)
			return r, key, true
		}
	}
	return nil, Key{}, false
}

// Perform polls the descriptors of all members and drives them until every
// member is done or ctx ends. tick bounds each poll so timeouts are checked
// without I/O; ticks shorter than 10ms are raised to it. It only works with
// transports backed by real descriptors.
func (m *Multi) Perform(ctx context.Context, tick time.Duration) error {
	var fds []unix.PollFd
	for {
		if m.drive(func(*Request) transport.Events { return 0 }) == m.count {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fds = m.PollFds(fds[:0])
		_, err := unix.Poll(fds, pollTimeout(tick))
		if err != nil && !errors.Is(err, unix.EINTR) {
			return fmt.Errorf("poll: %w", err)
		}
		m.ProcessPollFds(fds)
	}
}

// pollTimeout converts tick to a poll timeout in milliseconds, never below
// minTick.
func pollTimeout(tick time.Duration) int {
	return int(max(tick, minTick).Milliseconds())
}

// Close closes every member and empties the scheduler.
func (m *Multi) Close() {
	m.each(func(r *Request) {
		r.Close()
	})
	m.slots = nil
	m.free = nil
	m.count = 0
}
