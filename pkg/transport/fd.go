package transport

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"
)

// ignoringEINTR retries fn for as long as it is interrupted by a signal.
func ignoringEINTR(fn func() error) error {
	for {
		err := fn()
		if err != unix.EINTR {
			return err
		}
	}
}

// mapErrno converts a raw syscall error to the package's vocabulary.
func mapErrno(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
		return ErrWouldBlock
	case errors.Is(err, unix.EINPROGRESS), errors.Is(err, unix.EALREADY):
		return ErrInProgress
	case errors.Is(err, unix.ENETUNREACH):
		return fmt.Errorf("%s: %w", op, ErrNetworkUnreachable)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// fdSocket holds the parts shared by the UDP and TCP sockets.
type fdSocket struct {
	fd int
}

func openFd(local netip.AddrPort, typ int) (*fdSocket, error) {
	var fd int
	err := ignoringEINTR(func() error {
		var err error
		fd, err = unix.Socket(family(local.Addr()), typ, 0)
		return err
	})
	if err != nil {
		return nil, mapErrno("socket", err)
	}
	unix.CloseOnExec(fd)

	s := &fdSocket{fd: fd}
	if err := unix.SetNonblock(fd, true); err != nil {
		s.Close()
		return nil, mapErrno("set nonblock", err)
	}
	if err := unix.Bind(fd, toSockaddr(local)); err != nil {
		s.Close()
		return nil, mapErrno(fmt.Sprintf("bind %s", local), err)
	}
	return s, nil
}

func (s *fdSocket) Fd() int {
	return s.fd
}

// LocalAddr returns the address the socket is bound to.
func (s *fdSocket) LocalAddr() (netip.AddrPort, error) {
	if s.fd < 0 {
		return netip.AddrPort{}, ErrClosed
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return netip.AddrPort{}, mapErrno("getsockname", err)
	}
	return fromSockaddr(sa)
}

func (s *fdSocket) Wait(ev Events, timeout time.Duration) (Events, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	return pollOne(s.fd, ev, timeout)
}

func (s *fdSocket) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	if err != nil {
		return mapErrno("close", err)
	}
	return nil
}

// pollOne waits for ev on fd. An interrupted poll resumes with the time
// that is left.
func pollOne(fd int, ev Events, timeout time.Duration) (Events, error) {
	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(fd), Events: ev.PollEvents()}}
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		ms := int((remaining + time.Millisecond - 1) / time.Millisecond)

		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, mapErrno("poll", err)
		}
		if n == 0 {
			return 0, nil
		}
		return EventsFromPoll(fds[0].Revents), nil
	}
}
