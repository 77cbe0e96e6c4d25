package transport

import (
	"fmt"
	"io"
	"net/netip"

	"golang.org/x/sys/unix"
)

type tcpTransport struct{}

// TCP returns the default stream transport (RFC 6613 framing).
func TCP() Transport {
	return tcpTransport{}
}

func (tcpTransport) Name() string { return "tcp" }
func (tcpTransport) Kind() Kind   { return Stream }

func (tcpTransport) Open(local netip.AddrPort) (Socket, error) {
	fd, err := openFd(local, unix.SOCK_STREAM)
	if err != nil {
		return nil, err
	}
	return &tcpSocket{fdSocket: fd}, nil
}

type tcpSocket struct {
	*fdSocket
}

func (s *tcpSocket) Connect(remote netip.AddrPort) error {
	if s.fd < 0 {
		return ErrClosed
	}
	err := unix.Connect(s.fd, toSockaddr(remote))
	if err == unix.EINTR {
		// the connect continues in the background
		return ErrInProgress
	}
	return mapErrno("connect "+remote.String(), err)
}

func (s *tcpSocket) ConnectResult() error {
	if s.fd < 0 {
		return ErrClosed
	}
	soerr, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return mapErrno("getsockopt", err)
	}
	if soerr != 0 {
		return mapErrno("connect", unix.Errno(soerr))
	}
	if _, err := unix.Getpeername(s.fd); err != nil {
		if err == unix.ENOTCONN {
			return ErrInProgress
		}
		return mapErrno("getpeername", err)
	}
	return nil
}

func (s *tcpSocket) Send(b []byte, _ netip.AddrPort) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	var n int
	err := ignoringEINTR(func() error {
		var err error
		n, err = unix.Write(s.fd, b)
		return err
	})
	if err != nil {
		return 0, mapErrno("write", err)
	}
	return n, nil
}

func (s *tcpSocket) Receive(b []byte) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	var n int
	err := ignoringEINTR(func() error {
		var err error
		n, err = unix.Read(s.fd, b)
		return err
	})
	if err != nil {
		return 0, mapErrno("read", err)
	}
	if n == 0 && len(b) > 0 {
		return 0, fmt.Errorf("read: %w", io.ErrUnexpectedEOF)
	}
	return n, nil
}
