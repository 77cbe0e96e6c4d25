package transport

import (
	"net/netip"

	"golang.org/x/sys/unix"
)

type udpTransport struct{}

// UDP returns the default datagram transport.
func UDP() Transport {
	return udpTransport{}
}

func (udpTransport) Name() string { return "udp" }
func (udpTransport) Kind() Kind   { return Datagram }

func (udpTransport) Open(local netip.AddrPort) (Socket, error) {
	fd, err := openFd(local, unix.SOCK_DGRAM)
	if err != nil {
		return nil, err
	}
	return &udpSocket{fdSocket: fd}, nil
}

type udpSocket struct {
	*fdSocket
}

func (s *udpSocket) Send(b []byte, remote netip.AddrPort) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	err := ignoringEINTR(func() error {
		return unix.Sendto(s.fd, b, 0, toSockaddr(remote))
	})
	if err != nil {
		return 0, mapErrno("sendto "+remote.String(), err)
	}
	return len(b), nil
}

func (s *udpSocket) Receive(b []byte) (int, error) {
	if s.fd < 0 {
		return 0, ErrClosed
	}
	var n int
	err := ignoringEINTR(func() error {
		var err error
		n, _, err = unix.Recvfrom(s.fd, b, 0)
		return err
	})
	if err != nil {
		return 0, mapErrno("recvfrom", err)
	}
	return n, nil
}
