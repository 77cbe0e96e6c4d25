package transport

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// SourceAddr returns the local address the kernel would use to reach
// remote. It connects a throwaway UDP socket, which sends nothing, and reads
// back the bound address.
func SourceAddr(remote netip.Addr) (netip.Addr, error) {
	port := netip.AddrPortFrom(remote, 1812)
	fd, err := unix.Socket(family(remote), unix.SOCK_DGRAM, 0)
	if err != nil {
		return netip.Addr{}, mapErrno("socket", err)
	}
	defer unix.Close(fd)

	err = ignoringEINTR(func() error {
		return unix.Connect(fd, toSockaddr(port))
	})
	if err != nil {
		return netip.Addr{}, mapErrno(fmt.Sprintf("route to %s", remote), err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		return netip.Addr{}, mapErrno("getsockname", err)
	}
	ap, err := fromSockaddr(sa)
	if err != nil {
		return netip.Addr{}, err
	}
	return ap.Addr(), nil
}

// Wildcard returns the unspecified address of the family of addr.
func Wildcard(addr netip.Addr) netip.Addr {
	if addr.Is4() || addr.Is4In6() {
		return netip.IPv4Unspecified()
	}
	return netip.IPv6Unspecified()
}
