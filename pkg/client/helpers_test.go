package client

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitalvas/radcli/pkg/crypto"
	"github.com/vitalvas/radcli/pkg/packet"
	"github.com/vitalvas/radcli/pkg/transport"
)

const testSecret = "testing123"

var testServer = Server{Host: "192.0.2.10", Port: DefaultAuthPort, Secret: testSecret}

func loopbackSource(netip.Addr) (netip.Addr, error) {
	return netip.MustParseAddr("127.0.0.1"), nil
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Timeout = 30 * time.Millisecond
	cfg.Retries = 0
	cfg.AuthServers = ServerList{testServer}
	cfg.AcctServers = ServerList{{Host: "192.0.2.10", Port: DefaultAcctPort, Secret: testSecret}}
	return cfg
}

func newTestClient(t testing.TB, tr transport.Transport, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithConfig(testConfig()),
		WithTransport(tr),
		WithSourceAddr(loopbackSource),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

// answer builds a response to req with code and pairs, signed with secret.
func answer(t testing.TB, req []byte, secret string, code packet.Code, pairs packet.Pairs) []byte {
	t.Helper()
	h, err := packet.ParseHeader(req)
	require.NoError(t, err)
	return answerID(t, req, secret, code, h.Identifier, pairs)
}

// answerID is answer with an explicit identifier.
func answerID(t testing.TB, req []byte, secret string, code packet.Code, id uint8, pairs packet.Pairs) []byte {
	t.Helper()
	h, err := packet.ParseHeader(req)
	require.NoError(t, err)

	buf := make([]byte, packet.MaxPacketLength)
	n, err := packet.EncodeAttributes(buf[packet.HeaderLength:], pairs, []byte(secret), h.Authenticator)
	require.NoError(t, err)
	n += packet.HeaderLength

	hdr := packet.Header{Code: code, Identifier: id, Length: uint16(n)}
	require.NoError(t, hdr.MarshalTo(buf))
	auth := crypto.CalculateResponseAuthenticator(uint8(code), id, uint16(n),
		crypto.Authenticator(h.Authenticator), buf[packet.HeaderLength:n], []byte(secret))
	copy(buf[4:packet.HeaderLength], auth[:])
	return buf[:n]
}

// replyWith returns a responder answering every request with code.
func replyWith(t testing.TB, code packet.Code, pairs packet.Pairs) transport.Responder {
	return func(req []byte) [][]byte {
		return [][]byte{answer(t, req, testSecret, code, pairs)}
	}
}

func userPairs() packet.Pairs {
	var ps packet.Pairs
	ps.Add(
		packet.NewString(packet.Standard(packet.AttributeUserName), "alice"),
		packet.NewString(packet.Standard(packet.AttributeUserPassword), "wonderland"),
	)
	return ps
}
