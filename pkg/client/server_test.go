package client

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/radcli/pkg/packet"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	args := m.Called(ctx, network, host)
	addrs, _ := args.Get(0).([]netip.Addr)
	return addrs, args.Error(1)
}

func TestParseServer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Server
		wantErr  bool
	}{
		{"host only", "radius.example.com", Server{Host: "radius.example.com", Port: 1812}, false},
		{"host and port", "10.0.0.1:1645", Server{Host: "10.0.0.1", Port: 1645}, false},
		{"host port secret", "10.0.0.1:1645:s3cret", Server{Host: "10.0.0.1", Port: 1645, Secret: "s3cret"}, false},
		{"empty port keeps default", "10.0.0.1::s3cret", Server{Host: "10.0.0.1", Port: 1812, Secret: "s3cret"}, false},
		{"secret with colon", "10.0.0.1:1812:a:b", Server{Host: "10.0.0.1", Port: 1812, Secret: "a:b"}, false},
		{"ipv6 bracketed", "[2001:db8::1]:1813:s", Server{Host: "2001:db8::1", Port: 1813, Secret: "s"}, false},
		{"longest secret", "10.0.0.1:1812:" + strings.Repeat("x", packet.MaxSecretLength), Server{Host: "10.0.0.1", Port: 1812, Secret: strings.Repeat("x", packet.MaxSecretLength)}, false},
		{"ipv6 bracketed no port", "[2001:db8::1]", Server{Host: "2001:db8::1", Port: 1812}, false},
		{"surrounding space", "  10.0.0.1  ", Server{Host: "10.0.0.1", Port: 1812}, false},
		{"empty", "", Server{}, true},
		{"missing bracket", "[2001:db8::1:1812", Server{}, true},
		{"empty host", ":1812", Server{}, true},
		{"bad port", "10.0.0.1:radius", Server{}, true},
		{"port zero", "10.0.0.1:0", Server{}, true},
		{"port overflow", "10.0.0.1:70000", Server{}, true},
		{"secret too long", "10.0.0.1:1812:" + strings.Repeat("x", packet.MaxSecretLength+1), Server{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseServer(tt.input, DefaultAuthPort)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s)
		})
	}
}

func TestParseServers(t *testing.T) {
	list, err := ParseServers("10.0.0.1:1813:a, 10.0.0.2\t[::1]:1900:c", DefaultAcctPort)
	require.NoError(t, err)
	assert.Equal(t, ServerList{
		{Host: "10.0.0.1", Port: 1813, Secret: "a"},
		{Host: "10.0.0.2", Port: 1813},
		{Host: "::1", Port: 1900, Secret: "c"},
	}, list)

	list, err = ParseServers("", DefaultAcctPort)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = ParseServers("10.0.0.1, :5", DefaultAcctPort)
	assert.Error(t, err)
}

func TestServerListFind(t *testing.T) {
	list := ServerList{
		{Host: "a", Port: 1812, Secret: "one"},
		{Host: "a", Port: 1645, Secret: "two"},
	}

	s, ok := list.Find("a", 1645)
	require.True(t, ok)
	assert.Equal(t, "two", s.Secret)

	s, ok = list.Find("a", 0)
	require.True(t, ok)
	assert.Equal(t, "one", s.Secret)

	_, ok = list.Find("b", 1812)
	assert.False(t, ok)
}

func TestServerString(t *testing.T) {
	assert.Equal(t, "10.0.0.1:1812", Server{Host: "10.0.0.1", Port: 1812}.String())
	assert.Equal(t, "[2001:db8::1]:1813", Server{Host: "2001:db8::1", Port: 1813}.String())
}

func TestServerWithDefaultPort(t *testing.T) {
	tests := []struct {
		name     string
		server   Server
		code     packet.Code
		expected uint16
	}{
		{"access", Server{Host: "10.0.0.1"}, packet.CodeAccessRequest, DefaultAuthPort},
		{"status", Server{Host: "10.0.0.1"}, packet.CodeStatusServer, DefaultAuthPort},
		{"accounting", Server{Host: "10.0.0.1"}, packet.CodeAccountingRequest, DefaultAcctPort},
		{"explicit port kept", Server{Host: "10.0.0.1", Port: 1645}, packet.CodeAccountingRequest, 1645},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.server.withDefaultPort(tt.code).Port)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("literal skips lookup", func(t *testing.T) {
		r := &mockResolver{}
		ap, err := resolve(context.Background(), r, Server{Host: "::ffff:10.0.0.1", Port: 1812})
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1:1812", ap.String())
		r.AssertNotCalled(t, "LookupNetIP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("name uses first address", func(t *testing.T) {
		r := &mockResolver{}
		r.On("LookupNetIP", mock.Anything, "ip", "radius.example.com").
			Return([]netip.Addr{netip.MustParseAddr("192.0.2.7"), netip.MustParseAddr("192.0.2.8")}, nil).Once()

		ap, err := resolve(context.Background(), r, Server{Host: "radius.example.com", Port: 1813})
		require.NoError(t, err)
		assert.Equal(t, "192.0.2.7:1813", ap.String())
		r.AssertExpectations(t)
	})

	t.Run("lookup failure", func(t *testing.T) {
		r := &mockResolver{}
		r.On("LookupNetIP", mock.Anything, "ip", "nowhere.invalid").Return(nil, errors.New("no such host"))

		_, err := resolve(context.Background(), r, Server{Host: "nowhere.invalid", Port: 1812})
		assert.ErrorContains(t, err, "no such host")
	})

	t.Run("no addresses", func(t *testing.T) {
		r := &mockResolver{}
		r.On("LookupNetIP", mock.Anything, "ip", "empty.example").Return([]netip.Addr{}, nil)

		_, err := resolve(context.Background(), r, Server{Host: "empty.example", Port: 1812})
		assert.Error(t, err)
	})
}
