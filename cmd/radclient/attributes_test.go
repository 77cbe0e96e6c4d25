package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/radcli/pkg/packet"
)

func TestParseAttributes(t *testing.T) {
	input := `
# comment
User-Name = bob
user-password = "hello world"
NAS-Port = 7
Framed-IP-Address = 10.0.0.5
Framed-IPv6-Prefix = 2001:db8::/64
Event-Timestamp = 1700000000
`
	pairs, err := parseAttributes(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, pairs, 6)

	assert.Equal(t, "bob", pairs[0].String())
	assert.Equal(t, "hello world", pairs[1].String())
	assert.Equal(t, packet.Standard(packet.AttributeUserPassword), pairs[1].Attribute)
	assert.Equal(t, "7", pairs[2].String())
	assert.Equal(t, "10.0.0.5", pairs[3].String())
	assert.Equal(t, "2001:db8::/64", pairs[4].String())
	assert.Equal(t, packet.TypeDate, pairs[5].Type)
	assert.Equal(t, "2023-11-14T22:13:20Z", pairs[5].String())
}

func TestParseAttributesErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing equals", "User-Name bob"},
		{"unknown attribute", "Favourite-Colour = blue"},
		{"bad integer", "NAS-Port = seven"},
		{"bad address", "NAS-IP-Address = 300.1.1.1"},
		{"ipv6 in ipv4 attribute", "NAS-IP-Address = ::1"},
		{"bad date", "Event-Timestamp = yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAttributes(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestPrintPairs(t *testing.T) {
	var buf bytes.Buffer
	printPairs(&buf, packet.Pairs{
		packet.NewInteger(packet.Standard(packet.AttributeSessionTimeout), 60),
		packet.NewString(packet.MakeAttributeID(9, 1), "cisco-avpair"),
	})
	assert.Equal(t, "\tSession-Timeout = 60\n\t9:1 = cisco-avpair\n", buf.String())
}

func TestResolveType(t *testing.T) {
	assert.Equal(t, packet.TypeInteger, resolveType(packet.Standard(packet.AttributeSessionTimeout)))
	assert.Equal(t, packet.TypeString, resolveType(packet.Standard(200)))
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(options{server: "127.0.0.1", secret: "s", acct: true, retries: 1, timeout: 0})
	require.NoError(t, err)
	require.Len(t, cfg.AcctServers, 1)
	assert.Equal(t, uint16(1813), cfg.AcctServers[0].Port)
	assert.Equal(t, "s", cfg.AcctServers[0].Secret)
	assert.Equal(t, 1, cfg.Retries)

	_, err = loadConfig(options{server: "127.0.0.1", retries: -1})
	assert.Error(t, err, "server without secret")
}
