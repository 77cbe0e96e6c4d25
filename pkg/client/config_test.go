package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/radcli/pkg/packet"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "radcli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, "udp", cfg.Transport)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.AuthServers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
auth_servers:
  - 10.0.0.1::testing123
  - host: radius.example.com
    port: 1645
    secret: other
acct_servers:
  - "[2001:db8::1]::acct"
timeout: 5s
retries: 2
bind_addr: 0.0.0.0
nas_addr: 192.0.2.1
nas_identifier: nas-01
transport: tcp
require_message_authenticator: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ServerList{
		{Host: "10.0.0.1", Port: DefaultAuthPort, Secret: "testing123"},
		{Host: "radius.example.com", Port: 1645, Secret: "other"},
	}, cfg.AuthServers)
	assert.Equal(t, ServerList{{Host: "2001:db8::1", Port: DefaultAcctPort, Secret: "acct"}}, cfg.AcctServers)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, "0.0.0.0", cfg.BindAddr)
	assert.Equal(t, "192.0.2.1", cfg.NASAddr)
	assert.Equal(t, "nas-01", cfg.NASIdentifier)
	assert.Equal(t, "tcp", cfg.Transport)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.RequireMessageAuthenticator)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not yaml", "auth_servers: [unterminated"},
		{"bad server", "auth_servers: [':1812']"},
		{"missing secret", "auth_servers: ['10.0.0.1']"},
		{"bad transport", "transport: sctp"},
		{"negative retries", "retries: -1"},
		{"bad bind address", "bind_addr: not-an-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigApplyEnv(t *testing.T) {
	t.Setenv("RADCLI_TIMEOUT", "750ms")
	t.Setenv("RADCLI_RETRIES", "5")
	t.Setenv("RADCLI_NAS_IDENTIFIER", "from-env")
	t.Setenv("RADCLI_AUTH_SERVERS", "10.1.1.1::a, 10.1.1.2:1645:b")
	t.Setenv("RADCLI_REQUIRE_MESSAGE_AUTHENTICATOR", "true")

	cfg := DefaultConfig()
	cfg.Transport = "tcp"
	cfg.AcctServers = ServerList{{Host: "10.9.9.9", Port: 1813, Secret: "kept"}}
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, "from-env", cfg.NASIdentifier)
	assert.Equal(t, "tcp", cfg.Transport, "unset variables leave fields alone")
	assert.True(t, cfg.RequireMessageAuthenticator)
	assert.Equal(t, ServerList{
		{Host: "10.1.1.1", Port: DefaultAuthPort, Secret: "a"},
		{Host: "10.1.1.2", Port: 1645, Secret: "b"},
	}, cfg.AuthServers)
	assert.Equal(t, ServerList{{Host: "10.9.9.9", Port: 1813, Secret: "kept"}}, cfg.AcctServers)
}

func TestConfigApplyEnvError(t *testing.T) {
	t.Setenv("RADCLI_RETRIES", "many")
	assert.Error(t, DefaultConfig().ApplyEnv())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"transport case insensitive", func(c *Config) { c.Transport = "TCP" }, false},
		{"ipv6 nas address", func(c *Config) { c.NASAddr = "2001:db8::5" }, false},
		{"bad nas address", func(c *Config) { c.NASAddr = "nas" }, true},
		{"server without host", func(c *Config) { c.AcctServers = ServerList{{Port: 1813, Secret: "x"}} }, true},
		{"longest secret", func(c *Config) {
			c.AuthServers = ServerList{{Host: "10.0.0.1", Port: 1812, Secret: strings.Repeat("k", packet.MaxSecretLength)}}
		}, false},
		{"secret too long", func(c *Config) {
			c.AcctServers = ServerList{{Host: "10.0.0.1", Port: 1813, Secret: strings.Repeat("k", packet.MaxSecretLength+1)}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
