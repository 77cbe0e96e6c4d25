package client

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables read by
// ApplyEnv, e.g. RADCLI_TIMEOUT.
const EnvPrefix = "radcli"

// Config holds the client settings.
type Config struct {
	AuthServers   ServerList    `yaml:"auth_servers" envconfig:"AUTH_SERVERS"`
	AcctServers   ServerList    `yaml:"acct_servers" envconfig:"ACCT_SERVERS"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Retries       int           `yaml:"retries" envconfig:"RETRIES"`
	BindAddr      string        `yaml:"bind_addr" envconfig:"BIND_ADDR"`
	NASAddr       string        `yaml:"nas_addr" envconfig:"NAS_ADDR"`
	NASIdentifier string        `yaml:"nas_identifier" envconfig:"NAS_IDENTIFIER"`
	Transport     string        `yaml:"transport" envconfig:"TRANSPORT"`
	LogLevel      string        `yaml:"log_level" envconfig:"LOG_LEVEL"`

	// RequireMessageAuthenticator rejects responses that carry no
	// Message-Authenticator. Responses that carry one are always verified.
	RequireMessageAuthenticator bool `yaml:"require_message_authenticator" envconfig:"REQUIRE_MESSAGE_AUTHENTICATOR"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Timeout:   3 * time.Second,
		Retries:   3,
		Transport: "udp",
		LogLevel:  "info",
	}
}

// LoadConfig reads a YAML configuration file. Unset values take their
// defaults and the result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from RADCLI_* environment variables. Variables
// that are not set leave the field alone.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 3 * time.Second
	}
	if c.Transport == "" {
		c.Transport = "udp"
	}
	for i := range c.AuthServers {
		if c.AuthServers[i].Port == 0 {
			c.AuthServers[i].Port = DefaultAuthPort
		}
	}
	for i := range c.AcctServers {
		if c.AcctServers[i].Port == 0 {
			c.AcctServers[i].Port = DefaultAcctPort
		}
	}
}

// Validate checks the configuration for values the client cannot use.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Transport) {
	case "udp", "tcp":
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}

	for _, a := range []struct{ name, value string }{
		{"bind_addr", c.BindAddr},
		{"nas_addr", c.NASAddr},
	} {
		if a.value == "" {
			continue
		}
		if _, err := netip.ParseAddr(a.value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, a.name, err)
		}
	}

	for _, list := range []ServerList{c.AuthServers, c.AcctServers} {
		for _, s := range list {
			if s.Host == "" {
				return fmt.Errorf("%w: server without host", ErrInvalidConfig)
			}
			if s.Secret == "" {
				return fmt.Errorf("%w: server %s has no secret", ErrInvalidConfig, s)
			}
			if err := checkSecret(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decode lets envconfig read a server list written as
// "host[:port[:secret]], ...".
func (l *ServerList) Decode(value string) error {
	list, err := ParseServers(value, 0)
	if err != nil {
		return err
	}
	*l = list
	return nil
}

// UnmarshalYAML accepts either the "host[:port[:secret]]" form or a
// mapping with host, port and secret keys.
func (s *Server) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		srv, err := ParseServer(node.Value, 0)
		if err != nil {
			return err
		}
		*s = srv
		return nil
	}

	type plain Server
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Server(p)
	return nil
}
