// Package radcli is a RADIUS client engine. It builds and verifies RADIUS
// packets, runs blocking exchanges against a list of servers, and drives
// non-blocking requests from an external event loop.
//
// The implementation lives under pkg/; this package re-exports the types a
// typical caller needs so that a single import covers the common paths.
package radcli

import (
	"github.com/vitalvas/radcli/pkg/client"
	"github.com/vitalvas/radcli/pkg/packet"
)

type (
	Client     = client.Client
	Option     = client.Option
	Config     = client.Config
	Server     = client.Server
	ServerList = client.ServerList
	SendData   = client.SendData
	Reply      = client.Reply
	Result     = client.Result
	AaaContext = client.AaaContext
	Request    = client.Request
	Multi      = client.Multi
	Key        = client.Key

	Code  = packet.Code
	Pair  = packet.Pair
	Pairs = packet.Pairs
)

const (
	ResultOK                 = client.ResultOK
	ResultChallenge          = client.ResultChallenge
	ResultReject             = client.ResultReject
	ResultBadResponse        = client.ResultBadResponse
	ResultTimeout            = client.ResultTimeout
	ResultNetworkUnreachable = client.ResultNetworkUnreachable
	ResultError              = client.ResultError
)

// New creates a client. See client.New for the available options.
func New(opts ...Option) (*Client, error) {
	return client.New(opts...)
}

// NewWithConfig loads the YAML file at path, applies RADCLI_* environment
// overrides and creates a client from the result.
func NewWithConfig(path string, opts ...Option) (*Client, error) {
	cfg, err := client.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return client.New(append([]Option{client.WithConfig(cfg)}, opts...)...)
}

// NewMulti creates an empty request scheduler.
func NewMulti() *Multi {
	return client.NewMulti()
}

// ResultOf classifies an error returned by an exchange.
func ResultOf(err error) Result {
	return client.ResultOf(err)
}
