package client

import (
	"context"
	"errors"

	"github.com/vitalvas/radcli/pkg/crypto"
	"github.com/vitalvas/radcli/pkg/packet"
	"github.com/vitalvas/radcli/pkg/transport"
)

// Result is the outcome of an exchange as reported to callers.
type Result int

const (
	ResultOK Result = iota
	ResultChallenge
	ResultReject
	ResultBadResponse
	ResultTimeout
	ResultNetworkUnreachable
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultChallenge:
		return "challenge"
	case ResultReject:
		return "reject"
	case ResultBadResponse:
		return "bad-response"
	case ResultTimeout:
		return "timeout"
	case ResultNetworkUnreachable:
		return "network-unreachable"
	default:
		return "error"
	}
}

var (
	// ErrTimeout is returned when no valid response arrived within the
	// configured retries.
	ErrTimeout = errors.New("no response from server")
	// ErrNetworkUnreachable is returned when there is no route to the server.
	ErrNetworkUnreachable = transport.ErrNetworkUnreachable
	// ErrContextPopulated is returned when an AaaContext is reused.
	ErrContextPopulated = errors.New("aaa context already populated")
	// ErrLockingTransport is returned when an asynchronous request is
	// created over a transport that needs serialized access.
	ErrLockingTransport = errors.New("transport requires locking, not supported for asynchronous requests")
	// ErrNoServer is returned when no server is configured or given.
	ErrNoServer = errors.New("no server")
	// ErrInvalidConfig is returned for configuration that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ResultOf maps an error from this package to the caller-facing result.
// A nil error is ResultOK.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrTimeout):
		return ResultTimeout
	case errors.Is(err, ErrNetworkUnreachable):
		return ResultNetworkUnreachable
	case errors.Is(err, packet.ErrDigestMismatch),
		errors.Is(err, packet.ErrMalformedPacket),
		errors.Is(err, crypto.ErrMessageAuthenticator):
		return ResultBadResponse
	case errors.Is(err, context.DeadlineExceeded):
		return ResultTimeout
	default:
		return ResultError
	}
}

// classify maps a validated response code to its result.
func classify(code packet.Code) Result {
	switch code {
	case packet.CodeAccessAccept, packet.CodePasswordAck, packet.CodeAccountingResponse:
		return ResultOK
	case packet.CodeAccessReject, packet.CodePasswordReject:
		return ResultReject
	case packet.CodeAccessChallenge:
		return ResultChallenge
	default:
		return ResultBadResponse
	}
}
