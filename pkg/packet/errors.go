package packet

import "errors"

var (
	// ErrMalformedPacket indicates a structural violation in a received packet.
	// It is never retried.
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrDigestMismatch indicates the response authenticator does not match
	// the one computed from the request vector and the shared secret.
	ErrDigestMismatch = errors.New("response digest mismatch")
	// ErrIdentifierMismatch indicates a response for another request. Callers
	// drop the packet and keep listening.
	ErrIdentifierMismatch = errors.New("response identifier mismatch")
	// ErrBufferTooSmall is returned when the encoder would write past its buffer.
	ErrBufferTooSmall = errors.New("encode buffer too small")
	// ErrValueTooLong is returned for values that do not fit a single TLV.
	ErrValueTooLong = errors.New("attribute value too long")
	// ErrInvalidValue is returned when a value does not match its type tag.
	ErrInvalidValue = errors.New("invalid attribute value")
	// ErrNotRequest is returned when asked to encode a code a client does
	// not send.
	ErrNotRequest = errors.New("not a request code")
)
