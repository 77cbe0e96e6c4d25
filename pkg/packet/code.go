package packet

import "fmt"

// Code is the RADIUS packet type carried in the first header octet.
type Code uint8

// Packet codes used by the client engine (RFC 2865, RFC 2866).
const (
	CodeAccessRequest      Code = 1
	CodeAccessAccept       Code = 2
	CodeAccessReject       Code = 3
	CodeAccountingRequest  Code = 4
	CodeAccountingResponse Code = 5
	// Password-* codes are the legacy Livingston password change exchange.
	CodePasswordRequest Code = 7
	CodePasswordAck     Code = 8
	CodePasswordReject  Code = 9
	CodeAccessChallenge Code = 11
	CodeStatusServer    Code = 12
	CodeStatusClient    Code = 13
)

// String returns the RFC name of the code.
func (c Code) String() string {
	switch c {
	case CodeAccessRequest:
		return "Access-Request"
	case CodeAccessAccept:
		return "Access-Accept"
	case CodeAccessReject:
		return "Access-Reject"
	case CodeAccountingRequest:
		return "Accounting-Request"
	case CodeAccountingResponse:
		return "Accounting-Response"
	case CodePasswordRequest:
		return "Password-Request"
	case CodePasswordAck:
		return "Password-Ack"
	case CodePasswordReject:
		return "Password-Reject"
	case CodeAccessChallenge:
		return "Access-Challenge"
	case CodeStatusServer:
		return "Status-Server"
	case CodeStatusClient:
		return "Status-Client"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// IsRequest reports whether a client may send a packet with this code.
func (c Code) IsRequest() bool {
	switch c {
	case CodeAccessRequest, CodeAccountingRequest, CodePasswordRequest, CodeStatusServer:
		return true
	default:
		return false
	}
}

// IsAccounting reports whether the code belongs to RFC 2866 accounting.
// Accounting requests carry an MD5 request authenticator instead of a random one.
func (c Code) IsAccounting() bool {
	return c == CodeAccountingRequest || c == CodeAccountingResponse
}
