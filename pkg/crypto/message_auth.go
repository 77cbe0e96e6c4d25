package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"fmt"
)

// Message-Authenticator implementation as defined in RFC 2869 and RFC 3579

const (
	// MessageAuthenticatorLength is the length of the Message-Authenticator value
	MessageAuthenticatorLength = 16

	messageAuthenticatorType       = 80
	messageAuthenticatorAttrLength = 2 + MessageAuthenticatorLength
	headerLength                   = 20
	maxPacketLength                = 4096
)

// CalculateMessageAuthenticator computes HMAC-MD5 over packetData with the
// value of any Message-Authenticator attribute treated as zero. The
// authenticator field of packetData is used as it stands.
func CalculateMessageAuthenticator(packetData []byte, sharedSecret []byte) ([MessageAuthenticatorLength]byte, error) {
	var result [MessageAuthenticatorLength]byte
	if len(packetData) < headerLength {
		return result, fmt.Errorf("packet too short for Message-Authenticator calculation")
	}

	calcData := make([]byte, len(packetData))
	copy(calcData, packetData)
	if off := findMessageAuthenticatorOffset(calcData); off != -1 {
		clear(calcData[off : off+MessageAuthenticatorLength])
	}

	mac := hmac.New(md5.New, sharedSecret)
	mac.Write(calcData)
	copy(result[:], mac.Sum(nil))
	return result, nil
}

// AppendMessageAuthenticator appends a Message-Authenticator attribute to a
// request whose header already carries its final authenticator, fixes the
// length field and signs the packet. It fails if the packet would exceed the
// maximum RADIUS length.
func AppendMessageAuthenticator(packetData []byte, sharedSecret []byte) ([]byte, error) {
	if len(packetData) < headerLength {
		return nil, fmt.Errorf("packet too short for Message-Authenticator")
	}
	if HasMessageAuthenticator(packetData) {
		return nil, fmt.Errorf("message-authenticator already exists in packet")
	}
	if len(packetData)+messageAuthenticatorAttrLength > maxPacketLength {
		return nil, fmt.Errorf("no room for Message-Authenticator in a %d byte packet", len(packetData))
	}

	packetData = append(packetData, messageAuthenticatorType, messageAuthenticatorAttrLength)
	packetData = append(packetData, make([]byte, MessageAuthenticatorLength)...)
	n := len(packetData)
	packetData[2] = byte(n >> 8)
	packetData[3] = byte(n)

	sum, err := CalculateMessageAuthenticator(packetData, sharedSecret)
	if err != nil {
		return nil, err
	}
	copy(packetData[n-MessageAuthenticatorLength:], sum[:])
	return packetData, nil
}

// VerifyResponseMessageAuthenticator checks the Message-Authenticator of a
// response. The HMAC covers the response with the Request Authenticator in
// place of the Response Authenticator. A response without the attribute
// passes unless required is set.
func VerifyResponseMessageAuthenticator(response []byte, requestAuth Authenticator, sharedSecret []byte, required bool) error {
	off := findMessageAuthenticatorOffset(response)
	if off == -1 {
		if required {
			return fmt.Errorf("%w: attribute missing", ErrMessageAuthenticator)
		}
		return nil
	}

	calcData := make([]byte, len(response))
	copy(calcData, response)
	copy(calcData[4:headerLength], requestAuth[:])
	clear(calcData[off : off+MessageAuthenticatorLength])

	mac := hmac.New(md5.New, sharedSecret)
	mac.Write(calcData)
	if !hmac.Equal(mac.Sum(nil), response[off:off+MessageAuthenticatorLength]) {
		return ErrMessageAuthenticator
	}
	return nil
}

// HasMessageAuthenticator checks if the packet contains a Message-Authenticator attribute
func HasMessageAuthenticator(packetData []byte) bool {
	return findMessageAuthenticatorOffset(packetData) != -1
}

// findMessageAuthenticatorOffset returns the offset of the value of the first
// well-formed Message-Authenticator attribute, or -1.
func findMessageAuthenticatorOffset(packetData []byte) int {
	if len(packetData) < headerLength {
		return -1
	}

	offset := headerLength
	for offset+2 <= len(packetData) {
		attrType := packetData[offset]
		attrLength := int(packetData[offset+1])
		if attrLength < 2 || offset+attrLength > len(packetData) {
			break
		}
		if attrType == messageAuthenticatorType && attrLength == messageAuthenticatorAttrLength {
			return offset + 2
		}
		offset += attrLength
	}
	return -1
}
