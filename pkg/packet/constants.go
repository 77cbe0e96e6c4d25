package packet

const (
	// HeaderLength is the length of the RADIUS packet header in bytes
	HeaderLength = 20
	// MaxPacketLength is the maximum allowed RADIUS packet length
	MaxPacketLength = 4096
	// MinPacketLength is the minimum allowed RADIUS packet length
	MinPacketLength = HeaderLength
	// AuthenticatorLength is the length of the authenticator field
	AuthenticatorLength = 16
	// AttributeHeaderLength is the length of attribute header (Type + Length)
	AttributeHeaderLength = 2
	// VendorSpecificHeaderLength is the length of VSA header (Type + Length + Vendor-Id)
	VendorSpecificHeaderLength = 6
	// MaxAttributeValueLength is the largest value a single TLV can carry
	MaxAttributeValueLength = 255 - AttributeHeaderLength
	// MaxVendorValueLength is the largest value an inner vendor TLV can carry
	MaxVendorValueLength = 255 - VendorSpecificHeaderLength - AttributeHeaderLength
	// MaxSecretLength bounds shared secrets
	MaxSecretLength = 48
	// BufferLength is sized so a maximal packet plus the secret appended for
	// digest computation always fits
	BufferLength = 8192
	// MaxMessageLength caps the concatenated Reply-Message text
	MaxMessageLength = 4096
)

// Attribute type codes the engine itself reads or writes.
const (
	AttributeUserName             uint8 = 1
	AttributeUserPassword         uint8 = 2
	AttributeCHAPPassword         uint8 = 3
	AttributeNASIPAddress         uint8 = 4
	AttributeNASPort              uint8 = 5
	AttributeServiceType          uint8 = 6
	AttributeReplyMessage         uint8 = 18
	AttributeState                uint8 = 24
	AttributeClass                uint8 = 25
	AttributeVendorSpecific       uint8 = 26
	AttributeSessionTimeout       uint8 = 27
	AttributeCalledStationID      uint8 = 30
	AttributeCallingStationID     uint8 = 31
	AttributeNASIdentifier        uint8 = 32
	AttributeAcctStatusType       uint8 = 40
	AttributeAcctDelayTime        uint8 = 41
	AttributeAcctSessionID        uint8 = 44
	AttributeEventTimestamp       uint8 = 55
	AttributeCHAPChallenge        uint8 = 60
	AttributeEAPMessage           uint8 = 79
	AttributeMessageAuthenticator uint8 = 80
	AttributeFramedIPv6Prefix     uint8 = 97
	AttributeNASIPv6Address       uint8 = 95
)

// ServiceTypeAdministrative marks management polls, which are sent with
// ManagementSecret instead of the configured one.
const ServiceTypeAdministrative = 6

// ManagementSecret is the fixed secret used for administrative polls.
const ManagementSecret = "!root"
