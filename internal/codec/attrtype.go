// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codec

import "github.com/pion/stun/v2"

// AttrType is a STUN/TURN attribute type (RFC 5389 §15, RFC 5766 §14,
// RFC 6062 §6.2, RFC 6156 §4.1.1). It is an alias of pion/stun's own
// registry type, so every constant below is directly usable against a
// *stun.Message via Contains/Get/Add.
//
// Attribute types below 0x8000 are comprehension-required: an
// implementation that doesn't recognize one MUST reject the message
// (420, UNKNOWN-ATTRIBUTES). Types at or above 0x8000 are
// comprehension-optional and may be silently ignored.
type AttrType = stun.AttrType

// Attribute registry used by this server, re-exported from pion/stun's own
// constants rather than a hand-copied numeric table.
const (
	AttrMappedAddress          = stun.AttrMappedAddress
	AttrUsername               = stun.AttrUsername
	AttrMessageIntegrity       = stun.AttrMessageIntegrity
	AttrErrorCode              = stun.AttrErrorCode
	AttrUnknownAttributes      = stun.AttrUnknownAttributes
	AttrChannelNumber          = stun.AttrChannelNumber
	AttrLifetime               = stun.AttrLifetime
	AttrXORPeerAddress         = stun.AttrXORPeerAddress
	AttrData                   = stun.AttrData
	AttrRealm                  = stun.AttrRealm
	AttrNonce                  = stun.AttrNonce
	AttrXORRelayedAddress      = stun.AttrXORRelayedAddress
	AttrRequestedAddressFamily = stun.AttrRequestedAddressFamily
	AttrEvenPort               = stun.AttrEvenPort
	AttrRequestedTransport     = stun.AttrRequestedTransport
	AttrDontFragment           = stun.AttrDontFragment
	AttrXORMappedAddress       = stun.AttrXORMappedAddress
	AttrReservationToken       = stun.AttrReservationToken
	AttrConnectionID           = stun.AttrConnectionID

	AttrSoftware        = stun.AttrSoftware
	AttrAlternateServer = stun.AttrAlternateServer
	AttrFingerprint     = stun.AttrFingerprint
)

// IsComprehensionRequired reports whether an unrecognized attribute of type
// t must cause the message to be rejected with 420. This is a free
// function rather than a method because AttrType is an alias of a type
// defined in pion/stun, and Go does not allow attaching methods to a type
// defined in another package.
func IsComprehensionRequired(t AttrType) bool {
	return uint16(t) < 0x8000
}

// ChannelNumber is a TURN channel number, valid range 0x4000-0x7FFF
// (RFC 5766 §11).
type ChannelNumber uint16

// MinChannelNumber and MaxChannelNumber bound the valid ChannelBind range.
const (
	MinChannelNumber ChannelNumber = 0x4000
	MaxChannelNumber ChannelNumber = 0x7FFF
)

// Valid reports whether c is in the RFC 5766 channel-number range.
func (c ChannelNumber) Valid() bool {
	return c >= MinChannelNumber && c <= MaxChannelNumber
}

// Protocol identifies a REQUESTED-TRANSPORT protocol number.
type Protocol uint8

// Protocol numbers as carried in REQUESTED-TRANSPORT (RFC 5766 §14.7); these
// reuse the IANA protocol numbers for UDP/TCP.
const (
	ProtoUDP Protocol = 17
	ProtoTCP Protocol = 6
)

// AddressFamily identifies a REQUESTED-ADDRESS-FAMILY value (RFC 6156 §4.1.1).
type AddressFamily uint8

// Address families.
const (
	RequestedFamilyIPv4 AddressFamily = 0x01
	RequestedFamilyIPv6 AddressFamily = 0x02
)
