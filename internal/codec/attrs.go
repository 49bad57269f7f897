// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codec

import (
	"encoding/binary"
	"net"
	"net/netip"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	familyIPv4 byte = 0x01
	familyIPv6 byte = 0x02
)

// Addr is an IP/port pair as carried by a *-ADDRESS attribute.
type Addr struct {
	IP   net.IP
	Port int
}

// AddrPort converts a to a netip.AddrPort, normalizing IPv4-in-IPv6 forms.
func (a Addr) AddrPort() netip.AddrPort {
	ip, _ := netip.AddrFromSlice(a.IP)
	return netip.AddrPortFrom(ip.Unmap(), uint16(a.Port))
}

// DecodeXORAddr decodes an XOR-MAPPED-ADDRESS-family attribute value
// (RFC 5389 §15.2): the port is XORed with the high 16 bits of the magic
// cookie, and the address is XORed with the magic cookie concatenated with
// the transaction ID.
func DecodeXORAddr(value []byte, tid [TransactionIDSize]byte) (Addr, error) {
	if len(value) < 4 {
		return Addr{}, ErrMalformedAttribute
	}
	family := value[1]
	xport := binary.BigEndian.Uint16(value[2:4])
	port := int(xport ^ uint16(MagicCookie>>16))

	var xorKey [16]byte
	binary.BigEndian.PutUint32(xorKey[0:4], MagicCookie)
	copy(xorKey[4:16], tid[:])

	switch family {
	case familyIPv4:
		if len(value) != 8 {
			return Addr{}, ErrMalformedAttribute
		}
		ip := make(net.IP, 4)
		for i := 0; i < 4; i++ {
			ip[i] = value[4+i] ^ xorKey[i]
		}
		return Addr{IP: ip, Port: port}, nil
	case familyIPv6:
		if len(value) != 20 {
			return Addr{}, ErrMalformedAttribute
		}
		ip := make(net.IP, 16)
		for i := 0; i < 16; i++ {
			ip[i] = value[4+i] ^ xorKey[i]
		}
		return Addr{IP: ip, Port: port}, nil
	default:
		return Addr{}, ErrUnsupportedFamily
	}
}

// EncodeXORAddr is the inverse of DecodeXORAddr.
func EncodeXORAddr(a Addr, tid [TransactionIDSize]byte) ([]byte, error) {
	ip4 := a.IP.To4()

	var xorKey [16]byte
	binary.BigEndian.PutUint32(xorKey[0:4], MagicCookie)
	copy(xorKey[4:16], tid[:])

	xport := uint16(a.Port) ^ uint16(MagicCookie>>16)

	if ip4 != nil {
		out := make([]byte, 8)
		out[1] = familyIPv4
		binary.BigEndian.PutUint16(out[2:4], xport)
		for i := 0; i < 4; i++ {
			out[4+i] = ip4[i] ^ xorKey[i]
		}
		return out, nil
	}

	ip16 := a.IP.To16()
	if ip16 == nil {
		return nil, errors.New("invalid IP address")
	}
	out := make([]byte, 20)
	out[1] = familyIPv6
	binary.BigEndian.PutUint16(out[2:4], xport)
	for i := 0; i < 16; i++ {
		out[4+i] = ip16[i] ^ xorKey[i]
	}
	return out, nil
}

// ErrorCode is a decoded ERROR-CODE attribute value (RFC 5389 §15.6).
type ErrorCode struct {
	Code   int
	Reason string
}

// DecodeErrorCode decodes an ERROR-CODE attribute.
func DecodeErrorCode(value []byte) (ErrorCode, error) {
	if len(value) < 4 {
		return ErrorCode{}, ErrMalformedAttribute
	}
	class := int(value[2] & 0x07)
	number := int(value[3])
	if class < 3 || class > 6 {
		return ErrorCode{}, errors.New("invalid error class")
	}
	return ErrorCode{Code: class*100 + number, Reason: string(value[4:])}, nil
}

// EncodeErrorCode encodes an ERROR-CODE attribute.
func EncodeErrorCode(e ErrorCode) []byte {
	class := byte(e.Code / 100)
	number := byte(e.Code % 100)
	out := make([]byte, 4+len(e.Reason))
	out[2] = class & 0x07
	out[3] = number
	copy(out[4:], e.Reason)
	return out
}

// DecodeUnknownAttributes decodes an UNKNOWN-ATTRIBUTES attribute value.
func DecodeUnknownAttributes(value []byte) ([]AttrType, error) {
	if len(value)%2 != 0 {
		return nil, ErrMalformedAttribute
	}
	out := make([]AttrType, 0, len(value)/2)
	for i := 0; i < len(value); i += 2 {
		out = append(out, AttrType(binary.BigEndian.Uint16(value[i:i+2])))
	}
	return out, nil
}

// EncodeUnknownAttributes encodes an UNKNOWN-ATTRIBUTES attribute value.
func EncodeUnknownAttributes(types []AttrType) []byte {
	out := make([]byte, len(types)*2)
	for i, t := range types {
		binary.BigEndian.PutUint16(out[i*2:i*2+2], uint16(t))
	}
	return out
}

func decodeUTF8(value []byte) (string, error) {
	if !utf8.Valid(value) {
		return "", ErrBadUTF8
	}
	return string(value), nil
}

// DecodeNonce decodes a NONCE attribute value.
func DecodeNonce(value []byte) (string, error) { return decodeUTF8(value) }

// DecodeRealm decodes a REALM attribute value.
func DecodeRealm(value []byte) (string, error) { return decodeUTF8(value) }

// DecodeUsername decodes a USERNAME attribute value.
func DecodeUsername(value []byte) (string, error) { return decodeUTF8(value) }

// DecodeSoftware decodes a SOFTWARE attribute value.
func DecodeSoftware(value []byte) (string, error) { return decodeUTF8(value) }

// DecodeRequestedTransport decodes a REQUESTED-TRANSPORT attribute value
// (RFC 5766 §14.7); the low 3 octets are reserved and must be zero on send,
// ignored on receive.
func DecodeRequestedTransport(value []byte) (Protocol, error) {
	if len(value) != 4 {
		return 0, ErrMalformedAttribute
	}
	return Protocol(value[0]), nil
}

// EncodeRequestedTransport encodes a REQUESTED-TRANSPORT attribute value.
func EncodeRequestedTransport(p Protocol) []byte {
	return []byte{byte(p), 0, 0, 0}
}

// DecodeEvenPort decodes an EVEN-PORT attribute value (RFC 5766 §14.6);
// bit 0 of the single octet is the R (reserve-next) flag.
func DecodeEvenPort(value []byte) (reserveNext bool, err error) {
	if len(value) != 1 {
		return false, ErrMalformedAttribute
	}
	return value[0]&0x80 != 0, nil
}

// EncodeEvenPort encodes an EVEN-PORT attribute value.
func EncodeEvenPort(reserveNext bool) []byte {
	if reserveNext {
		return []byte{0x80}
	}
	return []byte{0x00}
}

// DecodeLifetime decodes a LIFETIME attribute value, in seconds.
func DecodeLifetime(value []byte) (uint32, error) {
	if len(value) != 4 {
		return 0, ErrMalformedAttribute
	}
	return binary.BigEndian.Uint32(value), nil
}

// EncodeLifetime encodes a LIFETIME attribute value, in seconds.
func EncodeLifetime(seconds uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, seconds)
	return out
}

// ReservationTokenSize is the fixed size of a RESERVATION-TOKEN attribute
// value (RFC 5766 §14.9).
const ReservationTokenSize = 8

// DecodeReservationToken decodes a RESERVATION-TOKEN attribute value.
func DecodeReservationToken(value []byte) ([8]byte, error) {
	var tok [8]byte
	if len(value) != ReservationTokenSize {
		return tok, ErrMalformedAttribute
	}
	copy(tok[:], value)
	return tok, nil
}

// EncodeReservationToken encodes a RESERVATION-TOKEN attribute value.
func EncodeReservationToken(tok [8]byte) []byte {
	return tok[:]
}

// DecodeChannelNumber decodes a CHANNEL-NUMBER attribute value; the
// trailing two octets are reserved (RFC 5766 §14.1).
func DecodeChannelNumber(value []byte) (ChannelNumber, error) {
	if len(value) != 4 {
		return 0, ErrMalformedAttribute
	}
	return ChannelNumber(binary.BigEndian.Uint16(value[0:2])), nil
}

// EncodeChannelNumber encodes a CHANNEL-NUMBER attribute value.
func EncodeChannelNumber(c ChannelNumber) []byte {
	return []byte{byte(c >> 8), byte(c), 0, 0}
}

// DecodeConnectionID decodes a CONNECTION-ID attribute value (RFC 6062 §6.2).
func DecodeConnectionID(value []byte) (uint32, error) {
	if len(value) != 4 {
		return 0, ErrMalformedAttribute
	}
	return binary.BigEndian.Uint32(value), nil
}

// EncodeConnectionID encodes a CONNECTION-ID attribute value.
func EncodeConnectionID(id uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, id)
	return out
}

// DecodeRequestedAddressFamily decodes a REQUESTED-ADDRESS-FAMILY value
// (RFC 6156 §4.1.1).
func DecodeRequestedAddressFamily(value []byte) (AddressFamily, error) {
	if len(value) != 4 {
		return 0, ErrMalformedAttribute
	}
	return AddressFamily(value[0]), nil
}

// EncodeRequestedAddressFamily encodes a REQUESTED-ADDRESS-FAMILY value.
func EncodeRequestedAddressFamily(f AddressFamily) []byte {
	return []byte{byte(f), 0, 0, 0}
}
