// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codec

// Transport distinguishes the padding rules applied to ChannelData and STUN
// framing: TCP streams pad every frame to a 4-byte boundary (RFC 6062
// §11.5); UDP datagrams carry no padding.
type Transport uint8

// Transport values.
const (
	TransportUDP Transport = iota
	TransportTCP
)

// Class is the two-bit STUN message class (RFC 5389 §6).
type Class uint8

// Message classes.
const (
	ClassRequest         Class = 0x00
	ClassIndication      Class = 0x01
	ClassSuccessResponse Class = 0x02
	ClassErrorResponse   Class = 0x03
)

func (c Class) String() string {
	switch c {
	case ClassRequest:
		return "request"
	case ClassIndication:
		return "indication"
	case ClassSuccessResponse:
		return "success response"
	case ClassErrorResponse:
		return "error response"
	default:
		return "unknown class"
	}
}

// Method is the STUN/TURN method, RFC 5389 §18.1 and RFC 5766 §13.
type Method uint16

// Methods used by this server. Connect/ConnectionBind/ConnectionAttempt are
// the RFC 6062 TCP relay extension.
const (
	MethodBinding           Method = 0x001
	MethodAllocate          Method = 0x003
	MethodRefresh           Method = 0x004
	MethodSend              Method = 0x006
	MethodData              Method = 0x007
	MethodCreatePermission  Method = 0x008
	MethodChannelBind       Method = 0x009
	MethodConnect           Method = 0x00a
	MethodConnectionBind    Method = 0x00b
	MethodConnectionAttempt Method = 0x00c
)

func (m Method) String() string {
	switch m {
	case MethodBinding:
		return "Binding"
	case MethodAllocate:
		return "Allocate"
	case MethodRefresh:
		return "Refresh"
	case MethodSend:
		return "Send"
	case MethodData:
		return "Data"
	case MethodCreatePermission:
		return "CreatePermission"
	case MethodChannelBind:
		return "ChannelBind"
	case MethodConnect:
		return "Connect"
	case MethodConnectionBind:
		return "ConnectionBind"
	case MethodConnectionAttempt:
		return "ConnectionAttempt"
	default:
		return "Unknown"
	}
}

// MessageType is the decoded (method, class) pair. Encode/decode follow the
// bit-interleaving scheme of RFC 5389 §6: the class occupies bits 4 and 8 of
// the 14-bit method space.
type MessageType struct {
	Method Method
	Class  Class
}

// Value packs the MessageType into the 16-bit wire field.
func (t MessageType) Value() uint16 {
	m := uint16(t.Method)
	c := uint16(t.Class)

	a := m & 0b0000000001111
	b := m & 0b0000001110000
	d := m & 0b1111110000000

	return a | (c&0b01)<<4 | b<<1 | (c&0b10)<<7 | d<<2
}

// DecodeMessageType unpacks the 16-bit wire field into a MessageType.
func DecodeMessageType(v uint16) MessageType {
	a := v & 0b0000000000001111
	b := (v >> 1) & 0b0000000001110000
	d := (v >> 2) & 0b0001111110000000

	c := (v>>4)&0b01 | (v>>7)&0b10

	return MessageType{Method: Method(a | b | d), Class: Class(c)}
}

// NewType is a convenience constructor mirroring the teacher's stun.NewType.
func NewType(method Method, class Class) MessageType {
	return MessageType{Method: method, Class: class}
}

// MagicCookie is the fixed STUN magic cookie (RFC 5389 §6).
const MagicCookie uint32 = 0x2112A442

// FingerprintXOR is XORed into the CRC32 of the message to form FINGERPRINT
// (RFC 5389 §15.5), chosen so FINGERPRINT never collides with a prior
// generation's magic-cookie-less STUN implementations.
const FingerprintXOR uint32 = 0x5354554E

// TransactionIDSize is the size in bytes of the 96-bit STUN transaction ID.
const TransactionIDSize = 12
