// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codec

import (
	"encoding/binary"

	"github.com/pion/stun/v2"
)

// FrameKind is the result of Classify.
type FrameKind uint8

// Frame kinds.
const (
	FrameUnknown FrameKind = iota
	FrameSTUN
	FrameChannelData
)

// Classify inspects the two most-significant bits of the first byte to
// distinguish a STUN message (00) from a ChannelData frame (01), per
// RFC 5766 §11.6. Any other prefix is not a TURN/STUN frame.
func Classify(b []byte) FrameKind {
	if len(b) == 0 {
		return FrameUnknown
	}
	switch b[0] >> 6 {
	case 0b00:
		return FrameSTUN
	case 0b01:
		return FrameChannelData
	default:
		return FrameUnknown
	}
}

const headerSize = 20

// Decoder decodes STUN messages and ChannelData frames. It is not safe for
// concurrent use: callers keep one Decoder per task/connection and reuse it
// so the attribute-index scratch buffer doesn't reallocate on the hot path.
type Decoder struct {
	scratch []attrRange
}

// NewDecoder returns a Decoder with its scratch buffer pre-sized for a
// typical TURN message (a handful of attributes).
func NewDecoder() *Decoder {
	return &Decoder{scratch: make([]attrRange, 0, 16)}
}

// DecodeMessage parses b as a STUN message via pion/stun's own Message
// decoder, which owns attribute storage and the MESSAGE-INTEGRITY/
// FINGERPRINT machinery in integrity.go. The returned Message copies b,
// mirroring how the rest of the corpus hands pion/stun a fresh buffer
// rather than one a caller's read loop may reuse.
func (d *Decoder) DecodeMessage(b []byte, transport Transport) (*Message, error) {
	if len(b) < headerSize {
		return nil, ErrTooShort
	}
	if b[0]>>6 != 0 {
		return nil, ErrBadMagicCookie
	}

	length := binary.BigEndian.Uint16(b[2:4])
	if length%4 != 0 {
		return nil, ErrLengthMismatch
	}
	if binary.BigEndian.Uint32(b[4:8]) != MagicCookie {
		return nil, ErrBadMagicCookie
	}

	total := headerSize + int(length)
	switch transport {
	case TransportTCP:
		if len(b) < total {
			return nil, ErrLengthMismatch
		}
	default:
		if len(b) != total {
			return nil, ErrLengthMismatch
		}
	}

	raw := make([]byte, total)
	copy(raw, b[:total])

	sm := &stun.Message{Raw: raw}
	if err := sm.Decode(); err != nil {
		return nil, ErrMalformedAttribute
	}

	d.scratch = d.scratch[:0]
	offset := headerSize
	for offset < total {
		if total-offset < 4 {
			return nil, ErrMalformedAttribute
		}
		attrType := AttrType(binary.BigEndian.Uint16(raw[offset : offset+2]))
		attrLen := int(binary.BigEndian.Uint16(raw[offset+2 : offset+4]))
		valueStart := offset + 4
		valueEnd := valueStart + attrLen
		if valueEnd > total {
			return nil, ErrMalformedAttribute
		}

		d.scratch = append(d.scratch, attrRange{Type: attrType, Start: valueStart, End: valueEnd})

		padded := attrLen + ((4 - attrLen%4) % 4)
		offset = valueStart + padded
	}
	if offset != total {
		return nil, ErrMalformedAttribute
	}

	m := &Message{
		Message: sm,
		Type:    DecodeMessageType(binary.BigEndian.Uint16(raw[0:2])),
		attrs:   append([]attrRange(nil), d.scratch...),
	}
	return m, nil
}

// ChannelData is a decoded TURN ChannelData frame (RFC 5766 §11.4).
type ChannelData struct {
	Number ChannelNumber
	Data   []byte
	// Raw is the full frame including header and, on TCP, trailing padding.
	Raw []byte
}

const channelDataHeaderSize = 4

// DecodeChannelData parses b as a ChannelData frame. On TCP, the frame is
// padded to a 4-byte boundary and b may contain that padding; on UDP no
// padding is permitted and b must be exactly header+payload.
func DecodeChannelData(b []byte, transport Transport) (*ChannelData, error) {
	if len(b) < channelDataHeaderSize {
		return nil, ErrTooShort
	}

	number := ChannelNumber(binary.BigEndian.Uint16(b[0:2]))
	length := int(binary.BigEndian.Uint16(b[2:4]))
	total := channelDataHeaderSize + length

	switch transport {
	case TransportTCP:
		if len(b) < total {
			return nil, ErrLengthMismatch
		}
	default:
		if len(b) != total {
			return nil, ErrLengthMismatch
		}
	}

	return &ChannelData{
		Number: number,
		Data:   b[channelDataHeaderSize:total],
		Raw:    b,
	}, nil
}

// FramedLen returns the total on-wire length of a ChannelData frame
// carrying a payload of payloadLen bytes, including TCP padding to a
// 4-byte boundary (RFC 6062 §11.5). UDP framing is never padded.
func FramedLen(payloadLen int, transport Transport) int {
	total := channelDataHeaderSize + payloadLen
	if transport == TransportTCP {
		total += (4 - total%4) % 4
	}
	return total
}
