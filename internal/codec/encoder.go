// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codec

import (
	"encoding/binary"

	"github.com/pion/stun/v2"
)

type rawAttr struct {
	Type  AttrType
	Value []byte
}

// AddTo lets a rawAttr stand in as a stun.Setter, so Flush can hand every
// attribute added through Builder.Add to stun.Build alongside the
// TransactionID/Type/MESSAGE-INTEGRITY/FINGERPRINT setters, in the same
// order the teacher's own buildMsg helper does.
func (a rawAttr) AddTo(m *stun.Message) error {
	m.Add(a.Type, a.Value)
	return nil
}

// Builder assembles a STUN/TURN message for the wire. Callers Add
// attributes in the order they should appear, then Flush to obtain the
// encoded bytes with MESSAGE-INTEGRITY (if a key is given) and FINGERPRINT
// (if requested) appended last, per RFC 5389 §15.4-15.5: MESSAGE-INTEGRITY
// must cover everything before it including its own header with the length
// field set as if it were the final attribute, and FINGERPRINT must be the
// true final attribute, covering the MESSAGE-INTEGRITY attribute too.
// Flush delegates this entirely to stun.Build/stun.MessageIntegrity/
// stun.Fingerprint rather than computing the digests itself.
type Builder struct {
	Type          MessageType
	TransactionID [TransactionIDSize]byte

	attrs []rawAttr
}

// NewBuilder returns a Builder for typ with the given transaction ID.
func NewBuilder(typ MessageType, tid [TransactionIDSize]byte) *Builder {
	return &Builder{Type: typ, TransactionID: tid}
}

// Add appends an attribute with a pre-encoded value.
func (b *Builder) Add(t AttrType, value []byte) *Builder {
	b.attrs = append(b.attrs, rawAttr{Type: t, Value: value})
	return b
}

// Flush encodes the message. If key is non-nil, a MESSAGE-INTEGRITY
// attribute is computed over everything added so far and appended. If
// fingerprint is true, a FINGERPRINT attribute is appended last, computed
// over the message including MESSAGE-INTEGRITY if present.
func (b *Builder) Flush(key []byte, fingerprint bool) ([]byte, error) {
	setters := make([]stun.Setter, 0, len(b.attrs)+4)
	setters = append(setters,
		&stun.Message{TransactionID: b.TransactionID},
		stun.NewType(stun.Method(b.Type.Method), stun.MessageClass(b.Type.Class)),
	)
	for _, a := range b.attrs {
		setters = append(setters, a)
	}
	if key != nil {
		setters = append(setters, stun.MessageIntegrity(key))
	}
	if fingerprint {
		setters = append(setters, stun.Fingerprint)
	}

	sm, err := stun.Build(setters...)
	if err != nil {
		return nil, err
	}
	return sm.Raw, nil
}

// EncodeChannelData encodes a ChannelData frame (RFC 5766 §11.4). On TCP,
// the frame is padded to a 4-byte boundary (RFC 6062 §11.5); on UDP no
// padding is added.
func EncodeChannelData(number ChannelNumber, data []byte, transport Transport) []byte {
	total := FramedLen(len(data), transport)
	raw := make([]byte, total)
	binary.BigEndian.PutUint16(raw[0:2], uint16(number))
	binary.BigEndian.PutUint16(raw[2:4], uint16(len(data)))
	copy(raw[channelDataHeaderSize:], data)
	return raw
}
