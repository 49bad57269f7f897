// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codec

import (
	"github.com/pion/stun/v2"
)

// attrRange is an index range of a single attribute's value inside Raw,
// recorded in wire order alongside pion/stun's own attribute decode so the
// router can ask for things the library doesn't expose directly: the
// MESSAGE-INTEGRITY/FINGERPRINT boundary, and the ordered comprehension-
// required attribute list for a 420 response.
type attrRange struct {
	Type  AttrType
	Start int
	End   int
}

// Message is a decoded STUN/TURN message. It embeds pion/stun's Message,
// which owns attribute storage and wire validation (Contains, Get, Add,
// Decode); Type is redeclared here because this server works in terms of
// its own Method/Class enums rather than naming pion/stun's directly at
// every call site.
type Message struct {
	*stun.Message
	Type MessageType

	attrs []attrRange
}

// ForEach invokes fn with the raw value of every attribute of type t, in
// wire order, stopping at the first error. pion/stun's own ForEach always
// hands the callback the outer message rather than the matched attribute,
// which only does the right thing for single-valued attributes; TURN
// messages can legitimately carry more than one XOR-PEER-ADDRESS, so this
// iterates the decoder's own attribute index instead.
func (m *Message) ForEach(t AttrType, fn func(value []byte) error) error {
	for _, a := range m.attrs {
		if a.Type == t {
			if err := fn(m.Raw[a.Start:a.End]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Types returns the attribute types present on the message, in wire order,
// including duplicates.
func (m *Message) Types() []AttrType {
	out := make([]AttrType, len(m.attrs))
	for i, a := range m.attrs {
		out[i] = a.Type
	}
	return out
}

// UnrecognizedComprehensionRequired returns the comprehension-required
// attribute types present on the message that are not in recognized. The
// Router uses this to build a 420 (Unknown Attribute) response per
// RFC 5389 §7.3.1.
func (m *Message) UnrecognizedComprehensionRequired(recognized map[AttrType]bool) []AttrType {
	var out []AttrType
	seen := map[AttrType]bool{}
	for _, a := range m.attrs {
		if !IsComprehensionRequired(a.Type) || recognized[a.Type] || seen[a.Type] {
			continue
		}
		seen[a.Type] = true
		out = append(out, a.Type)
	}
	return out
}

// attrBoundary returns the byte offset at which the header of the first
// attribute of type t begins, for the MESSAGE-INTEGRITY/FINGERPRINT digest
// boundary math in integrity.go.
func (m *Message) attrBoundary(t AttrType) (int, bool) {
	for _, a := range m.attrs {
		if a.Type == t {
			return a.Start - 4, true
		}
	}
	return 0, false
}
