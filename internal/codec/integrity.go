// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"encoding/binary"

	"github.com/pion/stun/v2"
	"github.com/pkg/errors"
)

const fingerprintSize = 4

// VerifyIntegrity checks the MESSAGE-INTEGRITY attribute of m against key,
// via pion/stun's own HMAC-SHA1 implementation (RFC 5389 §15.4).
func VerifyIntegrity(m *Message, key []byte) error {
	if !m.Contains(AttrMessageIntegrity) {
		return ErrAttributeNotFound
	}
	if err := stun.MessageIntegrity(key).Check(m.Message); err != nil {
		return errors.Wrap(ErrIntegrityMismatch, err.Error())
	}
	return nil
}

// VerifyFingerprint checks the FINGERPRINT attribute of m, if present.
// pion/stun exposes FINGERPRINT only as a build-time Setter, not a
// standalone checker, so this rebuilds the expected value by replaying
// that Setter over a copy of the message truncated at the FINGERPRINT
// attribute, rather than computing CRC-32 itself.
func VerifyFingerprint(m *Message) error {
	value, err := m.Get(AttrFingerprint)
	if err != nil {
		return err
	}
	if len(value) != fingerprintSize {
		return errors.Wrap(ErrMalformedAttribute, "FINGERPRINT")
	}

	boundary, ok := m.attrBoundary(AttrFingerprint)
	if !ok {
		return ErrAttributeNotFound
	}

	candidateRaw := append([]byte(nil), m.Raw[:boundary]...)
	binary.BigEndian.PutUint16(candidateRaw[2:4], uint16(boundary-headerSize))
	candidate := &stun.Message{Raw: candidateRaw}
	if err := candidate.Decode(); err != nil {
		return err
	}
	if err := stun.Fingerprint.AddTo(candidate); err != nil {
		return err
	}
	want, err := candidate.Get(AttrFingerprint)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, value) {
		return errors.New("fingerprint mismatch")
	}
	return nil
}
