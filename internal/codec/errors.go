// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package codec implements the STUN/TURN wire format: message and
// ChannelData decoding, attribute access, and response encoding with
// MESSAGE-INTEGRITY and FINGERPRINT.
package codec

import "github.com/pkg/errors"

// Sentinel errors returned by the decoder. Callers distinguish a silent
// drop (InvalidInput) from a protocol-level failure that must produce a
// STUN error response (IntegrityFailed, and friends at the router layer).
var (
	// ErrTooShort is returned when a buffer is smaller than a STUN header
	// or a ChannelData header.
	ErrTooShort = errors.New("buffer shorter than minimum frame size")
	// ErrBadMagicCookie is returned when the STUN magic cookie doesn't match.
	ErrBadMagicCookie = errors.New("bad magic cookie")
	// ErrLengthMismatch is returned when the header length field disagrees
	// with the buffer length (accounting for TCP padding).
	ErrLengthMismatch = errors.New("message length does not match buffer")
	// ErrMalformedAttribute is returned when an attribute's TLV framing
	// runs past the end of the message.
	ErrMalformedAttribute = errors.New("malformed attribute")
	// ErrUnknownPrefix describes a frame whose first byte's top two bits
	// are neither 00 (STUN) nor 01 (ChannelData). Classify reports such a
	// frame through its FrameKind result; no function here returns this
	// error.
	ErrUnknownPrefix = errors.New("unrecognized frame prefix")
	// ErrAttributeNotFound is returned by VerifyIntegrity and
	// VerifyFingerprint when the attribute they check is absent.
	ErrAttributeNotFound = errors.New("attribute not found")
	// ErrUnsupportedFamily is returned decoding an address attribute with
	// an address family other than IPv4/IPv6.
	ErrUnsupportedFamily = errors.New("unsupported address family")
	// ErrIntegrityMismatch is returned by VerifyIntegrity.
	ErrIntegrityMismatch = errors.New("message integrity mismatch")
	// ErrBadUTF8 is returned decoding a string attribute that is not valid UTF-8.
	ErrBadUTF8 = errors.New("attribute value is not valid UTF-8")
)

// UnknownAttributeError carries the comprehension-required attribute types
// the decoder could not interpret, for building a 420 response.
type UnknownAttributeError struct {
	Types []AttrType
}

func (e *UnknownAttributeError) Error() string {
	return "unknown comprehension-required attribute(s) present"
}
