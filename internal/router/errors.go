// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package router implements the TURN/STUN method handlers: it takes a
// decoded message plus the session it belongs to and produces a response,
// mutating the SessionManager as each method requires.
package router

import (
	"errors"

	"github.com/turnrelay/core/internal/codec"
)

// protoError pairs a STUN error code/reason with the underlying cause, so
// handlers can build an error response without re-deriving the code from
// the error value at the call site.
type protoError struct {
	code   int
	reason string
	cause  error
	// unknownTypes carries the comprehension-required attribute types for
	// a 420 response, so the handler can attach UNKNOWN-ATTRIBUTES.
	unknownTypes []codec.AttrType
}

func (e *protoError) Error() string { return e.reason }
func (e *protoError) Unwrap() error  { return e.cause }

func newProtoError(code int, reason string, cause error) *protoError {
	return &protoError{code: code, reason: reason, cause: cause}
}

// Well-known error responses (RFC 5389 §15.6, RFC 5766 §15, RFC 6062 §6.3).
var (
	errBadRequest         = newProtoError(400, "Bad Request", errors.New("malformed request"))
	errUnauthorized       = newProtoError(401, "Unauthorized", errors.New("missing or invalid credentials"))
	errForbidden          = newProtoError(403, "Forbidden", errors.New("request not permitted"))
	errAllocationMismatch = newProtoError(437, "Allocation Mismatch", errors.New("five-tuple already has an allocation with different parameters"))
	errWrongCredentials   = newProtoError(441, "Wrong Credentials", errors.New("message integrity check failed"))
	errUnsupportedTransport = newProtoError(442, "Unsupported Transport Protocol", errors.New("requested transport is not supported"))
	errAllocationQuota    = newProtoError(486, "Allocation Quota Reached", errors.New("identity has reached its allocation quota"))
	errInsufficientCap    = newProtoError(508, "Insufficient Capacity", errors.New("server has no relay ports available"))
	errStale              = newProtoError(438, "Stale Nonce", errors.New("nonce expired or unknown"))
	errUnsupportedFamily  = newProtoError(440, "Address Family not Supported", errors.New("requested address family is not available on this server"))
	errPeerAddrFamily     = newProtoError(443, "Peer Address Family Mismatch", errors.New("peer address family does not match the allocation"))
)

var errUnsupportedMethod = errors.New("method not supported")
var errConnectionNotFound = errors.New("connection-id not found or expired")

func codecErrToProto(err error) *protoError {
	switch {
	case err == nil:
		return nil
	default:
		return newProtoError(400, "Bad Request", err)
	}
}

// asProtoError normalizes any error into a protoError, defaulting to 500
// Server Error for causes a handler didn't classify.
func asProtoError(err error) *protoError {
	var pe *protoError
	if errors.As(err, &pe) {
		return pe
	}
	return newProtoError(500, "Server Error", err)
}

func unknownAttrError(types []codec.AttrType) *protoError {
	return &protoError{code: 420, reason: "Unknown Attribute", cause: &codec.UnknownAttributeError{Types: types}, unknownTypes: types}
}
