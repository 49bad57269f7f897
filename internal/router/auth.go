// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"github.com/turnrelay/core/internal/auth"
	"github.com/turnrelay/core/internal/codec"
)

// authResult carries the outcome of a successful long-term credential
// check: the key to use for response MESSAGE-INTEGRITY and the identity
// string the SessionManager and EventSink key off of.
type authResult struct {
	userID string
	key    []byte
}

// authenticate runs the long-term credential mechanism (RFC 5389 §10.2)
// against req.Message: it requires USERNAME, REALM, NONCE, and
// MESSAGE-INTEGRITY all be present and consistent. A missing
// MESSAGE-INTEGRITY or NONCE, or a user the AuthHandler rejects, gets a
// 401 challenge (REALM + NONCE); a missing USERNAME or REALM, or a REALM
// other than the configured one, gets 400; an invalid or expired nonce
// gets 438 with a fresh nonce; and a failed integrity check gets 441.
func (r *Router) authenticate(req *Request) (*authResult, *protoError) {
	m := req.Message

	if !m.Contains(codec.AttrMessageIntegrity) {
		return nil, r.challenge(req)
	}

	usernameRaw, err := m.Get(codec.AttrUsername)
	if err != nil {
		return nil, errBadRequest
	}
	username, err := codec.DecodeUsername(usernameRaw)
	if err != nil {
		return nil, errBadRequest
	}

	nonceRaw, err := m.Get(codec.AttrNonce)
	if err != nil {
		return nil, r.challenge(req)
	}
	nonce, err := codec.DecodeNonce(nonceRaw)
	if err != nil || !r.nonce.Validate(nonce, req.Now) {
		return nil, errStale
	}

	realmRaw, err := m.Get(codec.AttrRealm)
	if err != nil {
		return nil, errBadRequest
	}
	realm, err := codec.DecodeRealm(realmRaw)
	if err != nil || realm != r.cfg.Realm {
		return nil, errBadRequest
	}

	userID, key, ok := r.cfg.AuthHandler(&auth.RequestAttributes{
		Username: username,
		Realm:    realm,
		SrcAddr:  req.SrcAddr,
	})
	if !ok {
		r.cfg.Events.OnAuthFailure(username, req.SrcAddr, errUnauthorized)
		return nil, errUnauthorized
	}

	if err := codec.VerifyIntegrity(m, key); err != nil {
		r.cfg.Events.OnAuthFailure(username, req.SrcAddr, errWrongCredentials)
		return nil, errWrongCredentials
	}

	return &authResult{userID: userID, key: key}, nil
}

// challenge builds the 401 response that issues a fresh REALM/NONCE pair.
func (r *Router) challenge(req *Request) *protoError {
	return errUnauthorized
}
