// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"time"

	"github.com/turnrelay/core/internal/codec"
)

// handleRefresh implements the Refresh transaction (RFC 5766 §7): LIFETIME
// 0 deletes the allocation immediately; any other value extends it,
// clamped to the server's maximum.
func (r *Router) handleRefresh(req *Request) ([]byte, error) {
	auth, pe := r.authenticate(req)
	if pe != nil {
		return nil, pe
	}

	alloc, ok := r.cfg.Sessions.Get(req.Identifier)
	if !ok {
		return nil, newProtoError(437, "Allocation Mismatch", errAllocationMismatch)
	}
	if alloc.UserID != auth.userID {
		return nil, errForbidden
	}

	lifetimeSeconds := uint32(defaultAllocationLifetimeSeconds)
	if lifetimeRaw, err := req.Message.Get(codec.AttrLifetime); err == nil {
		decoded, err := codec.DecodeLifetime(lifetimeRaw)
		if err != nil {
			return nil, errBadRequest
		}
		lifetimeSeconds = decoded
	}

	if lifetimeSeconds == 0 {
		r.TeardownOffload(alloc, req.Now)
		r.cfg.Sessions.Delete(req.Identifier)
		r.cfg.Events.OnAllocationExpired(auth.userID, req.SrcAddr, nil)
	} else {
		if lifetimeSeconds > maxAllocationLifetimeSeconds {
			lifetimeSeconds = maxAllocationLifetimeSeconds
		}
		alloc.Refresh(time.Duration(lifetimeSeconds)*time.Second, req.Now)
		r.cfg.Events.OnRefresh(auth.userID, req.SrcAddr, time.Duration(lifetimeSeconds)*time.Second)
	}

	typ := codec.NewType(codec.MethodRefresh, codec.ClassSuccessResponse)
	b := codec.NewBuilder(typ, req.Message.TransactionID)
	b.Add(codec.AttrLifetime, codec.EncodeLifetime(lifetimeSeconds))
	return b.Flush(auth.key, true)
}
