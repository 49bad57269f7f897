// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"net/netip"

	"github.com/turnrelay/core/internal/codec"
)

// handleCreatePermission implements CreatePermission (RFC 5766 §9.2): it
// installs or refreshes a permission for every XOR-PEER-ADDRESS present,
// port-independent per RFC 5766 §9.1, failing the whole request if any
// peer address can't be parsed or the permission table is full.
func (r *Router) handleCreatePermission(req *Request) ([]byte, error) {
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

	m := req.Message
	if !m.Contains(codec.AttrXORPeerAddress) {
		return nil, errBadRequest
	}

	var peers []netip.Addr
	err := m.ForEach(codec.AttrXORPeerAddress, func(value []byte) error {
		addr, err := codec.DecodeXORAddr(value, m.TransactionID)
		if err != nil {
			return err
		}
		ip, ok := netip.AddrFromSlice(addr.IP)
		if !ok {
			return errBadRequest
		}
		peers = append(peers, ip.Unmap())
		return nil
	})
	if err != nil {
		return nil, errBadRequest
	}

	for _, peer := range peers {
		if !r.cfg.AllowedPeers.Allowed(peer) {
			return nil, errForbidden
		}
	}

	for _, peer := range peers {
		if err := alloc.Permissions.Grant(peer, req.Now); err != nil {
			return nil, newProtoError(508, "Insufficient Capacity", err)
		}
		r.cfg.Events.OnPermissionCreated(auth.userID, req.SrcAddr, netAddrFromPeer(peer))
	}

	typ := codec.NewType(codec.MethodCreatePermission, codec.ClassSuccessResponse)
	b := codec.NewBuilder(typ, m.TransactionID)
	return b.Flush(auth.key, true)
}
