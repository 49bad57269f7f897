// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"net"
	"net/netip"

	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/offload"
	"github.com/turnrelay/core/internal/session"
)

// handleChannelBind implements ChannelBind (RFC 5766 §11.1): binds a
// channel number in [0x4000,0x7FFF] to a peer address, implicitly granting
// that peer a permission (RFC 5766 §11.2), and is idempotent for a repeat
// of the same (channel, peer) pair. A peer outside AllowedPeers gets 403.
func (r *Router) handleChannelBind(req *Request) ([]byte, error) {
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

	numberRaw, err := m.Get(codec.AttrChannelNumber)
	if err != nil {
		return nil, errBadRequest
	}
	number, err := codec.DecodeChannelNumber(numberRaw)
	if err != nil || !number.Valid() {
		return nil, errBadRequest
	}

	peerRaw, err := m.Get(codec.AttrXORPeerAddress)
	if err != nil {
		return nil, errBadRequest
	}
	peerAddr, err := codec.DecodeXORAddr(peerRaw, m.TransactionID)
	if err != nil {
		return nil, errBadRequest
	}
	ip, ok := netip.AddrFromSlice(peerAddr.IP)
	if !ok {
		return nil, errBadRequest
	}
	peerIP := ip.Unmap()
	peer := netip.AddrPortFrom(peerIP, uint16(peerAddr.Port))

	if !r.cfg.AllowedPeers.Allowed(peerIP) {
		return nil, errForbidden
	}

	if err := alloc.Channels.Bind(number, peer, req.Now); err != nil {
		return nil, newProtoError(400, "Bad Request", err)
	}
	if err := alloc.Permissions.Grant(peerIP, req.Now); err != nil {
		return nil, newProtoError(508, "Insufficient Capacity", err)
	}

	r.cfg.Events.OnChannelBind(auth.userID, req.SrcAddr, uint16(number), netAddrFromPeer(peerIP))

	if relayAddr := session.RelayAddr(alloc); relayAddr != nil {
		client := offload.Connection{LocalAddr: relayAddr, RemoteAddr: req.SrcAddr, Transport: req.Transport, ChannelID: uint32(number)}
		peerConn := offload.Connection{LocalAddr: relayAddr, RemoteAddr: &net.UDPAddr{IP: peerIP.AsSlice(), Port: int(peerAddr.Port)}, Transport: req.Transport}
		_ = r.cfg.Offload.Upsert(client, peerConn)
	}

	typ := codec.NewType(codec.MethodChannelBind, codec.ClassSuccessResponse)
	b := codec.NewBuilder(typ, m.TransactionID)
	return b.Flush(auth.key, true)
}
