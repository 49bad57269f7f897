// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"net"

	"github.com/turnrelay/core/internal/codec"
)

// handleChannelDataFrame implements the ChannelData fast path (RFC 5766
// §11.4): no STUN parsing, no per-packet allocation, just a channel-number
// lookup and a socket write. A bound channel implies permission, so there
// is no separate permission check here.
func (r *Router) handleChannelDataFrame(cd *codec.ChannelData, req *Request) error {
	alloc, ok := r.cfg.Sessions.Get(req.Identifier)
	if !ok || alloc.RelayUDP == nil {
		return nil
	}

	peer, ok := alloc.Channels.PeerFor(cd.Number, req.Now)
	if !ok {
		return nil
	}

	udpAddr := net.UDPAddrFromAddrPort(peer)
	n, err := alloc.RelayUDP.WriteTo(cd.Data, udpAddr)
	if err != nil {
		return nil
	}
	alloc.AddSent(n)
	r.cfg.Events.OnRelayPacket(alloc.UserID, req.SrcAddr, udpAddr, n, false)
	return nil
}
