// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"crypto/rand"
	"net"
	"net/netip"
	"time"

	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/ipnet"
	"github.com/turnrelay/core/internal/session"
)

// handleSend implements the Send Indication (RFC 5766 §7.4): relays DATA
// to XOR-PEER-ADDRESS over the allocation's UDP relay socket, silently
// dropping the indication (no response is ever sent) if there is no
// allocation, no permission for the peer, or the message is malformed.
func (r *Router) handleSend(req *Request) error {
	m := req.Message

	alloc, ok := r.cfg.Sessions.Get(req.Identifier)
	if !ok || alloc.RelayUDP == nil {
		return nil
	}

	peerRaw, err := m.Get(codec.AttrXORPeerAddress)
	if err != nil {
		return nil
	}
	peerAddr, err := codec.DecodeXORAddr(peerRaw, m.TransactionID)
	if err != nil {
		return nil
	}

	data, err := m.Get(codec.AttrData)
	if err != nil {
		return nil
	}

	ip, ok := netip.AddrFromSlice(peerAddr.IP)
	if !ok {
		return nil
	}
	if !alloc.Permissions.Allowed(ip.Unmap(), req.Now) {
		return nil
	}

	udpAddr := &net.UDPAddr{IP: peerAddr.IP, Port: peerAddr.Port}
	n, err := alloc.RelayUDP.WriteTo(data, udpAddr)
	if err != nil {
		return nil
	}
	alloc.AddSent(n)
	r.cfg.Events.OnRelayPacket(alloc.UserID, req.SrcAddr, udpAddr, n, false)
	return nil
}

// RelayFromPeer is called by the transport layer when a packet arrives on
// an allocation's relay socket from a peer. It builds and returns the Data
// Indication to deliver to the client, or nil if the peer has no
// permission and the packet must be dropped (RFC 5766 §10.3).
func (r *Router) RelayFromPeer(alloc *session.Allocation, peer net.Addr, data []byte, clientTransport codec.Transport, now time.Time) []byte {
	ip, port, err := ipnet.AddrIPPort(peer)
	if err != nil {
		return nil
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return nil
	}
	peerIP := addr.Unmap()
	if !alloc.Permissions.Allowed(peerIP, now) {
		return nil
	}

	alloc.AddReceived(len(data))
	r.cfg.Events.OnRelayPacket(alloc.UserID, nil, peer, len(data), true)

	if number, ok := alloc.Channels.ChannelFor(netip.AddrPortFrom(peerIP, uint16(port)), now); ok {
		return codec.EncodeChannelData(number, data, clientTransport)
	}

	var tid [codec.TransactionIDSize]byte
	if _, err := rand.Read(tid[:]); err != nil {
		return nil
	}

	typ := codec.NewType(codec.MethodData, codec.ClassIndication)
	b := codec.NewBuilder(typ, tid)

	xor, err := codec.EncodeXORAddr(codec.Addr{IP: ip, Port: port}, tid)
	if err != nil {
		return nil
	}
	b.Add(codec.AttrXORPeerAddress, xor)
	b.Add(codec.AttrData, data)

	raw, _ := b.Flush(nil, true)
	return raw
}
