// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package session implements the SessionManager: the server's table of
// active allocations, their permissions, channel bindings, and relay
// sockets, keyed by client identity and indexed for concurrent access.
package session

import (
	"net"
	"net/netip"

	"github.com/turnrelay/core/internal/codec"
)

// Identifier names a single TURN allocation, derived from the five-tuple
// of the request that created it: client address/port, the transport it
// arrived on, and the local address it was received on (so a dual-stack
// or multi-homed server can't collide two clients on the same port across
// interfaces). It is normalized so two logically equal addresses (e.g. an
// IPv4-mapped IPv6 form and a plain IPv4 form) hash and compare equal.
type Identifier struct {
	Client    netip.AddrPort
	Local     netip.AddrPort
	Transport codec.Transport
}

// NewIdentifier builds an Identifier from net.Addr values, normalizing
// IPv4-in-IPv6 representations via Unmap so callers don't need to.
func NewIdentifier(client, local net.Addr, transport codec.Transport) (Identifier, error) {
	c, err := addrPort(client)
	if err != nil {
		return Identifier{}, err
	}
	l, err := addrPort(local)
	if err != nil {
		return Identifier{}, err
	}
	return Identifier{Client: c, Local: l, Transport: transport}, nil
}

// ClientAddr converts id's client AddrPort back to a net.Addr, for handing
// to an EventSink callback that was never given the original net.Addr (the
// reaper, unlike a request handler, only has the Identifier to work from).
func ClientAddr(id Identifier) net.Addr {
	return net.UDPAddrFromAddrPort(id.Client)
}

func addrPort(a net.Addr) (netip.AddrPort, error) {
	switch v := a.(type) {
	case *net.UDPAddr:
		ip, ok := netip.AddrFromSlice(v.IP)
		if !ok {
			return netip.AddrPort{}, errInvalidAddr
		}
		return netip.AddrPortFrom(ip.Unmap(), uint16(v.Port)), nil
	case *net.TCPAddr:
		ip, ok := netip.AddrFromSlice(v.IP)
		if !ok {
			return netip.AddrPort{}, errInvalidAddr
		}
		return netip.AddrPortFrom(ip.Unmap(), uint16(v.Port)), nil
	default:
		return netip.AddrPort{}, errInvalidAddr
	}
}
