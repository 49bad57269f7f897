// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import "net/netip"

// netAddrFromPeer adapts a permission-table key (an IP-only netip.Addr)
// back into a net.Addr for EventSink callbacks, which are keyed on the
// addressing types the rest of the codebase uses.
func netAddrFromPeer(ip netip.Addr) *netipAddr {
	return &netipAddr{ip: ip}
}

// netipAddr is a minimal net.Addr wrapping a netip.Addr with no port,
// since permissions are port-independent (RFC 5766 §9.1).
type netipAddr struct {
	ip netip.Addr
}

func (a *netipAddr) Network() string { return "ip" }
func (a *netipAddr) String() string  { return a.ip.String() }
