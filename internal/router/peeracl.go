// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import "net/netip"

// PeerACL is the set of server-known addresses CreatePermission and
// ChannelBind may install permissions for (RFC 5766 §9.2 leaves what counts
// as an acceptable peer to the deployment; this is that policy). A nil or
// empty PeerACL allows any peer, matching a TURN server with no configured
// restriction.
type PeerACL []netip.Prefix

// Allowed reports whether ip falls within any configured prefix.
func (acl PeerACL) Allowed(ip netip.Addr) bool {
	if len(acl) == 0 {
		return true
	}
	ip = ip.Unmap()
	for _, p := range acl {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}
