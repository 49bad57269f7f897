// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package turn implements a TURN/STUN relay server (RFC 5389, RFC 5766,
// RFC 6062): long-term credential authentication, UDP and TCP relay
// allocation, channel binding, and the TCP relay extension, assembled from
// the internal codec, session, router, and transport packages.
package turn

import (
	"net"

	"github.com/turnrelay/core/internal/session"
)

// Identifier re-exports the session package's allocation key so embedders
// can correlate EventSink callbacks (which carry net.Addr values) back to a
// specific allocation without importing internal/session themselves.
type Identifier = session.Identifier

// ParseIP parses addrStr as an IPv4 or IPv6 address, returning an error
// message identical in shape to the rest of this package's configuration
// validation rather than relying on the zero-value ambiguity of net.ParseIP.
func ParseIP(addrStr string) (net.IP, error) {
	ip := net.ParseIP(addrStr)
	if ip == nil {
		return nil, errInvalidIPAddress
	}
	return ip, nil
}
