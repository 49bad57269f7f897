// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"net"

	"github.com/turnrelay/core/internal/codec"
)

// RelayAddressGenerator produces the relay transport and advertised
// address for a new allocation. Implementations choose the listening
// interface and port range; the SessionManager only needs the result.
type RelayAddressGenerator interface {
	// AllocatePacketConn returns a UDP relay socket and the address peers
	// should be told to send to (which may differ from the socket's local
	// address behind a NAT, e.g. a static public IP).
	AllocatePacketConn(network string, requestedPort int) (net.PacketConn, net.Addr, error)
	// AllocateListener returns a TCP relay listener for RFC 6062 relay.
	AllocateListener(network string, requestedPort int) (net.Listener, net.Addr, error)
	// AllocateEvenPort returns a UDP relay socket bound to an even port,
	// per RFC 5766 §14.6. When reserveNext is true, the following odd port
	// is additionally reserved and returned so the caller can hand out a
	// RESERVATION-TOKEN for it.
	AllocateEvenPort(network string, reserveNext bool) (conn net.PacketConn, addr net.Addr, reservedPort int, err error)
	// AddressFamily reports which family this generator allocates from,
	// for matching against REQUESTED-ADDRESS-FAMILY.
	AddressFamily() codec.AddressFamily
}
