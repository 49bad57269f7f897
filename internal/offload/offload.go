// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package offload defines the seam between the ChannelData relay path and
// a kernel-level acceleration engine (XDP/eBPF, most notably): once a
// channel binding is established, the engine is told the client<->peer
// four-tuple it now owns, so a capable engine can splice the traffic in
// the kernel instead of round-tripping it through this process.
package offload

import (
	"fmt"
	"net"

	"github.com/turnrelay/core/internal/codec"
)

// Engine accelerates (or, for NullEngine, merely tracks) the ChannelData
// fast path for a client<->peer pairing.
type Engine interface {
	Init() error
	Shutdown()
	// Upsert installs or refreshes an offload between client and peer.
	Upsert(client, peer Connection) error
	// Remove tears down a previously installed offload. It is not an
	// error to Remove a pairing that was never Upserted.
	Remove(client, peer Connection) error
	// List returns every currently offloaded pairing, keyed by client
	// connection.
	List() (map[Connection]Connection, error)
}

// Connection identifies one side of an offloaded pairing: the relay
// socket's local address, the remote address on the other end, which
// transport it runs over, and, for the client side, the channel number
// the pairing was bound under (0 for the peer side, which isn't bound to
// a channel number itself).
type Connection struct {
	LocalAddr  net.Addr
	RemoteAddr net.Addr
	Transport  codec.Transport
	ChannelID  uint32
}

func (c Connection) String() string {
	return fmt.Sprintf("transport:%v local:%s remote:%s chan:%d", c.Transport, c.LocalAddr, c.RemoteAddr, c.ChannelID)
}
