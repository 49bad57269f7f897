// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package transport implements the orchestration layer: binding the
// configured listening interfaces, funneling decoded datagrams into the
// Router, and delivering replies and peer-side relay traffic back to
// clients, including across interfaces via the Exchange.
package transport

import (
	"time"

	"github.com/pion/transport/v3"
	"github.com/pion/transport/v3/stdnet"

	"github.com/turnrelay/core/internal/codec"
)

// InterfaceConfig describes one listening interface the orchestrator binds:
// a transport kind, the local address to bind, and the address advertised
// to clients for traffic received on it (which may differ from Bind behind
// a NAT or load balancer).
type InterfaceConfig struct {
	Transport codec.Transport
	// Network is the literal dial/listen network: "udp4" for UDP (the only
	// family internal/ipnet's destination-address detection currently
	// supports), or "tcp4"/"tcp6" for TCP relay control connections.
	Network string
	Bind    string
	// IdleTimeout closes a TCP connection on this interface after this
	// long without a complete frame. Ignored for UDP, where idle is a
	// property of the SessionManager's allocation lifetime, not the
	// connectionless socket.
	IdleTimeout time.Duration
	// MTU, if non-zero, advisory-bounds DATA indication payloads relayed
	// to clients on this interface: oversized peer datagrams are dropped
	// and counted rather than fragmented.
	MTU int
}

// Config configures an Orchestrator.
type Config struct {
	Interfaces []InterfaceConfig
	// ReapInterval bounds how often the SessionManager is swept for
	// expired allocations, permissions, and channel bindings (§4.2 tick);
	// the spec requires a cadence of at most 1s.
	ReapInterval time.Duration
	// ExchangeBuffer bounds the per-interface cross-listener forwarding
	// channel. A full channel causes the producer to drop the datagram
	// and count it, never to block (§5).
	ExchangeBuffer int
	// MaxDatagramSize bounds the scratch buffer used to read UDP
	// datagrams and TCP frames.
	MaxDatagramSize int

	// Net is the pluggable network the orchestrator binds its listening
	// interfaces through (github.com/pion/transport/v3's Net interface),
	// the same seam the teacher's RelayAddressGeneratorNone/PortRange use.
	// A nil value defaults to stdnet, native OS sockets; passing a
	// vnet.Net instead makes the whole orchestrator runnable against an
	// in-memory virtual network, without binding real sockets.
	Net transport.Net
}

func (c Config) net() (transport.Net, error) {
	if c.Net != nil {
		return c.Net, nil
	}
	return stdnet.NewNet()
}

func (c Config) reapInterval() time.Duration {
	if c.ReapInterval <= 0 {
		return time.Second
	}
	return c.ReapInterval
}

func (c Config) exchangeBuffer() int {
	if c.ExchangeBuffer <= 0 {
		return 256
	}
	return c.ExchangeBuffer
}

func (c Config) maxDatagramSize() int {
	if c.MaxDatagramSize <= 0 {
		return 1500
	}
	return c.MaxDatagramSize
}
