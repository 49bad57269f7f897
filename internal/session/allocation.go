// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turnrelay/core/internal/codec"
)

// defaultAllocationLifetime is the lifetime a new allocation starts with
// (ten minutes), and maxAllocationLifetime (one hour) caps any lifetime
// passed to Refresh (RFC 5766 §7, §2.2).
const (
	defaultAllocationLifetime = 10 * time.Minute
	maxAllocationLifetime     = time.Hour
)

// Stats holds the atomically-updated packet/byte counters for an
// allocation, read by callers (e.g. metrics exporters) without taking the
// allocation's lock.
type Stats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	BytesSent       uint64
	BytesReceived   uint64
}

// RelaySocket is whatever transport backs an allocation's relay address:
// a UDP PacketConn for ordinary TURN relay, or a TCP Listener for RFC 6062
// relay where each peer connection is accepted and bound individually.
type RelaySocket interface {
	Close() error
}

// Allocation is one client's TURN relay: its relay transport, permission
// and channel tables, and the bookkeeping needed to refresh or expire it.
// The zero value is not usable; construct with newAllocation.
type Allocation struct {
	ID       Identifier
	UserID   string
	Protocol codec.Protocol
	Relay    RelaySocket
	RelayUDP net.PacketConn // non-nil when Protocol == ProtoUDP
	RelayTCP net.Listener   // non-nil when Protocol == ProtoTCP (RFC 6062)

	Permissions *PermissionTable
	Channels    *ChannelTable
	Connections *ConnectionTable

	stats Stats

	mu        sync.Mutex
	expiresAt time.Time
	closed    bool
}

func newAllocation(id Identifier, userID string, proto codec.Protocol, relay RelaySocket, now time.Time) *Allocation {
	a := &Allocation{
		ID:          id,
		UserID:      userID,
		Protocol:    proto,
		Relay:       relay,
		Permissions: newPermissionTable(),
		Channels:    newChannelTable(),
		Connections: newConnectionTable(),
		expiresAt:   now.Add(defaultAllocationLifetime),
	}
	switch r := relay.(type) {
	case net.PacketConn:
		a.RelayUDP = r
	case net.Listener:
		a.RelayTCP = r
	}
	return a
}

// Refresh extends the allocation's expiry by lifetime seconds from now,
// clamped to [0, maxAllocationLifetime]. A lifetime of zero marks the
// allocation for immediate deletion (RFC 5766 §7).
func (a *Allocation) Refresh(lifetime time.Duration, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if lifetime > maxAllocationLifetime {
		lifetime = maxAllocationLifetime
	}
	a.expiresAt = now.Add(lifetime)
}

// Expired reports whether the allocation's lifetime has elapsed.
func (a *Allocation) Expired(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !now.Before(a.expiresAt)
}

// ExpiresAt returns the current expiry deadline.
func (a *Allocation) ExpiresAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expiresAt
}

// Close releases the allocation's relay transport. It is safe to call more
// than once.
func (a *Allocation) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	return a.Relay.Close()
}

// RelayAddr returns a's relay transport's local address, or nil if a has
// neither a UDP nor a TCP relay socket. A closed allocation still reports
// the address its socket was bound to.
func RelayAddr(a *Allocation) net.Addr {
	switch {
	case a.RelayUDP != nil:
		return a.RelayUDP.LocalAddr()
	case a.RelayTCP != nil:
		return a.RelayTCP.Addr()
	default:
		return nil
	}
}

// AddSent records bytes relayed toward the peer side.
func (a *Allocation) AddSent(n int) {
	atomic.AddUint64(&a.stats.PacketsSent, 1)
	atomic.AddUint64(&a.stats.BytesSent, uint64(n))
}

// AddReceived records bytes relayed toward the client side.
func (a *Allocation) AddReceived(n int) {
	atomic.AddUint64(&a.stats.PacketsReceived, 1)
	atomic.AddUint64(&a.stats.BytesReceived, uint64(n))
}

// Stats returns a consistent-enough snapshot of the allocation's counters.
func (a *Allocation) Stats() Stats {
	return Stats{
		PacketsSent:     atomic.LoadUint64(&a.stats.PacketsSent),
		PacketsReceived: atomic.LoadUint64(&a.stats.PacketsReceived),
		BytesSent:       atomic.LoadUint64(&a.stats.BytesSent),
		BytesReceived:   atomic.LoadUint64(&a.stats.BytesReceived),
	}
}
