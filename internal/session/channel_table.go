// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"net/netip"
	"sync"
	"time"

	"github.com/turnrelay/core/internal/codec"
)

// channelLifetime is the RFC 5766 §11 channel binding TTL.
const channelLifetime = 10 * time.Minute

type channelBind struct {
	peer   netip.AddrPort
	expiry time.Time
}

// ChannelTable is the bijective channel-number <-> peer-address map for a
// single allocation: a channel number binds to exactly one peer transport
// address (IP and port), and a peer binds to at most one channel number,
// per RFC 5766 §11.
type ChannelTable struct {
	mu       sync.Mutex
	byNumber map[codec.ChannelNumber]*channelBind
	byPeer   map[netip.AddrPort]codec.ChannelNumber
}

func newChannelTable() *ChannelTable {
	return &ChannelTable{
		byNumber: make(map[codec.ChannelNumber]*channelBind),
		byPeer:   make(map[netip.AddrPort]codec.ChannelNumber),
	}
}

// Bind creates or refreshes a channel<->peer binding. It rejects a request
// that would rebind an in-use channel number to a different peer, or an
// already-bound peer to a different channel number, since ChannelBind must
// be idempotent only when requester, channel, and peer all match
// (RFC 5766 §11.1).
func (t *ChannelTable) Bind(number codec.ChannelNumber, peer netip.AddrPort, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.byNumber[number]; ok && existing.peer != peer {
		return ErrChannelNumberInUse
	}
	if existingNumber, ok := t.byPeer[peer]; ok && existingNumber != number {
		return ErrChannelPeerInUse
	}

	t.byNumber[number] = &channelBind{peer: peer, expiry: now.Add(channelLifetime)}
	t.byPeer[peer] = number

	return nil
}

// PeerFor returns the peer bound to number, if live.
func (t *ChannelTable) PeerFor(number codec.ChannelNumber, now time.Time) (netip.AddrPort, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.byNumber[number]
	if !ok || !now.Before(b.expiry) {
		return netip.AddrPort{}, false
	}
	return b.peer, true
}

// ChannelFor returns the channel number bound to peer, if live.
func (t *ChannelTable) ChannelFor(peer netip.AddrPort, now time.Time) (codec.ChannelNumber, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	number, ok := t.byPeer[peer]
	if !ok {
		return 0, false
	}
	b := t.byNumber[number]
	if b == nil || !now.Before(b.expiry) {
		return 0, false
	}
	return number, true
}

// ChannelEntry is a snapshot of one live channel<->peer binding, for
// callers (the offload teardown path, most notably) that need to walk
// every binding without holding the table's lock.
type ChannelEntry struct {
	Number codec.ChannelNumber
	Peer   netip.AddrPort
}

// Entries returns every live binding at now.
func (t *ChannelTable) Entries(now time.Time) []ChannelEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]ChannelEntry, 0, len(t.byNumber))
	for number, b := range t.byNumber {
		if now.Before(b.expiry) {
			entries = append(entries, ChannelEntry{Number: number, Peer: b.peer})
		}
	}
	return entries
}

// reap drops expired bindings and returns how many remain.
func (t *ChannelTable) reap(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for number, b := range t.byNumber {
		if !now.Before(b.expiry) {
			delete(t.byNumber, number)
			delete(t.byPeer, b.peer)
		}
	}
	return len(t.byNumber)
}
