// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnrelay/core/internal/codec"
)

func mustIdentifier(t *testing.T, clientPort, localPort int) Identifier {
	t.Helper()
	client := &net.UDPAddr{IP: net.ParseIP("198.51.100.1"), Port: clientPort}
	local := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: localPort}
	id, err := NewIdentifier(client, local, codec.TransportUDP)
	require.NoError(t, err)
	return id
}

func TestPortAllocatorNeverDoubleAllocates(t *testing.T) {
	p := newPortAllocator(50000, 50009)
	seen := make(map[int]bool)
	for i := 0; i < 10; i++ {
		port, err := p.allocate()
		require.NoError(t, err)
		assert.False(t, seen[port], "port %d allocated twice", port)
		seen[port] = true
	}
	_, err := p.allocate()
	assert.ErrorIs(t, err, ErrNoPortsAvailable)
}

func TestPortAllocatorReleaseReuse(t *testing.T) {
	p := newPortAllocator(50000, 50000)
	port, err := p.allocate()
	require.NoError(t, err)
	_, err = p.allocate()
	assert.ErrorIs(t, err, ErrNoPortsAvailable)

	p.release(port)
	again, err := p.allocate()
	require.NoError(t, err)
	assert.Equal(t, port, again)
}

func TestPortAllocatorReserveSpecificPort(t *testing.T) {
	p := newPortAllocator(50000, 50009)
	ok := p.reserve(50004)
	assert.True(t, ok)
	ok = p.reserve(50004)
	assert.False(t, ok, "reserving an already-taken port must fail")
}

func TestChannelTableBijection(t *testing.T) {
	ct := newChannelTable()
	now := time.Now()
	peerA := netip.MustParseAddrPort("203.0.113.10:1")
	peerB := netip.MustParseAddrPort("203.0.113.11:1")

	require.NoError(t, ct.Bind(0x4001, peerA, now))

	// Rebinding same channel to a different peer is rejected.
	err := ct.Bind(0x4001, peerB, now)
	assert.ErrorIs(t, err, ErrChannelNumberInUse)

	// Binding a different channel to a peer already bound elsewhere is rejected.
	err = ct.Bind(0x4002, peerA, now)
	assert.ErrorIs(t, err, ErrChannelPeerInUse)

	// Idempotent rebind of the same pair succeeds.
	require.NoError(t, ct.Bind(0x4001, peerA, now))

	got, ok := ct.PeerFor(0x4001, now)
	require.True(t, ok)
	assert.Equal(t, peerA, got)

	number, ok := ct.ChannelFor(peerA, now)
	require.True(t, ok)
	assert.Equal(t, codec.ChannelNumber(0x4001), number)
}

func TestChannelTableExpiry(t *testing.T) {
	ct := newChannelTable()
	now := time.Now()
	peer := netip.MustParseAddrPort("203.0.113.20:1")
	require.NoError(t, ct.Bind(0x4003, peer, now))

	later := now.Add(channelLifetime + time.Second)
	remaining := ct.reap(later)
	assert.Equal(t, 0, remaining)

	_, ok := ct.PeerFor(0x4003, later)
	assert.False(t, ok)
}

func TestPermissionTableExpiry(t *testing.T) {
	pt := newPermissionTable()
	now := time.Now()
	peer := netip.MustParseAddr("203.0.113.30")

	require.NoError(t, pt.Grant(peer, now))
	assert.True(t, pt.Allowed(peer, now))

	later := now.Add(permissionLifetime + time.Second)
	assert.False(t, pt.Allowed(peer, later))
}

func TestReservationTableClaimOnce(t *testing.T) {
	rt := newReservationTable()
	now := time.Now()
	tok, err := rt.create(50123, now)
	require.NoError(t, err)

	port, ok := rt.claim(tok, now)
	require.True(t, ok)
	assert.Equal(t, 50123, port)

	_, ok = rt.claim(tok, now)
	assert.False(t, ok, "a token must not be claimable twice")
}

func TestReservationTableExpiry(t *testing.T) {
	rt := newReservationTable()
	now := time.Now()
	_, err := rt.create(50200, now)
	require.NoError(t, err)

	later := now.Add(reservationLifetime + time.Second)
	expired := rt.reap(later)
	assert.Equal(t, []int{50200}, expired)
}

type fakePacketConn struct {
	net.PacketConn
	closed bool
}

func (f *fakePacketConn) Close() error {
	f.closed = true
	return nil
}

func TestManagerCreateGetDelete(t *testing.T) {
	m := NewManager(ManagerConfig{Relay: nil})
	id := mustIdentifier(t, 4000, 3478)

	relay := &fakePacketConn{}
	a := newAllocation(id, "alice", codec.ProtoUDP, relay, time.Now())

	require.NoError(t, m.Create(id, "alice", a))
	assert.ErrorIs(t, m.Create(id, "alice", a), ErrAllocationExists)

	got, ok := m.Get(id)
	require.True(t, ok)
	assert.Same(t, a, got)

	m.Delete(id)
	_, ok = m.Get(id)
	assert.False(t, ok)
	assert.True(t, relay.closed)
}

func TestManagerReapExpiresAllocations(t *testing.T) {
	m := NewManager(ManagerConfig{Relay: nil})
	id := mustIdentifier(t, 4001, 3478)

	relay := &fakePacketConn{}
	now := time.Now()
	a := newAllocation(id, "bob", codec.ProtoUDP, relay, now)
	a.Refresh(time.Second, now)

	require.NoError(t, m.Create(id, "bob", a))

	m.Reap(now.Add(2 * time.Second))

	_, ok := m.Get(id)
	assert.False(t, ok)
	assert.True(t, relay.closed)
}

func TestManagerCountForUser(t *testing.T) {
	m := NewManager(ManagerConfig{Relay: nil})
	now := time.Now()

	for i := 0; i < 3; i++ {
		id := mustIdentifier(t, 4100+i, 3478)
		a := newAllocation(id, "carol", codec.ProtoUDP, &fakePacketConn{}, now)
		require.NoError(t, m.Create(id, "carol", a))
	}

	assert.Equal(t, 3, m.CountForUser("carol"))
	assert.Equal(t, 0, m.CountForUser("dave"))
}
