// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnrelay/core/internal/codec"
)

func TestPortRangeRelayAllocatePacketConnWithinRange(t *testing.T) {
	relay, err := NewPortRangeRelay(net.ParseIP("127.0.0.1"), nil, codec.RequestedFamilyIPv4, 50300, 50309, nil)
	require.NoError(t, err)

	pc, addr, err := relay.AllocatePacketConn("udp4", 0)
	require.NoError(t, err)
	defer pc.Close()

	udpAddr, ok := addr.(*net.UDPAddr)
	require.True(t, ok)
	assert.GreaterOrEqual(t, udpAddr.Port, 50300)
	assert.LessOrEqual(t, udpAddr.Port, 50309)
}

func TestPortRangeRelayReleasesPortOnClose(t *testing.T) {
	relay, err := NewPortRangeRelay(net.ParseIP("127.0.0.1"), nil, codec.RequestedFamilyIPv4, 50310, 50310, nil)
	require.NoError(t, err)

	pc, _, err := relay.AllocatePacketConn("udp4", 0)
	require.NoError(t, err)

	_, _, err = relay.AllocatePacketConn("udp4", 0)
	assert.ErrorIs(t, err, ErrNoPortsAvailable, "the single port in range is already held")

	require.NoError(t, pc.Close())

	pc2, _, err := relay.AllocatePacketConn("udp4", 0)
	require.NoError(t, err, "closing the first socket must return its port to the allocator")
	defer pc2.Close()
}

func TestPortRangeRelayAllocatePacketConnRequestedPort(t *testing.T) {
	relay, err := NewPortRangeRelay(net.ParseIP("127.0.0.1"), nil, codec.RequestedFamilyIPv4, 50320, 50329, nil)
	require.NoError(t, err)

	pc, addr, err := relay.AllocatePacketConn("udp4", 50325)
	require.NoError(t, err)
	defer pc.Close()

	udpAddr, ok := addr.(*net.UDPAddr)
	require.True(t, ok)
	assert.Equal(t, 50325, udpAddr.Port)

	_, _, err = relay.AllocatePacketConn("udp4", 50325)
	assert.ErrorIs(t, err, ErrNoPortsAvailable, "a port already bound must not be handed out again")
}

func TestPortRangeRelayAllocateEvenPort(t *testing.T) {
	relay, err := NewPortRangeRelay(net.ParseIP("127.0.0.1"), nil, codec.RequestedFamilyIPv4, 50400, 50419, nil)
	require.NoError(t, err)

	pc, addr, reserved, err := relay.AllocateEvenPort("udp4", true)
	require.NoError(t, err)
	defer pc.Close()

	udpAddr, ok := addr.(*net.UDPAddr)
	require.True(t, ok)
	assert.Equal(t, 0, udpAddr.Port%2, "allocated port must be even")
	assert.Equal(t, udpAddr.Port+1, reserved, "the following odd port must be reserved")

	// The reserved port must not be handed out to an unrelated request.
	_, _, err = relay.AllocatePacketConn("udp4", reserved)
	assert.ErrorIs(t, err, ErrNoPortsAvailable)
}

func TestPortRangeRelayAllocateListener(t *testing.T) {
	relay, err := NewPortRangeRelay(net.ParseIP("127.0.0.1"), nil, codec.RequestedFamilyIPv4, 50500, 50509, nil)
	require.NoError(t, err)

	ln, addr, err := relay.AllocateListener("tcp4", 0)
	require.NoError(t, err)
	defer ln.Close()

	tcpAddr, ok := addr.(*net.TCPAddr)
	require.True(t, ok)
	assert.GreaterOrEqual(t, tcpAddr.Port, 50500)
}
