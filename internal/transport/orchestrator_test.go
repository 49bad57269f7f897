// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package transport

import (
	"crypto/rand"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/router"
	"github.com/turnrelay/core/internal/session"
)

// TestOrchestratorAnswersBindingRequest exercises a full UDP round trip
// through a real loopback socket: a Binding Request in, a Binding Success
// Response with the client's observed reflexive address out.
func TestOrchestratorAnswersBindingRequest(t *testing.T) {
	sessions := session.NewManager(session.ManagerConfig{Relay: nil})
	r := router.New(router.Config{Realm: "example.org", Sessions: sessions})

	orch, err := New(Config{
		Interfaces: []InterfaceConfig{{Transport: codec.TransportUDP, Bind: "127.0.0.1:0"}},
	}, r, sessions, nil)
	require.NoError(t, err)
	defer orch.Close()

	serverAddr := orch.udpListeners[0].conn.LocalAddr()

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.SetDeadline(time.Now().Add(2*time.Second)))

	var tid [codec.TransactionIDSize]byte
	_, err = rand.Read(tid[:])
	require.NoError(t, err)

	req, err := codec.NewBuilder(codec.NewType(codec.MethodBinding, codec.ClassRequest), tid).Flush(nil, true)
	require.NoError(t, err)

	_, err = client.WriteTo(req, serverAddr)
	require.NoError(t, err)

	buf := make([]byte, 1500)
	n, _, err := client.ReadFrom(buf)
	require.NoError(t, err)

	dec := codec.NewDecoder()
	m, err := dec.DecodeMessage(buf[:n], codec.TransportUDP)
	require.NoError(t, err)

	assert.Equal(t, codec.MethodBinding, m.Type.Method)
	assert.Equal(t, codec.ClassSuccessResponse, m.Type.Class)
	assert.True(t, m.Contains(codec.AttrXORMappedAddress))
}

// TestOrchestratorDeliversRelayTrafficAcrossListener exercises the Exchange:
// a peer datagram delivered through deliverFromPeer for an allocation whose
// client was heard on this listener's bind address must reach the client,
// with the allocation's permission table gating delivery exactly as
// RelayFromPeer does for the live relay-read path.
func TestOrchestratorDeliversRelayTrafficAcrossListener(t *testing.T) {
	relay, err := session.NewPortRangeRelay(net.ParseIP("127.0.0.1"), nil, codec.RequestedFamilyIPv4, 50700, 50709, nil)
	require.NoError(t, err)
	sessions := session.NewManager(session.ManagerConfig{Relay: relay})
	r := router.New(router.Config{Realm: "example.org", Sessions: sessions})

	orch, err := New(Config{
		Interfaces: []InterfaceConfig{{Transport: codec.TransportUDP, Bind: "127.0.0.1:0"}},
	}, r, sessions, nil)
	require.NoError(t, err)
	defer orch.Close()

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.SetDeadline(time.Now().Add(2*time.Second)))

	serverAddr := orch.udpListeners[0].conn.LocalAddr()
	id, err := session.NewIdentifier(client.LocalAddr(), serverAddr, codec.TransportUDP)
	require.NoError(t, err)

	alloc, _, err := sessions.Allocate(id, "alice", codec.ProtoUDP, 0, time.Now())
	require.NoError(t, err)
	defer sessions.Delete(id)

	peer := &net.UDPAddr{IP: net.ParseIP("203.0.113.9"), Port: 9}

	// No permission yet: the datagram must be dropped, never delivered.
	orch.deliverFromPeer(alloc, peer, []byte("unpermitted"))

	require.NoError(t, alloc.Permissions.Grant(netip.MustParseAddr(peer.IP.String()), time.Now()))
	orch.deliverFromPeer(alloc, peer, []byte("permitted"))

	buf := make([]byte, 1500)
	n, _, err := client.ReadFrom(buf)
	require.NoError(t, err, "the permitted datagram must reach the client via the Exchange")

	dec := codec.NewDecoder()
	m, err := dec.DecodeMessage(buf[:n], codec.TransportUDP)
	require.NoError(t, err)
	assert.Equal(t, codec.MethodData, m.Type.Method)
	assert.Equal(t, codec.ClassIndication, m.Type.Class)

	data, err := m.Get(codec.AttrData)
	require.NoError(t, err)
	assert.Equal(t, []byte("permitted"), data)
}
