// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package transport

import (
	"crypto/rand"
	"net"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/vnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/router"
	"github.com/turnrelay/core/internal/session"
)

// TestOrchestratorAnswersBindingRequestOverVNet is the vnet analogue of
// TestOrchestratorAnswersBindingRequest: the same Binding round trip, but
// routed entirely through an in-memory vnet.Router instead of the real
// kernel network stack, matching how the teacher's server_vnet_test.go
// exercises a server without binding real sockets in CI.
func TestOrchestratorAnswersBindingRequestOverVNet(t *testing.T) {
	loggerFactory := logging.NewDefaultLoggerFactory()

	wan, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          "1.2.3.0/24",
		LoggerFactory: loggerFactory,
	})
	require.NoError(t, err)
	defer wan.Stop() //nolint:errcheck

	serverNet, err := vnet.NewNet(&vnet.NetConfig{StaticIP: "1.2.3.4"})
	require.NoError(t, err)
	require.NoError(t, wan.AddNet(serverNet))

	clientNet, err := vnet.NewNet(&vnet.NetConfig{StaticIP: "1.2.3.5"})
	require.NoError(t, err)
	require.NoError(t, wan.AddNet(clientNet))

	require.NoError(t, wan.Start())

	sessions := session.NewManager(session.ManagerConfig{Relay: nil})
	r := router.New(router.Config{Realm: "example.org", Sessions: sessions})

	orch, err := New(Config{
		Interfaces: []InterfaceConfig{{Transport: codec.TransportUDP, Bind: "1.2.3.4:3478"}},
		Net:        serverNet,
	}, r, sessions, nil)
	require.NoError(t, err, "the orchestrator must bind through vnet without touching a real socket")
	defer orch.Close()

	client, err := clientNet.ListenPacket("udp4", "1.2.3.5:0")
	require.NoError(t, err)
	defer client.Close() //nolint:errcheck

	require.NoError(t, client.SetDeadline(time.Now().Add(2*time.Second)))

	var tid [codec.TransactionIDSize]byte
	_, err = rand.Read(tid[:])
	require.NoError(t, err)

	req, err := codec.NewBuilder(codec.NewType(codec.MethodBinding, codec.ClassRequest), tid).Flush(nil, true)
	require.NoError(t, err)

	serverAddr, err := net.ResolveUDPAddr("udp4", "1.2.3.4:3478")
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
