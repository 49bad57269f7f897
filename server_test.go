// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package turn

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnrelay/core/internal/authtest"
)

func TestNewServerValidatesConfig(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.ErrorIs(t, err, errNoRealm)

	_, err = NewServer(ServerConfig{Realm: "example.org"})
	assert.ErrorIs(t, err, errNoAuthHandler)

	creds := &authtest.StaticCredentials{Realm: "example.org"}
	_, err = NewServer(ServerConfig{Realm: "example.org", AuthHandler: creds.Handler()})
	assert.ErrorIs(t, err, errNoListenerConfigs)

	_, err = NewServer(ServerConfig{
		Realm:       "example.org",
		AuthHandler: creds.Handler(),
		ListenerConfigs: []ListenerConfig{
			{Network: "udp4", Address: "127.0.0.1:0"},
		},
	})
	assert.ErrorIs(t, err, errNoRelayIP)
}

func TestServerStartsAndStops(t *testing.T) {
	creds := &authtest.StaticCredentials{Realm: "example.org", Passwords: map[string]string{"alice": "secret"}}

	server, err := NewServer(ServerConfig{
		Realm:       "example.org",
		AuthHandler: creds.Handler(),
		RelayIP:     net.ParseIP("127.0.0.1"),
		ListenerConfigs: []ListenerConfig{
			{Network: "udp4", Address: "127.0.0.1:0"},
		},
		RelayMinPort: 51000,
		RelayMaxPort: 51009,
	})
	require.NoError(t, err)
	defer server.Close()

	assert.Equal(t, 0, server.AllocationCount("alice"))
	assert.Equal(t, uint64(0), server.Stats().DroppedPackets)
}
