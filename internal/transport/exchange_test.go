// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangePushDeliversToRegisteredRoute(t *testing.T) {
	e := newExchange()
	ch := e.register("192.0.2.1:3478", 4)

	client := &net.UDPAddr{IP: net.ParseIP("198.51.100.1"), Port: 4000}
	ok := e.push("192.0.2.1:3478", client, []byte("hello"))
	require.True(t, ok)

	job := <-ch
	assert.Equal(t, []byte("hello"), job.raw)
	assert.Equal(t, client, job.client)
}

func TestExchangePushUnknownRouteReportsFalse(t *testing.T) {
	e := newExchange()
	ok := e.push("203.0.113.9:3478", &net.UDPAddr{}, []byte("x"))
	assert.False(t, ok)
}

func TestExchangePushSaturatedQueueDropsWithoutBlocking(t *testing.T) {
	e := newExchange()
	e.register("192.0.2.1:3478", 1)

	ok := e.push("192.0.2.1:3478", &net.UDPAddr{}, []byte("first"))
	require.True(t, ok)

	// The queue now holds one unread job; a second push must not block and
	// must report the drop rather than overwrite or wait.
	ok = e.push("192.0.2.1:3478", &net.UDPAddr{}, []byte("second"))
	assert.False(t, ok)
}
