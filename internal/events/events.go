// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package events defines the server's callback surface: an EventSink lets
// an embedder observe allocation lifecycle and relay traffic without the
// router or transport layers depending on the embedder's package.
package events

import (
	"net"
	"time"

	"github.com/turnrelay/core/internal/session"
)

// EventSink receives notifications about allocation lifecycle and relay
// activity. Every method has a default no-op via NoopEventSink, so an
// embedder only implements the callbacks it cares about.
type EventSink interface {
	OnAllocationCreated(userID string, client, relay net.Addr)
	OnAllocationExpired(userID string, client, relay net.Addr)
	OnPermissionCreated(userID string, client net.Addr, peer net.Addr)
	OnChannelBind(userID string, client net.Addr, number uint16, peer net.Addr)
	OnRelayPacket(userID string, client, peer net.Addr, n int, fromPeer bool)
	OnAuthFailure(username string, client net.Addr, reason error)

	// OnBinding fires for every Binding request, even though it mutates no
	// session state: it's the only observable trace of a bare STUN client
	// talking to the server without ever allocating.
	OnBinding(id session.Identifier)

	// OnRefresh fires when Refresh extends an allocation's lifetime. The
	// lifetime==0 teardown path fires OnAllocationExpired instead.
	OnRefresh(userID string, client net.Addr, lifetime time.Duration)
}

// NoopEventSink implements EventSink with no-ops. Embed it in a partial
// EventSink implementation to satisfy the interface.
type NoopEventSink struct{}

func (NoopEventSink) OnAllocationCreated(string, net.Addr, net.Addr)      {}
func (NoopEventSink) OnAllocationExpired(string, net.Addr, net.Addr)      {}
func (NoopEventSink) OnPermissionCreated(string, net.Addr, net.Addr)      {}
func (NoopEventSink) OnChannelBind(string, net.Addr, uint16, net.Addr)    {}
func (NoopEventSink) OnRelayPacket(string, net.Addr, net.Addr, int, bool) {}
func (NoopEventSink) OnAuthFailure(string, net.Addr, error)               {}
func (NoopEventSink) OnBinding(session.Identifier)                        {}
func (NoopEventSink) OnRefresh(string, net.Addr, time.Duration)           {}
