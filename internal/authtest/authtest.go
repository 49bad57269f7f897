// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package authtest provides in-memory AuthHandler and EventSink
// implementations for use by tests and the example command, so neither has
// to stand up a real credential store to exercise the server.
package authtest

import (
	"crypto/md5" //nolint:gosec // RFC 5389 §15.4 long-term credential key derivation mandates MD5.
	"net"
	"sync"
	"time"

	"github.com/turnrelay/core/internal/auth"
	"github.com/turnrelay/core/internal/session"
)

// StaticCredentials is an AuthHandler backed by a fixed username->password
// map, deriving each long-term credential key as MD5(username:realm:password)
// per RFC 5389 §15.4.
type StaticCredentials struct {
	Realm     string
	Passwords map[string]string
}

// Handler returns an auth.AuthHandler closed over c.
func (c *StaticCredentials) Handler() auth.AuthHandler {
	return func(ra *auth.RequestAttributes) (string, []byte, bool) {
		password, ok := c.Passwords[ra.Username]
		if !ok {
			return "", nil, false
		}
		sum := md5.Sum([]byte(ra.Username + ":" + c.Realm + ":" + password)) //nolint:gosec
		return ra.Username, sum[:], true
	}
}

// RecordingEventSink records every EventSink callback it receives, for
// tests to assert against without implementing the interface themselves.
type RecordingEventSink struct {
	mu                 sync.Mutex
	AllocationsCreated []AllocationEvent
	AllocationsExpired []AllocationEvent
	PermissionsCreated []PermissionEvent
	ChannelBinds       []ChannelBindEvent
	RelayPackets       []RelayPacketEvent
	AuthFailures       []AuthFailureEvent
	Bindings           []session.Identifier
	Refreshes          []RefreshEvent
}

// RefreshEvent records an OnRefresh callback.
type RefreshEvent struct {
	UserID   string
	Client   net.Addr
	Lifetime time.Duration
}

// AllocationEvent records an allocation lifecycle callback.
type AllocationEvent struct {
	UserID      string
	Client, Relay net.Addr
}

// PermissionEvent records an OnPermissionCreated callback.
type PermissionEvent struct {
	UserID string
	Client net.Addr
	Peer   net.Addr
}

// ChannelBindEvent records an OnChannelBind callback.
type ChannelBindEvent struct {
	UserID string
	Client net.Addr
	Number uint16
	Peer   net.Addr
}

// RelayPacketEvent records an OnRelayPacket callback.
type RelayPacketEvent struct {
	UserID         string
	Client, Peer   net.Addr
	N              int
	FromPeer       bool
}

// AuthFailureEvent records an OnAuthFailure callback.
type AuthFailureEvent struct {
	Username string
	Client   net.Addr
	Reason   error
}

func (s *RecordingEventSink) OnAllocationCreated(userID string, client, relay net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AllocationsCreated = append(s.AllocationsCreated, AllocationEvent{userID, client, relay})
}

func (s *RecordingEventSink) OnAllocationExpired(userID string, client, relay net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AllocationsExpired = append(s.AllocationsExpired, AllocationEvent{userID, client, relay})
}

func (s *RecordingEventSink) OnPermissionCreated(userID string, client, peer net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PermissionsCreated = append(s.PermissionsCreated, PermissionEvent{userID, client, peer})
}

func (s *RecordingEventSink) OnChannelBind(userID string, client net.Addr, number uint16, peer net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ChannelBinds = append(s.ChannelBinds, ChannelBindEvent{userID, client, number, peer})
}

func (s *RecordingEventSink) OnRelayPacket(userID string, client, peer net.Addr, n int, fromPeer bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RelayPackets = append(s.RelayPackets, RelayPacketEvent{userID, client, peer, n, fromPeer})
}

func (s *RecordingEventSink) OnAuthFailure(username string, client net.Addr, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AuthFailures = append(s.AuthFailures, AuthFailureEvent{username, client, reason})
}

func (s *RecordingEventSink) OnBinding(id session.Identifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Bindings = append(s.Bindings, id)
}

func (s *RecordingEventSink) OnRefresh(userID string, client net.Addr, lifetime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Refreshes = append(s.Refreshes, RefreshEvent{userID, client, lifetime})
}

// Snapshot returns the count of each recorded event kind, for assertions
// that don't need the full detail.
func (s *RecordingEventSink) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"allocations_created": len(s.AllocationsCreated),
		"allocations_expired": len(s.AllocationsExpired),
		"permissions_created": len(s.PermissionsCreated),
		"channel_binds":       len(s.ChannelBinds),
		"relay_packets":       len(s.RelayPackets),
		"auth_failures":       len(s.AuthFailures),
		"bindings":            len(s.Bindings),
		"refreshes":           len(s.Refreshes),
	}
}
