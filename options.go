// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package turn

import (
	"net"
	"net/netip"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3"
	"github.com/pkg/errors"

	"github.com/turnrelay/core/internal/auth"
	"github.com/turnrelay/core/internal/events"
	"github.com/turnrelay/core/internal/offload"
)

var (
	errInvalidIPAddress  = errors.New("turn: invalid IP address")
	errNoRelayIP         = errors.New("turn: RelayIP must be set")
	errNoRealm           = errors.New("turn: Realm must be set")
	errNoAuthHandler     = errors.New("turn: AuthHandler must be set")
	errNoListenerConfigs = errors.New("turn: at least one ListenerConfig is required")
	errBadPortRange      = errors.New("turn: RelayMinPort must be <= RelayMaxPort")
)

// ListenerConfig describes one interface the server listens for client
// traffic on.
type ListenerConfig struct {
	// Network is "udp4", "udp6", "tcp4", or "tcp6".
	Network string
	// Address is the local address to bind, e.g. "0.0.0.0:3478".
	Address string
	// IdleTimeout bounds how long a TCP control connection may sit without
	// a complete frame before the server closes it. Ignored for UDP.
	IdleTimeout time.Duration
}

// ServerConfig is a bag of config parameters for Server, mirroring the
// shape of the wire configuration the rest of this codebase's servers
// take: a single struct validated once at construction rather than
// threaded through a chain of option functions.
type ServerConfig struct {
	// Realm is advertised in the long-term credential challenge and must
	// match what AuthHandler expects.
	Realm string
	// AuthHandler resolves a USERNAME/REALM pair (and the source address it
	// arrived from) to a key and user identity, or rejects the request.
	AuthHandler auth.AuthHandler

	// ListenerConfigs are the interfaces the server accepts client
	// connections on. At least one is required.
	ListenerConfigs []ListenerConfig

	// RelayIP is the address advertised to clients in XOR-RELAYED-ADDRESS.
	// It may differ from the interface the relay socket actually binds to
	// behind a NAT or load balancer.
	RelayIP net.IP
	// RelayBindIP is the local address relay sockets bind to. Defaults to
	// RelayIP.
	RelayBindIP net.IP
	// RelayMinPort and RelayMaxPort bound the port range relay sockets are
	// allocated from. Both default to the standard TURN ephemeral range,
	// 49152-65535, when left zero.
	RelayMinPort int
	RelayMaxPort int

	// MaxAllocationsPerUser bounds how many concurrent allocations a single
	// authenticated identity may hold. Zero means unlimited.
	MaxAllocationsPerUser int
	// AllowedPeers restricts which peer addresses CreatePermission (and so,
	// transitively, ChannelBind) may grant relay access to. Empty means any
	// peer is allowed, matching a deployment with no configured ACL.
	AllowedPeers []netip.Prefix
	// ReapInterval bounds how often expired allocations, permissions, and
	// channel bindings are swept. Defaults to one second.
	ReapInterval time.Duration
	// ExchangeBuffer bounds the per-interface cross-listener forwarding
	// queue used to deliver relay traffic across interfaces.
	ExchangeBuffer int
	// MaxDatagramSize bounds the scratch buffer used to read UDP datagrams
	// and TCP frames. Defaults to 1500.
	MaxDatagramSize int

	// Software, if set, is echoed back in the SOFTWARE attribute of
	// responses that carry one.
	Software string
	// NonceSecret keys the stateless NONCE HMAC. A random secret is
	// generated if left nil, which is fine for a single-process server but
	// must be set explicitly to share NONCE validity across a fleet.
	NonceSecret []byte

	Events events.EventSink
	Log    logging.LeveledLogger

	// Net is the pluggable network (github.com/pion/transport/v3's Net
	// interface) every listener and relay socket binds through. Nil
	// defaults to stdnet, i.e. real OS sockets; passing a vnet.Net runs
	// the whole server against an in-memory virtual network instead,
	// without binding real sockets.
	Net transport.Net

	// Offload is the kernel-acceleration engine for the ChannelData fast
	// path. Nil defaults to offload.NewNullEngine, which tracks
	// channel<->peer pairings without attempting any kernel offload.
	Offload offload.Engine
}

const (
	defaultRelayMinPort = 49152
	defaultRelayMaxPort = 65535
)

func (c *ServerConfig) setDefaults() {
	if c.RelayBindIP == nil {
		c.RelayBindIP = c.RelayIP
	}
	if c.RelayMinPort == 0 {
		c.RelayMinPort = defaultRelayMinPort
	}
	if c.RelayMaxPort == 0 {
		c.RelayMaxPort = defaultRelayMaxPort
	}
	if c.Events == nil {
		c.Events = events.NoopEventSink{}
	}
	if c.Log == nil {
		c.Log = logging.NewDefaultLoggerFactory().NewLogger("turn")
	}
}

func (c *ServerConfig) validate() error {
	if c.Realm == "" {
		return errNoRealm
	}
	if c.AuthHandler == nil {
		return errNoAuthHandler
	}
	if len(c.ListenerConfigs) == 0 {
		return errNoListenerConfigs
	}
	if c.RelayIP == nil {
		return errNoRelayIP
	}
	if c.RelayMinPort > c.RelayMaxPort {
		return errBadPortRange
	}
	return nil
}
