// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package turn

import (
	"crypto/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/offload"
	"github.com/turnrelay/core/internal/router"
	"github.com/turnrelay/core/internal/session"
	"github.com/turnrelay/core/internal/transport"
)

// Server is a running TURN/STUN relay: a SessionManager over a port-range
// relay allocator, a Router applying the long-term credential mechanism and
// TURN method handlers, and a transport Orchestrator binding the
// configured listener interfaces.
type Server struct {
	sessions     *session.Manager
	router       *router.Router
	orchestrator *transport.Orchestrator
	offload      offload.Engine
}

// NewServer validates cfg, binds every configured listener, and starts the
// server's background goroutines (one read loop per listener, one
// relay-read goroutine per allocation, and the expiry reaper). Close the
// returned Server to shut them down.
func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	nonceSecret := cfg.NonceSecret
	if nonceSecret == nil {
		nonceSecret = make([]byte, 32)
		if _, err := rand.Read(nonceSecret); err != nil {
			return nil, errors.Wrap(err, "turn: generating nonce secret")
		}
	}

	family := codec.RequestedFamilyIPv4
	if cfg.RelayIP.To4() == nil {
		family = codec.RequestedFamilyIPv6
	}
	relay, err := session.NewPortRangeRelay(cfg.RelayIP, cfg.RelayBindIP, family, cfg.RelayMinPort, cfg.RelayMaxPort, cfg.Net)
	if err != nil {
		return nil, errors.Wrap(err, "turn: constructing relay allocator")
	}

	sessions := session.NewManager(session.ManagerConfig{
		Relay:         relay,
		LeveledLogger: cfg.Log,
	})

	offloadEngine := cfg.Offload
	if offloadEngine == nil {
		offloadEngine = offload.NewNullEngine(cfg.Log)
	}
	if err := offloadEngine.Init(); err != nil {
		return nil, errors.Wrap(err, "turn: initializing offload engine")
	}

	r := router.New(router.Config{
		Realm:                 cfg.Realm,
		AuthHandler:           cfg.AuthHandler,
		Sessions:              sessions,
		Events:                cfg.Events,
		Log:                   cfg.Log,
		Software:              cfg.Software,
		NonceSecret:           nonceSecret,
		MaxAllocationsPerUser: cfg.MaxAllocationsPerUser,
		AllowedPeers:          router.PeerACL(cfg.AllowedPeers),
		Offload:               offloadEngine,
	})

	sessions.SetOnExpired(func(a *session.Allocation) {
		r.TeardownOffload(a, time.Now())
		cfg.Events.OnAllocationExpired(a.UserID, session.ClientAddr(a.ID), session.RelayAddr(a))
	})

	interfaces := make([]transport.InterfaceConfig, len(cfg.ListenerConfigs))
	for i, lc := range cfg.ListenerConfigs {
		t := codec.TransportUDP
		if lc.Network == "tcp4" || lc.Network == "tcp6" {
			t = codec.TransportTCP
		}
		interfaces[i] = transport.InterfaceConfig{
			Transport:   t,
			Network:     lc.Network,
			Bind:        lc.Address,
			IdleTimeout: lc.IdleTimeout,
		}
	}

	orch, err := transport.New(transport.Config{
		Interfaces:      interfaces,
		ReapInterval:    cfg.ReapInterval,
		ExchangeBuffer:  cfg.ExchangeBuffer,
		MaxDatagramSize: cfg.MaxDatagramSize,
		Net:             cfg.Net,
	}, r, sessions, cfg.Log)
	if err != nil {
		return nil, err
	}

	return &Server{sessions: sessions, router: r, orchestrator: orch, offload: offloadEngine}, nil
}

// Stats returns the orchestrator's cross-interface delivery counters.
func (s *Server) Stats() transport.Stats { return s.orchestrator.Stats() }

// AllocationCount returns how many live allocations belong to userID.
func (s *Server) AllocationCount(userID string) int { return s.sessions.CountForUser(userID) }

// Close shuts down every listener and background goroutine.
func (s *Server) Close() error {
	err := s.orchestrator.Close()
	s.offload.Shutdown()
	return err
}
