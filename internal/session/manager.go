// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"hash/maphash"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/turnrelay/core/internal/codec"
)

// shardCount is the number of lock stripes the Manager spreads allocations
// across. Each shard owns a disjoint slice of the Identifier space, so two
// requests for unrelated clients never contend on the same mutex.
const shardCount = 64

type shard struct {
	mu          sync.Mutex
	allocations map[Identifier]*Allocation
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Relay         RelayAddressGenerator
	LeveledLogger logging.LeveledLogger

	// OnRelayPacket is invoked, from a dedicated goroutine per allocation,
	// for every packet read off that allocation's relay socket. It is the
	// transport layer's hook for delivering peer traffic back to the
	// client, possibly across a different listening interface than the
	// one the allocation was created on. A nil value drops all relay
	// traffic, which is only useful in tests that don't exercise it.
	OnRelayPacket func(alloc *Allocation, peer net.Addr, data []byte)

	// RelayReadBufferSize bounds the scratch buffer each relay-read
	// goroutine uses. Zero selects a 1500-byte default.
	RelayReadBufferSize int

	// OnExpired is invoked by Reap for every allocation it closes because
	// its lifetime ran out on the ticker, as opposed to an explicit
	// Refresh(0) teardown (which the router reports itself, since it
	// already has the request's auth context). A nil value is fine; Reap
	// just won't report anything.
	OnExpired func(a *Allocation)
}

// Manager is the SessionManager: the authoritative table of live
// allocations, reachable and mutated concurrently by every worker handling
// a TURN request. Lookups and mutations are striped by Identifier so
// unrelated clients never block each other.
type Manager struct {
	shards [shardCount]shard
	seed   maphash.Seed

	relay RelayAddressGenerator
	log   logging.LeveledLogger

	onRelayPacket   func(alloc *Allocation, peer net.Addr, data []byte)
	onExpired       func(a *Allocation)
	relayBufferSize int

	responses    *responseCache
	reservations *reservationTable
}

// NewManager constructs a Manager. cfg.Relay must be non-nil.
func NewManager(cfg ManagerConfig) *Manager {
	bufSize := cfg.RelayReadBufferSize
	if bufSize <= 0 {
		bufSize = 1500
	}
	m := &Manager{
		seed:            maphash.MakeSeed(),
		relay:           cfg.Relay,
		log:             cfg.LeveledLogger,
		onRelayPacket:   cfg.OnRelayPacket,
		onExpired:       cfg.OnExpired,
		relayBufferSize: bufSize,
		responses:       newResponseCache(),
		reservations:    newReservationTable(),
	}
	for i := range m.shards {
		m.shards[i].allocations = make(map[Identifier]*Allocation)
	}
	return m
}

func (m *Manager) shardFor(id Identifier) *shard {
	var h maphash.Hash
	h.SetSeed(m.seed)
	addr := id.Client.Addr().As16()
	_, _ = h.Write(addr[:])
	var portBuf [2]byte
	portBuf[0] = byte(id.Client.Port())
	portBuf[1] = byte(id.Client.Port() >> 8)
	_, _ = h.Write(portBuf[:])
	_, _ = h.Write([]byte{byte(id.Transport)})
	return &m.shards[h.Sum64()%shardCount]
}

// Get returns the live allocation for id, if any.
func (m *Manager) Get(id Identifier) (*Allocation, bool) {
	s := m.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allocations[id]
	return a, ok
}

// Responses exposes the Manager's Allocate response cache to the router.
func (m *Manager) Responses() *responseCache { return m.responses }

// Reservations exposes the Manager's EVEN-PORT reservation table to the
// router, which needs it while handling the Allocate request that creates
// or claims a reservation.
func (m *Manager) Reservations() *reservationTable { return m.reservations }

// Relay exposes the configured RelayAddressGenerator.
func (m *Manager) Relay() RelayAddressGenerator { return m.relay }

// SetOnRelayPacket installs the relay-read callback after construction,
// for the common case where the callback itself needs a reference to a
// Router built from this Manager (Router.Config.Sessions = m), so the two
// can't be constructed in a single step.
func (m *Manager) SetOnRelayPacket(fn func(alloc *Allocation, peer net.Addr, data []byte)) {
	m.onRelayPacket = fn
}

// SetOnExpired installs the tick-driven expiry callback after construction,
// for the same ordering reason as SetOnRelayPacket: the callback usually
// closes over an EventSink that itself needs a reference to this Manager.
func (m *Manager) SetOnExpired(fn func(a *Allocation)) {
	m.onExpired = fn
}

// Create installs a new allocation for id, replacing none (callers must
// check Get first; Create returns ErrAllocationExists on collision to
// catch a race between the check and the insert).
func (m *Manager) Create(id Identifier, userID string, a *Allocation) error {
	s := m.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.allocations[id]; exists {
		return ErrAllocationExists
	}
	s.allocations[id] = a
	return nil
}

// Delete removes and closes the allocation for id, if any.
func (m *Manager) Delete(id Identifier) {
	s := m.shardFor(id)
	s.mu.Lock()
	a, ok := s.allocations[id]
	if ok {
		delete(s.allocations, id)
	}
	s.mu.Unlock()

	if ok {
		if err := a.Close(); err != nil && m.log != nil {
			m.log.Warnf("session: error closing allocation for %v: %v", id, err)
		}
	}
}

// Allocate creates the relay transport for proto via the configured
// RelayAddressGenerator and installs a new Allocation for id. requestedPort
// is a specific port to bind (ClaimReservation passes the port of a
// RESERVATION-TOKEN), or 0 to let the generator pick at random.
func (m *Manager) Allocate(id Identifier, userID string, proto codec.Protocol, requestedPort int, now time.Time) (*Allocation, net.Addr, error) {
	network := "udp4"
	if id.Client.Addr().Is6() {
		network = "udp6"
	}

	var (
		relay     RelaySocket
		relayAddr net.Addr
		err       error
	)
	switch proto {
	case codec.ProtoUDP:
		var pc net.PacketConn
		pc, relayAddr, err = m.relay.AllocatePacketConn(network, requestedPort)
		relay = pc
	case codec.ProtoTCP:
		tcpNetwork := "tcp4"
		if id.Client.Addr().Is6() {
			tcpNetwork = "tcp6"
		}
		var ln net.Listener
		ln, relayAddr, err = m.relay.AllocateListener(tcpNetwork, requestedPort)
		relay = ln
	default:
		return nil, nil, ErrAllocationMismatch
	}
	if err != nil {
		return nil, nil, err
	}

	a := newAllocation(id, userID, proto, relay, now)
	if err := m.Create(id, userID, a); err != nil {
		_ = relay.Close()
		return nil, nil, err
	}
	if proto == codec.ProtoUDP {
		go m.relayReadLoop(a)
	}
	return a, relayAddr, nil
}

// relayReadLoop is the per-allocation relay-read goroutine: it owns the
// allocation's relay socket for its lifetime and hands every inbound
// datagram to onRelayPacket, exiting only once the socket is closed (by
// Refresh(0), idle reaping, or server shutdown).
func (m *Manager) relayReadLoop(a *Allocation) {
	buf := make([]byte, m.relayBufferSize)
	for {
		n, peer, err := a.RelayUDP.ReadFrom(buf)
		if err != nil {
			return
		}
		if m.onRelayPacket == nil || n == 0 {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		m.onRelayPacket(a, peer, data)
	}
}

// AllocateEven is like Allocate but requests an even relay port, optionally
// reserving the following odd port under a fresh RESERVATION-TOKEN for a
// paired allocation to claim later (RFC 5766 §14.6, §14.9).
func (m *Manager) AllocateEven(id Identifier, userID string, reserveNext bool, now time.Time) (*Allocation, net.Addr, *[8]byte, error) {
	network := "udp4"
	if id.Client.Addr().Is6() {
		network = "udp6"
	}

	pc, relayAddr, reservedPort, err := m.relay.AllocateEvenPort(network, reserveNext)
	if err != nil {
		return nil, nil, nil, err
	}

	a := newAllocation(id, userID, codec.ProtoUDP, pc, now)
	if err := m.Create(id, userID, a); err != nil {
		_ = pc.Close()
		return nil, nil, nil, err
	}
	go m.relayReadLoop(a)

	var tok *[8]byte
	if reserveNext && reservedPort != 0 {
		t, err := m.reservations.create(reservedPort, now)
		if err != nil {
			return a, relayAddr, nil, nil
		}
		tok = &t
	}
	return a, relayAddr, tok, nil
}

// ClaimReservation allocates the relay socket for a previously reserved
// port (from a RESERVATION-TOKEN request) and installs an Allocation for
// id, or returns ErrReservationNotFound if the token is unknown or expired.
func (m *Manager) ClaimReservation(id Identifier, userID string, tok [8]byte, now time.Time) (*Allocation, net.Addr, error) {
	port, ok := m.reservations.claim(tok, now)
	if !ok {
		return nil, nil, ErrReservationNotFound
	}
	return m.Allocate(id, userID, codec.ProtoUDP, port, now)
}

// CountForUser returns how many live allocations belong to userID, so the
// router can enforce a per-identity allocation quota.
func (m *Manager) CountForUser(userID string) int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for _, a := range s.allocations {
			if a.UserID == userID {
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Reap sweeps every shard for expired allocations and channel/permission
// entries, closing and removing whatever has timed out. It also reaps the
// response cache and reservation table. Callers run this on a ticker.
func (m *Manager) Reap(now time.Time) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		var expired []*Allocation
		for id, a := range s.allocations {
			a.Permissions.reap(now)
			a.Channels.reap(now)
			a.Connections.reap(now)
			if a.Expired(now) {
				expired = append(expired, a)
				delete(s.allocations, id)
			}
		}
		s.mu.Unlock()

		for _, a := range expired {
			if err := a.Close(); err != nil && m.log != nil {
				m.log.Warnf("session: error closing expired allocation: %v", err)
			}
			if m.onExpired != nil {
				m.onExpired(a)
			}
		}
	}

	m.responses.reap(now)
	for _, port := range m.reservations.reap(now) {
		_ = port // released by caller's RelayAddressGenerator if it tracks ports itself
	}
}
