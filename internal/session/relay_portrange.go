// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/pion/transport/v3"
	"github.com/pion/transport/v3/stdnet"
	"golang.org/x/sys/unix"

	"github.com/turnrelay/core/internal/codec"
)

// PortRangeRelay is the default RelayAddressGenerator: it hands out relay
// sockets bound to a real port drawn from a configured range via the O(1)
// free-list portAllocator (rather than the teacher's retry-a-random-port-until-
// bind-succeeds loop), and advertises RelayIP as the address peers are
// told to send to. This keeps the server's relay traffic confined to a
// single advertised interface and a bounded port range, matching §3's
// port_allocator and the server's refusal to relay through anything
// outside its own advertised interfaces.
type PortRangeRelay struct {
	// RelayIP is advertised in XOR-RELAYED-ADDRESS; it may differ from the
	// address the relay socket actually binds to (BindIP) behind a NAT or
	// load balancer, mirroring External vs Bind in the transport config.
	RelayIP net.IP
	// BindIP is the local address the relay socket binds to. Defaults to
	// RelayIP when empty.
	BindIP net.IP
	Family codec.AddressFamily

	// Net is the pluggable network relay sockets are bound through
	// (github.com/pion/transport/v3's Net interface), the same seam the
	// teacher's RelayAddressGeneratorPortRange uses. Nil defaults to
	// stdnet, i.e. real OS sockets.
	Net transport.Net

	ports *portAllocator
}

// NewPortRangeRelay constructs a PortRangeRelay over [minPort, maxPort].
// net selects the pluggable Net relay sockets bind through; pass nil for
// native OS sockets (the only option a real deployment needs).
func NewPortRangeRelay(relayIP, bindIP net.IP, family codec.AddressFamily, minPort, maxPort int, net transport.Net) (*PortRangeRelay, error) {
	if bindIP == nil {
		bindIP = relayIP
	}
	if net == nil {
		var err error
		net, err = stdnet.NewNet()
		if err != nil {
			return nil, err
		}
	}
	return &PortRangeRelay{
		RelayIP: relayIP,
		BindIP:  bindIP,
		Family:  family,
		Net:     net,
		ports:   newPortAllocator(minPort, maxPort),
	}, nil
}

// AddressFamily reports which family this generator allocates from.
func (r *PortRangeRelay) AddressFamily() codec.AddressFamily { return r.Family }

// AllocatePacketConn binds a UDP relay socket on a port drawn from the
// configured range (or the specific requestedPort, for a claimed
// reservation), returning a RelaySocket whose Close both closes the
// socket and returns the port to the allocator.
func (r *PortRangeRelay) AllocatePacketConn(network string, requestedPort int) (net.PacketConn, net.Addr, error) {
	port, owned, err := r.reservePort(requestedPort)
	if err != nil {
		return nil, nil, err
	}

	pc, err := r.Net.ListenPacket(network, fmt.Sprintf("%s:%d", r.BindIP, port))
	if err != nil {
		if owned {
			r.ports.release(port)
		}
		return nil, nil, err
	}

	relayAddr := &net.UDPAddr{IP: r.RelayIP, Port: port}
	return &releasingPacketConn{PacketConn: pc, release: func() { r.ports.release(port) }}, relayAddr, nil
}

// AllocateListener is the TCP analogue of AllocatePacketConn, for RFC 6062
// relay, with SO_REUSEADDR/SO_REUSEPORT set so the advertised RelayIP can
// be served by more than one bound listener without port contention.
//
// This stays on net.ListenConfig/syscall rather than r.Net: transport.Net
// has no socket-option concept, and SO_REUSEADDR/SO_REUSEPORT has no
// meaning against an in-memory vnet socket anyway, so there is nothing a
// Net abstraction would buy this path.
func (r *PortRangeRelay) AllocateListener(network string, requestedPort int) (net.Listener, net.Addr, error) {
	port, owned, err := r.reservePort(requestedPort)
	if err != nil {
		return nil, nil, err
	}

	cfg := net.ListenConfig{Control: func(_, _ string, c syscall.RawConn) error {
		var ctrlErr error
		err := c.Control(func(fd uintptr) {
			ctrlErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			if ctrlErr == nil {
				ctrlErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}
		})
		if err != nil {
			return err
		}
		return ctrlErr
	}}

	ln, err := cfg.Listen(context.Background(), network, fmt.Sprintf("%s:%d", r.BindIP, port))
	if err != nil {
		if owned {
			r.ports.release(port)
		}
		return nil, nil, err
	}

	relayAddr := &net.TCPAddr{IP: r.RelayIP, Port: port}
	return &releasingListener{Listener: ln, release: func() { r.ports.release(port) }}, relayAddr, nil
}

// AllocateEvenPort binds a UDP relay socket to an even port (RFC 5766
// §14.6), optionally reserving the following odd port for a paired
// allocation to claim via RESERVATION-TOKEN.
func (r *PortRangeRelay) AllocateEvenPort(network string, reserveNext bool) (net.PacketConn, net.Addr, int, error) {
	const maxAttempts = 32

	for attempt := 0; attempt < maxAttempts; attempt++ {
		port, err := r.ports.allocate()
		if err != nil {
			return nil, nil, 0, err
		}
		if port%2 != 0 {
			r.ports.release(port)
			continue
		}

		reservedPort := 0
		if reserveNext {
			if r.ports.reserve(port + 1) {
				reservedPort = port + 1
			}
		}

		pc, err := r.Net.ListenPacket(network, fmt.Sprintf("%s:%d", r.BindIP, port))
		if err != nil {
			r.ports.release(port)
			if reservedPort != 0 {
				r.ports.release(reservedPort)
			}
			continue
		}

		relayAddr := &net.UDPAddr{IP: r.RelayIP, Port: port}
		conn := &releasingPacketConn{PacketConn: pc, release: func() { r.ports.release(port) }}
		return conn, relayAddr, reservedPort, nil
	}
	return nil, nil, 0, ErrNoPortsAvailable
}

func (r *PortRangeRelay) reservePort(requestedPort int) (port int, owned bool, err error) {
	if requestedPort != 0 {
		if !r.ports.reserve(requestedPort) {
			return 0, false, ErrNoPortsAvailable
		}
		return requestedPort, true, nil
	}
	port, err = r.ports.allocate()
	if err != nil {
		return 0, false, err
	}
	return port, true, nil
}

// releasingPacketConn returns its port to the allocator exactly once when
// closed, so a double Close (e.g. from both Refresh(0) and idle reaping
// racing) never double-frees a port another allocation may already own.
type releasingPacketConn struct {
	net.PacketConn
	once    sync.Once
	release func()
}

func (c *releasingPacketConn) Close() error {
	err := c.PacketConn.Close()
	c.once.Do(c.release)
	return err
}

type releasingListener struct {
	net.Listener
	once    sync.Once
	release func()
}

func (l *releasingListener) Close() error {
	err := l.Listener.Close()
	l.once.Do(l.release)
	return err
}
