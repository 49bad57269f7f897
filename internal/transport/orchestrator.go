// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3"
	"github.com/pkg/errors"

	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/router"
	"github.com/turnrelay/core/internal/session"
)

// Orchestrator binds every configured listening interface, wires their
// decoded traffic into a Router, and owns the plumbing that lets peer
// traffic arriving on an allocation's relay socket reach the client that
// created it, whichever interface it was created from.
type Orchestrator struct {
	cfg    Config
	net    transport.Net
	router *router.Router
	log    logging.LeveledLogger

	exchange *Exchange
	tcpConns *tcpConnRegistry
	metrics  stats

	udpListeners []*udpListener
	tcpListeners []*tcpListener

	reapStop chan struct{}
	wg       sync.WaitGroup
}

// New binds cfg.Interfaces and returns a running Orchestrator, or an error
// if any interface fails to bind. sessions must be the same Manager r was
// configured with: New installs this Orchestrator's relay delivery hook on
// it with SetOnRelayPacket.
func New(cfg Config, r *router.Router, sessions *session.Manager, log logging.LeveledLogger) (*Orchestrator, error) {
	net, err := cfg.net()
	if err != nil {
		return nil, errors.Wrap(err, "transport: constructing default Net")
	}

	o := &Orchestrator{
		cfg:      cfg,
		net:      net,
		router:   r,
		log:      log,
		exchange: newExchange(),
		tcpConns: newTCPConnRegistry(),
		reapStop: make(chan struct{}),
	}

	for _, ic := range cfg.Interfaces {
		if err := o.bind(ic); err != nil {
			o.Close()
			return nil, errors.Wrapf(err, "transport: binding %d %s", ic.Transport, ic.Bind)
		}
	}

	sessions.SetOnRelayPacket(o.deliverFromPeer)

	o.wg.Add(1)
	go o.reapLoop(sessions)

	for _, l := range o.udpListeners {
		o.wg.Add(2)
		go func(l *udpListener) { defer o.wg.Done(); l.run() }(l)
		go func(l *udpListener) { defer o.wg.Done(); l.deliverLoop() }(l)
	}
	for _, l := range o.tcpListeners {
		o.wg.Add(1)
		go func(l *tcpListener) { defer o.wg.Done(); l.run() }(l)
	}

	return o, nil
}

func (o *Orchestrator) bind(ic InterfaceConfig) error {
	switch ic.Transport {
	case codec.TransportUDP:
		network := ic.Network
		if network == "" {
			network = "udp4"
		}
		pc, err := o.net.ListenPacket(network, ic.Bind) //nolint:noctx
		if err != nil {
			return err
		}
		inbox := o.exchange.register(pc.LocalAddr().String(), o.cfg.exchangeBuffer())
		l, err := newUDPListener(ic, pc, inbox, o.router, o.log, &o.metrics, o.cfg.maxDatagramSize())
		if err != nil {
			_ = pc.Close()
			return err
		}
		o.udpListeners = append(o.udpListeners, l)
	case codec.TransportTCP:
		network := ic.Network
		if network == "" {
			network = "tcp4"
		}
		tcpAddr, err := o.net.ResolveTCPAddr(network, ic.Bind)
		if err != nil {
			return err
		}
		ln, err := o.net.ListenTCP(network, tcpAddr) //nolint:noctx
		if err != nil {
			return err
		}
		l := newTCPListener(ic, ln, o.router, o.log, o.tcpConns, o.cfg.maxDatagramSize())
		o.tcpListeners = append(o.tcpListeners, l)
	default:
		return fmt.Errorf("transport: unknown transport kind %v", ic.Transport)
	}
	return nil
}

// deliverFromPeer is installed as the SessionManager's relay-read hook: it
// turns a raw peer datagram into the message the client should receive and
// routes it to the client, either by direct write (TCP control connection)
// or through the Exchange (UDP, which may own a different listener socket
// than the one this allocation's relay-read goroutine is running under).
func (o *Orchestrator) deliverFromPeer(alloc *session.Allocation, peer net.Addr, data []byte) {
	raw := o.router.RelayFromPeer(alloc, peer, data, alloc.ID.Transport, time.Now())
	if raw == nil {
		return
	}

	if alloc.ID.Transport == codec.TransportTCP {
		if !o.tcpConns.write(alloc.ID, raw) {
			o.metrics.addDropped()
		}
		return
	}

	clientAddr := &net.UDPAddr{IP: alloc.ID.Client.Addr().AsSlice(), Port: int(alloc.ID.Client.Port())}
	if !o.exchange.push(alloc.ID.Local.String(), clientAddr, raw) {
		o.metrics.addDropped()
	}
}

func (o *Orchestrator) reapLoop(sessions *session.Manager) {
	defer o.wg.Done()
	t := time.NewTicker(o.cfg.reapInterval())
	defer t.Stop()
	for {
		select {
		case <-t.C:
			sessions.Reap(time.Now())
		case <-o.reapStop:
			return
		}
	}
}

// Stats returns a snapshot of the orchestrator's drop counters.
func (o *Orchestrator) Stats() Stats { return o.metrics.snapshot() }

// Close shuts down every bound listener and stops the reap loop, then waits
// for their goroutines to exit.
func (o *Orchestrator) Close() error {
	select {
	case <-o.reapStop:
	default:
		close(o.reapStop)
	}
	for _, l := range o.udpListeners {
		_ = l.close()
		close(l.inbox)
	}
	for _, l := range o.tcpListeners {
		_ = l.close()
	}
	o.wg.Wait()
	return nil
}
