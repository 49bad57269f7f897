// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package transport

import (
	"net"
	"time"

	"github.com/pion/logging"

	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/ipnet"
	"github.com/turnrelay/core/internal/router"
	"github.com/turnrelay/core/internal/session"
)

// udpListener owns one bound UDP socket: it decodes every inbound datagram
// and dispatches it into the Router, and separately drains the Exchange
// queue registered for its bind address to deliver peer traffic that
// arrived on a different allocation's relay socket.
type udpListener struct {
	cfg   InterfaceConfig
	conn  ipnet.PacketConn
	inbox chan forwardJob

	router  *router.Router
	log     logging.LeveledLogger
	metrics *stats

	decoder *codec.Decoder
	bufSize int
}

func newUDPListener(cfg InterfaceConfig, pc net.PacketConn, inbox chan forwardJob, r *router.Router, log logging.LeveledLogger, metrics *stats, bufSize int) (*udpListener, error) {
	conn, err := ipnet.NewPacketConn("udp4", pc)
	if err != nil {
		// The underlying PacketConn doesn't support IPv4 control messages
		// (e.g. a vnet-backed socket in tests, which has no real kernel fd
		// to request them from). Fall back to a conn that reports no
		// destination address rather than failing the bind outright.
		conn = noControlMessagePacketConn{pc}
	}
	return &udpListener{
		cfg:     cfg,
		conn:    conn,
		inbox:   inbox,
		router:  r,
		log:     log,
		metrics: metrics,
		decoder: codec.NewDecoder(),
		bufSize: bufSize,
	}, nil
}

// run reads datagrams until the socket is closed. It is not safe to call
// concurrently with itself, but runs alongside deliverLoop on the same
// listener.
func (l *udpListener) run() {
	buf := make([]byte, l.bufSize)
	for {
		n, _, src, err := l.conn.ReadFromCM(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		l.handleDatagram(buf[:n], src)
	}
}

func (l *udpListener) handleDatagram(data []byte, src net.Addr) {
	switch codec.Classify(data) {
	case codec.FrameChannelData:
		cd, err := codec.DecodeChannelData(data, codec.TransportUDP)
		if err != nil {
			return
		}
		l.dispatchChannelData(cd, src)
	case codec.FrameSTUN:
		m, err := l.decoder.DecodeMessage(data, codec.TransportUDP)
		if err != nil {
			return
		}
		l.dispatchMessage(m, src)
	default:
		// Not a TURN/STUN frame; silently ignore per RFC 5766 §4.
	}
}

func (l *udpListener) dispatchMessage(m *codec.Message, src net.Addr) {
	id, err := session.NewIdentifier(src, l.conn.LocalAddr(), codec.TransportUDP)
	if err != nil {
		return
	}
	req := &router.Request{
		Message:    m,
		Transport:  codec.TransportUDP,
		SrcAddr:    src,
		LocalAddr:  l.conn.LocalAddr(),
		Responder:  udpResponder{conn: l.conn, src: src},
		Now:        time.Now(),
		Identifier: id,
	}
	if err := l.router.HandleMessage(req); err != nil && l.log != nil {
		l.log.Debugf("transport: error handling message from %v: %v", src, err)
	}
}

func (l *udpListener) dispatchChannelData(cd *codec.ChannelData, src net.Addr) {
	id, err := session.NewIdentifier(src, l.conn.LocalAddr(), codec.TransportUDP)
	if err != nil {
		return
	}
	req := &router.Request{
		Transport:  codec.TransportUDP,
		SrcAddr:    src,
		LocalAddr:  l.conn.LocalAddr(),
		Responder:  udpResponder{conn: l.conn, src: src},
		Now:        time.Now(),
		Identifier: id,
	}
	if err := l.router.HandleChannelData(cd, req); err != nil && l.log != nil {
		l.log.Debugf("transport: error handling channel data from %v: %v", src, err)
	}
}

// deliverLoop drains jobs the Exchange routes to this listener: relay
// traffic read on another allocation's socket, destined for a client this
// listener's socket originally heard from.
func (l *udpListener) deliverLoop() {
	for job := range l.inbox {
		if l.cfg.MTU > 0 && len(job.raw) > l.cfg.MTU {
			l.metrics.addDropped()
			continue
		}
		if _, err := l.conn.WriteTo(job.raw, job.client); err != nil {
			l.metrics.addDropped()
		}
	}
}

func (l *udpListener) bindAddr() string { return l.conn.LocalAddr().String() }

func (l *udpListener) close() error { return l.conn.Close() }

// noControlMessagePacketConn adapts a plain net.PacketConn to ipnet.PacketConn
// for transports (vnet, most notably) that can't report a per-packet
// destination address. ReadFromCM always reports a nil ControlMessage.
type noControlMessagePacketConn struct {
	net.PacketConn
}

func (c noControlMessagePacketConn) ReadFromCM(b []byte) (int, *ipnet.ControlMessage, net.Addr, error) {
	n, src, err := c.ReadFrom(b)
	return n, nil, src, err
}
