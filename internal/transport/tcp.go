// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package transport

import (
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/router"
	"github.com/turnrelay/core/internal/session"
	"github.com/turnrelay/core/utils"
)

// tcpListener accepts TURN-over-TCP control connections: each accepted
// connection gets its own read goroutine that frames the byte stream into
// individual STUN messages or ChannelData frames via utils.ConsumeTURNFrame
// and dispatches them into the Router.
type tcpListener struct {
	cfg InterfaceConfig
	ln  net.Listener

	router    *router.Router
	log       logging.LeveledLogger
	conns     *tcpConnRegistry
	bufSize   int
}

func newTCPListener(cfg InterfaceConfig, ln net.Listener, r *router.Router, log logging.LeveledLogger, conns *tcpConnRegistry, bufSize int) *tcpListener {
	return &tcpListener{cfg: cfg, ln: ln, router: r, log: log, conns: conns, bufSize: bufSize}
}

func (l *tcpListener) run() {
	for {
		c, err := l.ln.Accept()
		if err != nil {
			return
		}
		go l.serve(c)
	}
}

func (l *tcpListener) close() error { return l.ln.Close() }

// serve frames and dispatches every message on conn until it errors, is
// idle past cfg.IdleTimeout, or a ConnectionBind hijacks it for splicing.
func (l *tcpListener) serve(conn net.Conn) {
	defer conn.Close()

	id, err := session.NewIdentifier(conn.RemoteAddr(), conn.LocalAddr(), codec.TransportTCP)
	if err != nil {
		return
	}
	l.conns.register(id, conn)
	defer l.conns.unregister(id)

	decoder := codec.NewDecoder()
	buf := make([]byte, 0, l.bufSize)
	scratch := make([]byte, l.bufSize)

	for {
		if l.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(l.cfg.IdleTimeout))
		}
		n, err := conn.Read(scratch)
		if err != nil {
			return
		}
		buf = append(buf, scratch[:n]...)

		for {
			frameLen, err := utils.ConsumeTURNFrame(buf)
			if err != nil {
				break
			}
			frame := buf[:frameLen]
			hijacked := l.dispatchFrame(frame, conn, id, decoder)
			buf = buf[frameLen:]
			if hijacked {
				// The connection has been handed off to a splice goroutine
				// (RFC 6062 ConnectionBind); this read loop must release it.
				return
			}
		}
		if len(buf) == 0 {
			buf = buf[:0]
		}
	}
}

func (l *tcpListener) dispatchFrame(frame []byte, conn net.Conn, id session.Identifier, decoder *codec.Decoder) bool {
	req := &router.Request{
		Transport:  codec.TransportTCP,
		SrcAddr:    conn.RemoteAddr(),
		LocalAddr:  conn.LocalAddr(),
		Responder:  tcpResponder{conn: conn},
		Now:        time.Now(),
		ClientConn: conn,
		Identifier: id,
	}

	switch codec.Classify(frame) {
	case codec.FrameChannelData:
		cd, err := codec.DecodeChannelData(frame, codec.TransportTCP)
		if err != nil {
			return false
		}
		if err := l.router.HandleChannelData(cd, req); err != nil && l.log != nil {
			l.log.Debugf("transport: error handling channel data from %v: %v", conn.RemoteAddr(), err)
		}
		return false
	case codec.FrameSTUN:
		m, err := decoder.DecodeMessage(frame, codec.TransportTCP)
		if err != nil {
			return false
		}
		req.Message = m
		if err := l.router.HandleMessage(req); err != nil && l.log != nil {
			l.log.Debugf("transport: error handling message from %v: %v", conn.RemoteAddr(), err)
		}
		return req.Hijacked
	default:
		return false
	}
}

// tcpConnRegistry tracks every live TCP control connection by Identifier,
// so a relay-read goroutine delivering peer traffic to a TCP client can
// write directly to its connection instead of routing through the Exchange
// (which only ever addresses UDP listener sockets).
type tcpConnRegistry struct {
	mu    sync.Mutex
	conns map[session.Identifier]net.Conn
}

func newTCPConnRegistry() *tcpConnRegistry {
	return &tcpConnRegistry{conns: make(map[session.Identifier]net.Conn)}
}

func (r *tcpConnRegistry) register(id session.Identifier, conn net.Conn) {
	r.mu.Lock()
	r.conns[id] = conn
	r.mu.Unlock()
}

func (r *tcpConnRegistry) unregister(id session.Identifier) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// write delivers raw to the TCP control connection for id, reporting false
// if the connection is no longer registered.
func (r *tcpConnRegistry) write(id session.Identifier, raw []byte) bool {
	r.mu.Lock()
	conn, ok := r.conns[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	_, err := conn.Write(raw)
	return err == nil
}
