// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"net"
	"time"

	"github.com/pion/logging"

	"github.com/turnrelay/core/internal/auth"
	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/events"
	"github.com/turnrelay/core/internal/offload"
	"github.com/turnrelay/core/internal/session"
)

// Responder abstracts sending a response back to whoever made the request,
// so the router doesn't need to know whether it arrived over UDP (reply to
// a source address) or TCP (write to the accepted connection).
type Responder interface {
	Respond(b []byte) error
}

// Config configures a Router.
type Config struct {
	Realm       string
	AuthHandler auth.AuthHandler
	Sessions    *session.Manager
	Events      events.EventSink
	Log         logging.LeveledLogger
	Software    string
	NonceSecret []byte

	// MaxAllocationsPerUser bounds how many live allocations a single
	// authenticated identity may hold concurrently. Zero means unlimited.
	MaxAllocationsPerUser int

	// AllowedPeers restricts which peer addresses CreatePermission and
	// ChannelBind may install a permission for. Empty means unrestricted.
	AllowedPeers PeerACL

	// Offload is the kernel-acceleration seam for the ChannelData fast
	// path (RFC 5766 §11.7's "MUST NOT" traverse attribute tables
	// extends naturally to not even needing a process hop once a
	// channel is bound). Nil defaults to offload.NewNullEngine, which
	// tracks pairings without touching the kernel.
	Offload offload.Engine
}

// Router dispatches decoded STUN/TURN messages to their method handlers.
type Router struct {
	cfg   Config
	nonce *nonceSource
}

// New constructs a Router from cfg.
func New(cfg Config) *Router {
	if cfg.Events == nil {
		cfg.Events = events.NoopEventSink{}
	}
	if cfg.Offload == nil {
		cfg.Offload = offload.NewNullEngine(cfg.Log)
	}
	return &Router{cfg: cfg, nonce: newNonceSource(cfg.NonceSecret)}
}

// TeardownOffload removes every live channel pairing alloc's offload
// engine was told about. The Refresh(0) handler calls it, and so can
// callers that destroy an allocation without a request (the idle reaper's
// expiry callback, most notably).
func (r *Router) TeardownOffload(alloc *session.Allocation, now time.Time) {
	relayAddr := session.RelayAddr(alloc)
	if relayAddr == nil {
		return
	}
	for _, entry := range alloc.Channels.Entries(now) {
		peerAddr := &net.UDPAddr{IP: entry.Peer.Addr().AsSlice(), Port: int(entry.Peer.Port())}
		client := offload.Connection{LocalAddr: relayAddr, RemoteAddr: session.ClientAddr(alloc.ID), Transport: alloc.ID.Transport, ChannelID: uint32(entry.Number)}
		peer := offload.Connection{LocalAddr: relayAddr, RemoteAddr: peerAddr, Transport: alloc.ID.Transport}
		_ = r.cfg.Offload.Remove(client, peer)
	}
}

// Request is everything a handler needs to process one decoded message.
type Request struct {
	Message   *codec.Message
	Transport codec.Transport
	SrcAddr   net.Addr
	LocalAddr net.Addr
	Responder Responder
	Now       time.Time

	// ClientConn is the raw connection this request arrived on. It is
	// only needed by ConnectionBind, which splices the connection
	// directly to a peer's relay connection rather than replying through
	// Responder for subsequent traffic.
	ClientConn net.Conn

	// Identifier is derived once per request from SrcAddr/LocalAddr/Transport.
	Identifier session.Identifier

	// Hijacked is set by ConnectionBind once it has spliced ClientConn into
	// a peer connection: the transport layer must stop treating the
	// connection as a TURN control stream and let the splice own it.
	Hijacked bool
}

// HandleMessage dispatches a decoded STUN/TURN message to its handler and
// writes the handler's response, if any, via req.Responder.
func (r *Router) HandleMessage(req *Request) error {
	switch req.Message.Type.Class {
	case codec.ClassRequest:
		return r.handleRequest(req)
	case codec.ClassIndication:
		return r.handleIndication(req)
	default:
		// Responses and error responses are not expected unsolicited on
		// the server side; drop silently.
		return nil
	}
}

func (r *Router) handleRequest(req *Request) error {
	var (
		raw []byte
		err error
	)

	switch req.Message.Type.Method {
	case codec.MethodBinding:
		raw, err = r.handleBinding(req)
	case codec.MethodAllocate:
		raw, err = r.handleAllocate(req)
	case codec.MethodRefresh:
		raw, err = r.handleRefresh(req)
	case codec.MethodCreatePermission:
		raw, err = r.handleCreatePermission(req)
	case codec.MethodChannelBind:
		raw, err = r.handleChannelBind(req)
	case codec.MethodConnect:
		raw, err = r.handleConnect(req)
	case codec.MethodConnectionBind:
		raw, err = r.handleConnectionBind(req)
	default:
		raw, err = r.buildError(req, newProtoError(400, "Bad Request", errUnsupportedMethod))
	}

	if err != nil {
		if raw == nil {
			raw, err = r.buildError(req, asProtoError(err))
			if err != nil {
				return err
			}
		}
	}
	if raw == nil {
		return nil
	}
	return req.Responder.Respond(raw)
}

func (r *Router) handleIndication(req *Request) error {
	switch req.Message.Type.Method {
	case codec.MethodSend:
		return r.handleSend(req)
	default:
		// Indications never receive a response, even when malformed.
		return nil
	}
}

// HandleChannelData processes a decoded ChannelData frame: looks up the
// bound peer for its channel number and relays the payload, without any
// STUN parsing overhead.
func (r *Router) HandleChannelData(cd *codec.ChannelData, req *Request) error {
	return r.handleChannelDataFrame(cd, req)
}
