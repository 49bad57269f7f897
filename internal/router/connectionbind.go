// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"io"

	"github.com/turnrelay/core/internal/codec"
)

// handleConnectionBind implements the RFC 6062 §5.3 ConnectionBind
// transaction: it claims the pending peer connection registered by a prior
// Connect and splices it bidirectionally with the TCP connection the
// ConnectionBind request itself arrived on. After this call, req.ClientConn
// carries peer data directly; the transport layer must stop treating it as
// a TURN control stream once the success response is written.
func (r *Router) handleConnectionBind(req *Request) ([]byte, error) {
	auth, pe := r.authenticate(req)
	if pe != nil {
		return nil, pe
	}

	alloc, ok := r.cfg.Sessions.Get(req.Identifier)
	if !ok {
		return nil, newProtoError(437, "Allocation Mismatch", errAllocationMismatch)
	}
	if alloc.UserID != auth.userID {
		return nil, errForbidden
	}
	if req.ClientConn == nil {
		return nil, errBadRequest
	}

	m := req.Message
	idRaw, err := m.Get(codec.AttrConnectionID)
	if err != nil {
		return nil, errBadRequest
	}
	connID, err := codec.DecodeConnectionID(idRaw)
	if err != nil {
		return nil, errBadRequest
	}

	peerConn, ok := alloc.Connections.Claim(connID, req.Now)
	if !ok {
		return nil, newProtoError(400, "Bad Request", errConnectionNotFound)
	}

	typ := codec.NewType(codec.MethodConnectionBind, codec.ClassSuccessResponse)
	b := codec.NewBuilder(typ, m.TransactionID)
	raw, err := b.Flush(auth.key, true)
	if err != nil {
		_ = peerConn.Close()
		return nil, err
	}

	if err := req.Responder.Respond(raw); err != nil {
		_ = peerConn.Close()
		return nil, err
	}

	req.Hijacked = true
	go spliceConnections(req.ClientConn, peerConn, alloc)
	return nil, nil
}

func spliceConnections(client, peer ioReadWriteCloser, alloc allocationStats) {
	done := make(chan struct{}, 2)
	go func() {
		n, _ := io.Copy(peer, client)
		alloc.AddSent(int(n))
		done <- struct{}{}
	}()
	go func() {
		n, _ := io.Copy(client, peer)
		alloc.AddReceived(int(n))
		done <- struct{}{}
	}()
	<-done
	client.Close()
	peer.Close()
}

type ioReadWriteCloser interface {
	io.Reader
	io.Writer
	io.Closer
}

type allocationStats interface {
	AddSent(int)
	AddReceived(int)
}
