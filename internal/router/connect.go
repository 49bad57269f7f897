// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"net"
	"time"

	"github.com/turnrelay/core/internal/codec"
)

// connectDialTimeout bounds how long the server waits to establish the
// outbound TCP connection to the peer before answering Connect
// (RFC 6062 §5.2 leaves the exact value to the implementation).
const connectDialTimeout = 10 * time.Second

// handleConnect implements the RFC 6062 §5.1 Connect transaction for an
// allocation with a TCP relay: it opens a TCP connection to
// XOR-PEER-ADDRESS and, on success, registers the connection under a fresh
// CONNECTION-ID for a subsequent ConnectionBind to claim. The outbound
// connection's local address is chosen by the operating system; it is not
// bound to the allocation's relay address.
func (r *Router) handleConnect(req *Request) ([]byte, error) {
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
	if alloc.Protocol != codec.ProtoTCP {
		return nil, errUnsupportedTransport
	}

	m := req.Message
	peerRaw, err := m.Get(codec.AttrXORPeerAddress)
	if err != nil {
		return nil, errBadRequest
	}
	peerAddr, err := codec.DecodeXORAddr(peerRaw, m.TransactionID)
	if err != nil {
		return nil, errBadRequest
	}

	dialer := net.Dialer{Timeout: connectDialTimeout}
	conn, err := dialer.Dial("tcp", (&net.TCPAddr{IP: peerAddr.IP, Port: peerAddr.Port}).String())
	if err != nil {
		return nil, newProtoError(447, "Connection Timeout or Failure", err)
	}

	connID := alloc.Connections.Add(conn, req.Now)

	typ := codec.NewType(codec.MethodConnect, codec.ClassSuccessResponse)
	b := codec.NewBuilder(typ, m.TransactionID)
	b.Add(codec.AttrConnectionID, codec.EncodeConnectionID(connID))
	return b.Flush(auth.key, true)
}
