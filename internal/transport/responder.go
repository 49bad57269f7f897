// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package transport

import "net"

// udpResponder replies to a request by writing back to src on the socket
// it arrived on, so the reply always carries the interface identity the
// client sent to.
type udpResponder struct {
	conn net.PacketConn
	src  net.Addr
}

func (r udpResponder) Respond(b []byte) error {
	_, err := r.conn.WriteTo(b, r.src)
	return err
}

// tcpResponder replies by writing directly to the accepted connection.
type tcpResponder struct {
	conn net.Conn
}

func (r tcpResponder) Respond(b []byte) error {
	_, err := r.conn.Write(b)
	return err
}
