// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/ipnet"
)

// handleBinding answers a STUN Binding Request with the observed
// reflexive address, unauthenticated (RFC 5389 §10 binding discovery is
// intentionally open).
func (r *Router) handleBinding(req *Request) ([]byte, error) {
	ip, port, err := ipnet.AddrIPPort(req.SrcAddr)
	if err != nil {
		return r.buildError(req, errBadRequest)
	}

	typ := codec.NewType(codec.MethodBinding, codec.ClassSuccessResponse)
	b := codec.NewBuilder(typ, req.Message.TransactionID)

	xor, err := codec.EncodeXORAddr(codec.Addr{IP: ip, Port: port}, req.Message.TransactionID)
	if err != nil {
		return r.buildError(req, errBadRequest)
	}
	b.Add(codec.AttrXORMappedAddress, xor)
	if r.cfg.Software != "" {
		b.Add(codec.AttrSoftware, []byte(r.cfg.Software))
	}

	r.cfg.Events.OnBinding(req.Identifier)

	return b.Flush(nil, true)
}
