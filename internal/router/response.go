// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"github.com/turnrelay/core/internal/codec"
)

// buildError encodes pe as a STUN error response to req, attaching REALM
// and a fresh NONCE for 401/438 so the client can retry with credentials,
// and UNKNOWN-ATTRIBUTES for 420.
func (r *Router) buildError(req *Request, pe *protoError) ([]byte, error) {
	typ := codec.NewType(req.Message.Type.Method, codec.ClassErrorResponse)
	b := codec.NewBuilder(typ, req.Message.TransactionID)
	b.Add(codec.AttrErrorCode, codec.EncodeErrorCode(codec.ErrorCode{Code: pe.code, Reason: pe.reason}))

	switch pe.code {
	case 401, 438:
		b.Add(codec.AttrRealm, []byte(r.cfg.Realm))
		b.Add(codec.AttrNonce, []byte(r.nonce.Generate(req.Now)))
	case 420:
		b.Add(codec.AttrUnknownAttributes, codec.EncodeUnknownAttributes(pe.unknownTypes))
	}

	if r.cfg.Software != "" {
		b.Add(codec.AttrSoftware, []byte(r.cfg.Software))
	}

	return b.Flush(nil, true)
}
