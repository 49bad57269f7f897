// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"net"
	"time"

	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/ipnet"
	"github.com/turnrelay/core/internal/session"
)

// handleAllocate implements the Allocate transaction (RFC 5766 §6.2):
// validates REQUESTED-TRANSPORT and the mutually-exclusive EVEN-PORT /
// RESERVATION-TOKEN attributes, enforces the per-identity allocation
// quota, creates the relay transport, and returns its address.
func (r *Router) handleAllocate(req *Request) ([]byte, error) {
	if cached, ok := r.cfg.Sessions.Responses().Get(req.Identifier, req.Message.TransactionID, req.Now); ok {
		return cached, nil
	}

	auth, pe := r.authenticate(req)
	if pe != nil {
		return nil, pe
	}

	if _, exists := r.cfg.Sessions.Get(req.Identifier); exists {
		return nil, errAllocationMismatch
	}

	m := req.Message

	transportRaw, err := m.Get(codec.AttrRequestedTransport)
	if err != nil {
		return nil, errBadRequest
	}
	proto, err := codec.DecodeRequestedTransport(transportRaw)
	if err != nil {
		return nil, errBadRequest
	}
	if proto != codec.ProtoUDP && proto != codec.ProtoTCP {
		return nil, errUnsupportedTransport
	}
	if proto == codec.ProtoTCP && req.Transport != codec.TransportTCP {
		return nil, errUnsupportedTransport
	}

	hasEvenPort := m.Contains(codec.AttrEvenPort)
	hasReservation := m.Contains(codec.AttrReservationToken)
	if hasEvenPort && hasReservation {
		return nil, errBadRequest
	}

	if r.cfg.MaxAllocationsPerUser > 0 && r.cfg.Sessions.CountForUser(auth.userID) >= r.cfg.MaxAllocationsPerUser {
		return nil, errAllocationQuota
	}

	if famRaw, err := m.Get(codec.AttrRequestedAddressFamily); err == nil {
		fam, err := codec.DecodeRequestedAddressFamily(famRaw)
		if err != nil {
			return nil, errBadRequest
		}
		if fam != r.cfg.Sessions.Relay().AddressFamily() {
			return nil, errUnsupportedFamily
		}
	}

	var (
		alloc     *session.Allocation
		relayAddr net.Addr
		token     *[8]byte
	)

	switch {
	case hasReservation:
		tokRaw, err := m.Get(codec.AttrReservationToken)
		if err != nil {
			return nil, errBadRequest
		}
		tok, err := codec.DecodeReservationToken(tokRaw)
		if err != nil {
			return nil, errBadRequest
		}
		alloc, relayAddr, err = r.cfg.Sessions.ClaimReservation(req.Identifier, auth.userID, tok, req.Now)
		if err != nil {
			return nil, newProtoError(508, "Insufficient Capacity", err)
		}
	case hasEvenPort:
		reserveNext, err := codec.DecodeEvenPort(mustGet(m, codec.AttrEvenPort))
		if err != nil {
			return nil, errBadRequest
		}
		alloc, relayAddr, token, err = r.cfg.Sessions.AllocateEven(req.Identifier, auth.userID, reserveNext, req.Now)
		if err != nil {
			return nil, errInsufficientCap
		}
	default:
		var err error
		alloc, relayAddr, err = r.cfg.Sessions.Allocate(req.Identifier, auth.userID, proto, 0, req.Now)
		if err != nil {
			return nil, errInsufficientCap
		}
	}

	r.cfg.Events.OnAllocationCreated(auth.userID, req.SrcAddr, relayAddr)

	relayIP, relayPort, err := ipnet.AddrIPPort(relayAddr)
	if err != nil {
		r.cfg.Sessions.Delete(req.Identifier)
		return nil, errBadRequest
	}

	typ := codec.NewType(codec.MethodAllocate, codec.ClassSuccessResponse)
	b := codec.NewBuilder(typ, m.TransactionID)

	xorRelayed, err := codec.EncodeXORAddr(codec.Addr{IP: relayIP, Port: relayPort}, m.TransactionID)
	if err != nil {
		return nil, errBadRequest
	}
	b.Add(codec.AttrXORRelayedAddress, xorRelayed)

	srcIP, srcPort, err := ipnet.AddrIPPort(req.SrcAddr)
	if err == nil {
		if xorMapped, err := codec.EncodeXORAddr(codec.Addr{IP: srcIP, Port: srcPort}, m.TransactionID); err == nil {
			b.Add(codec.AttrXORMappedAddress, xorMapped)
		}
	}

	lifetimeSeconds := uint32(defaultAllocationLifetimeSeconds)
	if lifetimeRaw, err := m.Get(codec.AttrLifetime); err == nil {
		if requested, err := codec.DecodeLifetime(lifetimeRaw); err == nil && requested > 0 {
			lifetimeSeconds = requested
			if lifetimeSeconds > maxAllocationLifetimeSeconds {
				lifetimeSeconds = maxAllocationLifetimeSeconds
			}
			alloc.Refresh(secondsToDuration(lifetimeSeconds), req.Now)
		}
	}
	b.Add(codec.AttrLifetime, codec.EncodeLifetime(lifetimeSeconds))
	if token != nil {
		b.Add(codec.AttrReservationToken, codec.EncodeReservationToken(*token))
	}
	if r.cfg.Software != "" {
		b.Add(codec.AttrSoftware, []byte(r.cfg.Software))
	}

	raw, err := b.Flush(auth.key, true)
	if err != nil {
		return nil, err
	}

	r.cfg.Sessions.Responses().Put(req.Identifier, m.TransactionID, raw, req.Now)
	return raw, nil
}

func mustGet(m *codec.Message, t codec.AttrType) []byte {
	v, _ := m.Get(t)
	return v
}

const (
	defaultAllocationLifetimeSeconds = 600
	maxAllocationLifetimeSeconds     = 3600
)

func secondsToDuration(s uint32) time.Duration { return time.Duration(s) * time.Second }
