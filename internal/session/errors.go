// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import "errors"

// Sentinel errors returned by the SessionManager. The router maps these
// to STUN error responses; none of them are wire errors themselves.
var (
	errInvalidAddr              = errors.New("session: address is not a UDP or TCP address")
	ErrAllocationMismatch       = errors.New("session: relay already allocated for this five-tuple with different parameters")
	ErrAllocationExists         = errors.New("session: allocation already exists for this five-tuple")
	ErrAllocationNotFound       = errors.New("session: no allocation for this five-tuple")
	ErrAllocationQuotaExceeded  = errors.New("session: allocation quota exceeded for this identity")
	ErrNoPortsAvailable         = errors.New("session: no relay ports available in configured range")
	ErrReservationNotFound      = errors.New("session: reservation token not found or expired")
	ErrChannelNumberInUse       = errors.New("session: channel number already bound to a different peer")
	ErrChannelPeerInUse         = errors.New("session: peer address already bound to a different channel")
	ErrTooManyPermissions       = errors.New("session: permission table full for this allocation")
	ErrConnectionNotFound       = errors.New("session: no pending connection for this identifier")
	ErrConnectionExists         = errors.New("session: a connection to this peer is already pending or bound")
)
