// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package utils contains small helpers shared by the relay transports,
// principally TCP stream framing.
package utils

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// errIncompleteTURNFrame is returned by consumeSingleTURNFrame when data
// does not yet hold a complete frame; the caller should read more and
// retry.
var errIncompleteTURNFrame = errors.New("incomplete TURN frame")

// consumeSingleTURNFrame returns the length of the first complete
// ChannelData frame or STUN message at the start of data, so the caller
// can split a byte stream (as read from a TCP connection) into individual
// frames. It does not allocate or otherwise interpret the frame contents.
func consumeSingleTURNFrame(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, errIncompleteTURNFrame
	}

	if data[0]>>6 == 0b01 {
		if len(data) < 4 {
			return 0, errIncompleteTURNFrame
		}
		length := int(binary.BigEndian.Uint16(data[2:4]))
		total := 4 + length
		if total%4 != 0 {
			total += 4 - total%4
		}
		if len(data) < total {
			return 0, errIncompleteTURNFrame
		}
		return total, nil
	}

	if len(data) < 20 {
		return 0, errIncompleteTURNFrame
	}
	length := int(binary.BigEndian.Uint16(data[2:4]))
	total := 20 + length
	if len(data) < total {
		return 0, errIncompleteTURNFrame
	}
	return total, nil
}

// ConsumeTURNFrame is the exported form of consumeSingleTURNFrame, used by
// the transport layer to split a TCP byte stream into individual TURN
// frames without allocating or interpreting their contents.
func ConsumeTURNFrame(data []byte) (int, error) {
	return consumeSingleTURNFrame(data)
}

// ErrIncompleteTURNFrame reports that data does not yet hold a complete
// frame and the caller should read more from the stream.
var ErrIncompleteTURNFrame = errIncompleteTURNFrame
