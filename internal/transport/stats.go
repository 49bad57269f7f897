// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package transport

import "sync/atomic"

// Stats holds orchestrator-wide counters, read without locking.
type Stats struct {
	// DroppedPackets counts peer->client datagrams discarded because the
	// destination interface's queue was full, the client's interface was
	// no longer registered, or the datagram exceeded that interface's MTU.
	DroppedPackets uint64
}

type stats struct {
	droppedPackets uint64
}

func (s *stats) addDropped() { atomic.AddUint64(&s.droppedPackets, 1) }

func (s *stats) snapshot() Stats {
	return Stats{DroppedPackets: atomic.LoadUint64(&s.droppedPackets)}
}
