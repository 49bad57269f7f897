// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"sync"

	"github.com/pion/randutil"
)

// portAllocator hands out relay ports from a configured range at random,
// so a client probing sequential allocations can't predict the next relay
// port another client will receive. It tracks free ports as a dense slice
// plus a per-port position index (not a bitmap), so allocation, reserve
// and release are all O(1): allocate and reserve move the last free port
// into the vacated slot, and release appends the port to the slice.
type portAllocator struct {
	mu sync.Mutex

	base int // lowest port in range
	free []uint16
	// pos[port-base] is the index of that port within free, or -1 if the
	// port is currently allocated. Lets release find its slot in O(1).
	pos []int32

	rand randutil.MathRandomGenerator
}

func newPortAllocator(minPort, maxPort int) *portAllocator {
	n := maxPort - minPort + 1
	p := &portAllocator{
		base: minPort,
		free: make([]uint16, n),
		pos:  make([]int32, n),
		rand: randutil.NewMathRandomGenerator(),
	}
	for i := 0; i < n; i++ {
		p.free[i] = uint16(minPort + i)
		p.pos[i] = int32(i)
	}
	return p
}

// allocate reserves and returns a uniformly random free port, or
// ErrNoPortsAvailable if the range is exhausted.
func (p *portAllocator) allocate() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		return 0, ErrNoPortsAvailable
	}

	idx := p.rand.Intn(n)
	port := p.free[idx]

	last := n - 1
	p.free[idx] = p.free[last]
	p.pos[p.free[idx]-uint16(p.base)] = int32(idx)
	p.free = p.free[:last]
	p.pos[port-uint16(p.base)] = -1

	return int(port), nil
}

// reserve removes a specific port from the free pool, for EVEN-PORT
// reservations that must hand out a deterministic paired port rather than
// a random one.
func (p *portAllocator) reserve(port int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	off := port - p.base
	if off < 0 || off >= len(p.pos) {
		return false
	}
	idx := p.pos[off]
	if idx < 0 {
		return false
	}

	last := len(p.free) - 1
	moved := p.free[last]
	p.free[idx] = moved
	p.pos[moved-uint16(p.base)] = idx
	p.free = p.free[:last]
	p.pos[off] = -1
	return true
}

// release returns port to the free pool.
func (p *portAllocator) release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	off := port - p.base
	if off < 0 || off >= len(p.pos) || p.pos[off] != -1 {
		return
	}
	p.pos[off] = int32(len(p.free))
	p.free = append(p.free, uint16(port))
}
