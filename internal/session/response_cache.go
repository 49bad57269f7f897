// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"sync"
	"time"

	"github.com/turnrelay/core/internal/codec"
)

// responseCacheLifetime bounds how long a completed Allocate response is
// kept for retransmission: long enough to cover UDP's retransmit backoff,
// short enough not to leak memory for abandoned five-tuples.
const responseCacheLifetime = 5 * time.Second

type cachedResponse struct {
	tid     [codec.TransactionIDSize]byte
	raw     []byte
	expires time.Time
}

// responseCache lets the router answer a retransmitted Allocate request
// (same five-tuple, same transaction ID, arriving after the first
// request's response was stored) with the original response instead of re-running
// allocation side effects, per RFC 5766 §6.2's guidance that Allocate must
// tolerate retransmission.
type responseCache struct {
	mu      sync.Mutex
	entries map[Identifier]cachedResponse
}

func newResponseCache() *responseCache {
	return &responseCache{entries: make(map[Identifier]cachedResponse)}
}

func (c *responseCache) Put(id Identifier, tid [codec.TransactionIDSize]byte, raw []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = cachedResponse{tid: tid, raw: raw, expires: now.Add(responseCacheLifetime)}
}

func (c *responseCache) Get(id Identifier, tid [codec.TransactionIDSize]byte, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || !now.Before(e.expires) || e.tid != tid {
		return nil, false
	}
	return e.raw, true
}

func (c *responseCache) reap(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, id)
		}
	}
}
