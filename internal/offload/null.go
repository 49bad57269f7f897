// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package offload

import (
	"sync"

	"github.com/pion/logging"
)

// NullEngine is the default Engine: it keeps exactly the bookkeeping a
// real accelerator would need to decide what's already offloaded, but
// never touches the kernel. It's what every server runs unless a
// platform-specific engine is configured in its place.
type NullEngine struct {
	mu        sync.Mutex
	conntrack map[Connection]Connection
	log       logging.LeveledLogger
}

// NewNullEngine creates an uninitialized NullEngine.
func NewNullEngine(log logging.LeveledLogger) *NullEngine {
	return &NullEngine{conntrack: make(map[Connection]Connection), log: log}
}

// Init is a no-op for NullEngine.
func (e *NullEngine) Init() error {
	if e.log != nil {
		e.log.Debug("offload: null engine init")
	}
	return nil
}

// Shutdown is a no-op for NullEngine.
func (e *NullEngine) Shutdown() {
	if e.log != nil {
		e.log.Debug("offload: null engine shutdown")
	}
}

// Upsert records the pairing without installing anything in the kernel.
func (e *NullEngine) Upsert(client, peer Connection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.log != nil {
		e.log.Debugf("offload: would accelerate %s <-> %s", client, peer)
	}
	e.conntrack[client] = peer
	return nil
}

// Remove drops a previously recorded pairing.
func (e *NullEngine) Remove(client, peer Connection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.conntrack[client]; !ok {
		return ErrConnectionNotFound
	}
	delete(e.conntrack, client)
	return nil
}

// List returns every recorded pairing.
func (e *NullEngine) List() (map[Connection]Connection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[Connection]Connection, len(e.conntrack))
	for k, v := range e.conntrack {
		out[k] = v
	}
	return out, nil
}
