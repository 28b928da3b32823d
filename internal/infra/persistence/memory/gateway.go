// Package memory provides a process-local persistence gateway for tests
// and ephemeral runs. Snapshots are kept JSON-encoded so callers observe
// the same isolation and decoding as with durable gateways.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"roomcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistenceGateway = (*Gateway)(nil)

// Gateway stores snapshots in a map keyed by snapshot key.
type Gateway struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	saves int
}

// New returns an empty gateway.
func New() *Gateway {
	return &Gateway{blobs: make(map[string][]byte)}
}

// Save replaces the snapshot stored under key.
func (g *Gateway) Save(_ context.Context, key string, state domain.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	g.mu.Lock()
	g.blobs[key] = data
	g.saves++
	g.mu.Unlock()
	return nil
}

// Load returns the snapshot stored under key.
func (g *Gateway) Load(_ context.Context, key string) (domain.RoomState, bool, error) {
	g.mu.RLock()
	data, ok := g.blobs[key]
	g.mu.RUnlock()
	if !ok {
		return domain.RoomState{}, false, nil
	}
	var state domain.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.RoomState{}, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return state, true, nil
}

// Delete drops the snapshot stored under key.
func (g *Gateway) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.blobs, key)
	g.mu.Unlock()
	return nil
}

// Seed stores a raw payload under key, bypassing encoding. Used to load
// documents written by older versions.
func (g *Gateway) Seed(key string, payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	g.mu.Lock()
	g.blobs[key] = cp
	g.mu.Unlock()
}

// Keys lists stored snapshot keys in order.
func (g *Gateway) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys := make([]string, 0, len(g.blobs))
	for k := range g.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Saves reports how many snapshots have been written.
func (g *Gateway) Saves() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.saves
}
