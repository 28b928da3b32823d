// Package blob persists room snapshots as JSON objects in a blob store.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	blobstore "roomcore/internal/blob"
	"roomcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistenceGateway = (*Gateway)(nil)

// DefaultPrefix is the object key prefix for snapshots.
const DefaultPrefix = "snapshots/"

// Gateway writes one object per snapshot key.
type Gateway struct {
	store  blobstore.Store
	prefix string
}

// New wraps a blob store.
func New(store blobstore.Store, prefix string) *Gateway {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Gateway{store: store, prefix: prefix}
}

func (g *Gateway) objectKey(key string) string { return g.prefix + key + ".json" }

// Save uploads the snapshot, replacing the previous object.
func (g *Gateway) Save(ctx context.Context, key string, state domain.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = g.store.Put(ctx, g.objectKey(key), bytes.NewReader(data), blobstore.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"version": strconv.Itoa(state.Version),
			"items":   strconv.Itoa(len(state.Items)),
		},
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return nil
}

// Load downloads the snapshot; a missing object is not an error.
func (g *Gateway) Load(ctx context.Context, key string) (domain.RoomState, bool, error) {
	_, rc, err := g.store.Get(ctx, g.objectKey(key))
	if errors.Is(err, blobstore.ErrNotExist) {
		return domain.RoomState{}, false, nil
	}
	if err != nil {
		return domain.RoomState{}, false, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.RoomState{}, false, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	var state domain.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.RoomState{}, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return state, true, nil
}

// Delete removes the snapshot object.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	if _, err := g.store.Delete(ctx, g.objectKey(key)); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// Keys lists the snapshot keys present in the store.
func (g *Gateway) Keys(ctx context.Context) ([]string, error) {
	infos, err := g.store.List(ctx, g.prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		k := info.Key[len(g.prefix):]
		if len(k) > len(".json") && k[len(k)-len(".json"):] == ".json" {
			keys = append(keys, k[:len(k)-len(".json")])
		}
	}
	return keys, nil
}

// Driver reports the backing blob driver.
func (g *Gateway) Driver() blobstore.Driver { return g.store.Driver() }
