package domain

import "context"

// PersistenceGateway saves and loads whole RoomState snapshots under a key.
// Implementations overwrite any previous snapshot for the key.
type PersistenceGateway interface {
	Save(ctx context.Context, key string, state RoomState) error
	// Load returns ok=false when nothing has been saved under key.
	Load(ctx context.Context, key string) (state RoomState, ok bool, err error)
}

// InventoryProvider exposes the items the user owns. It is read-only.
type InventoryProvider interface {
	OwnedItems(ctx context.Context) ([]CatalogItem, error)
}

// InventoryFunc adapts a function to InventoryProvider.
type InventoryFunc func(ctx context.Context) ([]CatalogItem, error)

// OwnedItems calls f.
func (f InventoryFunc) OwnedItems(ctx context.Context) ([]CatalogItem, error) { return f(ctx) }
