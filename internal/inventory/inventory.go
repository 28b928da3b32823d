// Package inventory bridges owned catalog items and the placement store.
package inventory

import (
	"context"
	"fmt"

	"roomcore/pkg/domain"
)

// Furniture markers. An owned item is placeable furniture only when both
// its category and its type carry this value.
const (
	CategoryFurniture = "furniture"
	TypeFurniture     = "furniture"
)

// UnplacedFurniture returns the owned furniture items that have no placed
// instance, in owned order. Placed records are matched by item id only.
func UnplacedFurniture(owned []domain.CatalogItem, placed []domain.PlacedItem) []domain.CatalogItem {
	taken := make(map[string]struct{}, len(placed))
	for _, p := range placed {
		if p.ItemID != "" {
			taken[p.ItemID] = struct{}{}
		}
	}
	out := []domain.CatalogItem{}
	for _, item := range owned {
		if item.Category != CategoryFurniture || item.Type != TypeFurniture {
			continue
		}
		if _, ok := taken[item.ID]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// PlacementReader exposes the placed collection.
type PlacementReader interface {
	AllItems() []domain.PlacedItem
}

// Bridge combines an ownership provider with the placement store.
type Bridge struct {
	provider domain.InventoryProvider
	placed   PlacementReader
}

// NewBridge constructs a Bridge.
func NewBridge(provider domain.InventoryProvider, placed PlacementReader) *Bridge {
	return &Bridge{provider: provider, placed: placed}
}

// Owned returns every owned catalog item.
func (b *Bridge) Owned(ctx context.Context) ([]domain.CatalogItem, error) {
	items, err := b.provider.OwnedItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load owned items: %w", err)
	}
	return items, nil
}

// Lookup returns the owned item with itemID or a NotFound error.
func (b *Bridge) Lookup(ctx context.Context, itemID string) (domain.CatalogItem, error) {
	items, err := b.Owned(ctx)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	for _, item := range items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return domain.CatalogItem{}, domain.NotFoundError{Kind: domain.KindItem, ID: itemID}
}

// UnplacedFurniture lists owned furniture without a placed instance.
func (b *Bridge) UnplacedFurniture(ctx context.Context) ([]domain.CatalogItem, error) {
	owned, err := b.Owned(ctx)
	if err != nil {
		return nil, err
	}
	return UnplacedFurniture(owned, b.placed.AllItems()), nil
}
