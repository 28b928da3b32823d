// Package domain defines the placement model shared by the scene registry,
// the placement store and the persistence gateways. It carries no behaviour
// beyond value helpers and must not import internal packages.
package domain

import (
	"math"
	"time"
)

// Coordinate space limits. All positions and bounds are percentages of the
// scene surface with the origin at the bottom-left corner.
const (
	CoordMin = 0.0
	CoordMax = 100.0
)

// Point is a position in a scene's normalized coordinate space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Clamp returns the point with both axes limited to [0,100].
func (p Point) Clamp() Point {
	return Point{X: clamp(p.X), Y: clamp(p.Y)}
}

// Finite reports whether neither coordinate is NaN or infinite.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// InRange reports whether p is finite and lies within [0,100] on both axes.
func (p Point) InRange() bool {
	return p.Finite() &&
		p.X >= CoordMin && p.X <= CoordMax &&
		p.Y >= CoordMin && p.Y <= CoordMax
}

func clamp(v float64) float64 {
	if v < CoordMin {
		return CoordMin
	}
	if v > CoordMax {
		return CoordMax
	}
	return v
}

// Bounds is an axis-aligned rectangle in normalized scene coordinates.
type Bounds struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Contains reports whether p lies inside the rectangle, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.Width &&
		p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Valid reports whether the rectangle has non-negative extent and lies
// entirely within [0,100]x[0,100].
func (b Bounds) Valid() bool {
	if b.Width < 0 || b.Height < 0 {
		return false
	}
	return b.X >= CoordMin && b.Y >= CoordMin &&
		b.X+b.Width <= CoordMax && b.Y+b.Height <= CoordMax
}

// Zone is a rectangular region of a scene that accepts certain item types.
// PlaceableTypes is advisory: the placement store never enforces it.
type Zone struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Icon            string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	Bounds          Bounds   `json:"bounds" yaml:"bounds"`
	DefaultPosition Point    `json:"default_position" yaml:"default_position"`
	PlaceableTypes  []string `json:"placeable_types,omitempty" yaml:"placeable_types,omitempty"`
	DefaultItems    []string `json:"default_items,omitempty" yaml:"default_items,omitempty"`
}

// Accepts reports whether itemType is listed in PlaceableTypes.
func (z Zone) Accepts(itemType string) bool {
	for _, t := range z.PlaceableTypes {
		if t == itemType {
			return true
		}
	}
	return false
}

// Scene is a top-level decorating surface. Zone order is resolution order.
type Scene struct {
	ID              string  `json:"id" yaml:"id"`
	Name            string  `json:"name" yaml:"name"`
	Type            string  `json:"type" yaml:"type"`
	WidthMultiplier float64 `json:"width_multiplier" yaml:"width_multiplier"`
	Zones           []Zone  `json:"zones" yaml:"zones"`
}

// CatalogItem is the catalog/ownership collaborator's view of an item.
type CatalogItem struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name,omitempty" yaml:"name,omitempty"`
	Category   string            `json:"category" yaml:"category"`
	Type       string            `json:"type" yaml:"type"`
	Icon       string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	Price      int               `json:"price,omitempty" yaml:"price,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// CatalogSnapshot is the copy of a catalog item's display attributes taken
// when an instance is placed. Later catalog edits do not touch it.
type CatalogSnapshot struct {
	Name       string            `json:"name,omitempty"`
	Category   string            `json:"category,omitempty"`
	Type       string            `json:"type,omitempty"`
	Icon       string            `json:"icon,omitempty"`
	Price      int               `json:"price,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SnapshotOf captures the display attributes of item.
func SnapshotOf(item CatalogItem) CatalogSnapshot {
	return CatalogSnapshot{
		Name:       item.Name,
		Category:   item.Category,
		Type:       item.Type,
		Icon:       item.Icon,
		Price:      item.Price,
		Attributes: cloneAttributes(item.Attributes),
	}
}

// PlacedItem is one placement of a catalog item. Only Position and ZoneID
// change after creation.
type PlacedItem struct {
	InstanceID string          `json:"instance_id"`
	ItemID     string          `json:"item_id"`
	ZoneID     string          `json:"zone_id"`
	Position   Point           `json:"position"`
	PlacedAt   time.Time       `json:"placed_at"`
	Snapshot   CatalogSnapshot `json:"snapshot"`
}

// Clone returns a deep copy of the item.
func (p PlacedItem) Clone() PlacedItem {
	cp := p
	cp.Snapshot.Attributes = cloneAttributes(p.Snapshot.Attributes)
	return cp
}

// RoomState is the persisted aggregate that embeds the placed-item
// sequence. It is always saved and loaded as a whole.
type RoomState struct {
	Version int          `json:"version"`
	SavedAt time.Time    `json:"saved_at"`
	Items   []PlacedItem `json:"items"`
}

// StateVersion is the current RoomState schema version.
const StateVersion = 2

// CloneItems deep-copies a placed-item sequence preserving order.
func CloneItems(items []PlacedItem) []PlacedItem {
	if items == nil {
		return nil
	}
	out := make([]PlacedItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func cloneAttributes(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
