package domain

import (
	"encoding/json"
	"time"
)

// placedItemWire accepts both the current record layout and the flat
// camelCase layout written before instance ids and scenes existed, where
// the catalog attributes were spread into the record itself.
type placedItemWire struct {
	InstanceID string           `json:"instance_id"`
	ItemID     string           `json:"item_id"`
	ZoneID     string           `json:"zone_id"`
	Position   Point            `json:"position"`
	PlacedAt   time.Time        `json:"placed_at"`
	Snapshot   *CatalogSnapshot `json:"snapshot"`

	LegacyInstanceID string     `json:"instanceId"`
	LegacyItemID     string     `json:"itemId"`
	LegacyID         string     `json:"id"`
	LegacyZone       string     `json:"zone"`
	LegacyPlacedAt   *time.Time `json:"placedAt"`
	Name             string     `json:"name"`
	Category         string     `json:"category"`
	Type             string     `json:"type"`
	Icon             string     `json:"icon"`
	Price            int        `json:"price"`
}

// UnmarshalJSON decodes either record layout. Legacy records keep an empty
// InstanceID when they never had one; the placement store assigns it on
// restore. The item id falls back to the legacy catalog id.
func (p *PlacedItem) UnmarshalJSON(data []byte) error {
	var w placedItemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := PlacedItem{
		InstanceID: firstNonEmpty(w.InstanceID, w.LegacyInstanceID),
		ItemID:     firstNonEmpty(w.ItemID, w.LegacyItemID, w.LegacyID),
		ZoneID:     firstNonEmpty(w.ZoneID, w.LegacyZone),
		Position:   w.Position,
		PlacedAt:   w.PlacedAt,
	}
	if out.PlacedAt.IsZero() && w.LegacyPlacedAt != nil {
		out.PlacedAt = w.LegacyPlacedAt.UTC()
	}
	if w.Snapshot != nil {
		out.Snapshot = *w.Snapshot
	} else {
		out.Snapshot = CatalogSnapshot{
			Name:     w.Name,
			Category: w.Category,
			Type:     w.Type,
			Icon:     w.Icon,
			Price:    w.Price,
		}
	}
	*p = out
	return nil
}

// UnmarshalJSON decodes a room state, accepting the legacy houseItems key
// used by version 1 records.
func (s *RoomState) UnmarshalJSON(data []byte) error {
	type plain RoomState
	var w struct {
		plain
		HouseItems []PlacedItem `json:"houseItems"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := RoomState(w.plain)
	if out.Items == nil && w.HouseItems != nil {
		out.Items = w.HouseItems
		if out.Version == 0 {
			out.Version = 1
		}
	}
	*s = out
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
