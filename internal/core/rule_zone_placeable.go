package core

import (
	"context"
	"fmt"

	"roomcore/pkg/domain"
)

// NewZonePlaceableRule reports items whose type is not listed by the target
// zone. Zones without PlaceableTypes accept anything.
func NewZonePlaceableRule(severity domain.Severity) Rule {
	return zonePlaceableRule{severity: severity}
}

type zonePlaceableRule struct {
	severity domain.Severity
}

func (zonePlaceableRule) Name() string { return "zone_placeable" }

func (r zonePlaceableRule) Evaluate(_ context.Context, view PlacementView, change domain.Change) (domain.Result, error) {
	if change.Action == domain.ActionRemove || change.ZoneID == "" {
		return domain.Result{}, nil
	}
	zone, err := view.Zone(change.ZoneID)
	if err != nil || len(zone.PlaceableTypes) == 0 || zone.Accepts(change.Item.Type) {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     r.Name(),
		Severity: r.severity,
		Message:  fmt.Sprintf("%s (%s) is not placeable in %s", change.Item.Name, change.Item.Type, zone.Name),
		ZoneID:   zone.ID,
		ItemID:   itemIDOf(change),
	}}}, nil
}

func itemIDOf(change domain.Change) string {
	switch {
	case change.After != nil:
		return change.After.ItemID
	case change.Before != nil:
		return change.Before.ItemID
	}
	return ""
}
