package core

import (
	"context"
	"fmt"

	"roomcore/pkg/domain"
)

// NewZoneCapacityRule blocks changes that would put more than limit items
// into a single zone. A limit below one disables the rule.
func NewZoneCapacityRule(limit int) Rule {
	return zoneCapacityRule{limit: limit}
}

type zoneCapacityRule struct {
	limit int
}

func (zoneCapacityRule) Name() string { return "zone_capacity" }

func (r zoneCapacityRule) Evaluate(_ context.Context, view PlacementView, change domain.Change) (domain.Result, error) {
	if r.limit < 1 || change.Action == domain.ActionRemove || change.ZoneID == "" {
		return domain.Result{}, nil
	}
	if change.Before != nil && change.Before.ZoneID == change.ZoneID {
		return domain.Result{}, nil
	}
	count := len(view.ItemsInZone(change.ZoneID)) + 1
	if count <= r.limit {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     r.Name(),
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf("zone %s over capacity: %d/%d items", change.ZoneID, count, r.limit),
		ZoneID:   change.ZoneID,
		ItemID:   itemIDOf(change),
	}}}, nil
}
