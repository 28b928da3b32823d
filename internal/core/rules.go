package core

import (
	"context"

	"roomcore/pkg/domain"
)

// PlacementView is the read-only room state handed to rules.
type PlacementView interface {
	Zone(zoneID string) (domain.Zone, error)
	ItemsInZone(zoneID string) []domain.PlacedItem
}

// Rule evaluates a requested placement change before it is applied.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view PlacementView, change domain.Change) (domain.Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine warns when an item is put into a zone that does not
// list its type.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewZonePlaceableRule(domain.SeverityWarn))
	return engine
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names in evaluation order.
func (e *RulesEngine) Rules() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name())
	}
	return names
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view PlacementView, change domain.Change) (domain.Result, error) {
	var combined domain.Result
	if e == nil {
		return combined, nil
	}
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, change)
		if err != nil {
			return domain.Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
