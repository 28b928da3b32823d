package domain

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether a placement proceeds.
const (
	// SeverityBlock rejects the placement before the store is touched.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows the placement.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Action indicates the kind of placement mutation.
type Action string

// Placement actions captured in audit and rule evaluation.
const (
	ActionPlace  Action = "place"
	ActionMove   Action = "move"
	ActionZone   Action = "zone"
	ActionRemove Action = "remove"
)

// Change describes a requested placement mutation. Before is nil for
// placements; After is nil for removals.
type Change struct {
	Action Action
	Item   CatalogSnapshot
	ZoneID string
	Before *PlacedItem
	After  *PlacedItem
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	ZoneID   string
	ItemID   string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "placement blocked by rules"
}
