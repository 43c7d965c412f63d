package mapping

import (
	"errors"
	"fmt"
	"math"

	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/vehicle"
)

// Mapping errors.
var (
	ErrInvalidMapping = errors.New("invalid restriction mapping")
	ErrEmptyMapping   = errors.New("restriction mapping has no rules")
)

// Table maps a driving state and speed to restrictions.
// ok is false when the table has no entry for the input.
type Table interface {
	Lookup(state vehicle.DrivingState, speed float32) (flags restriction.Flags, ok bool)
}

// Provider loads a mapping table.
type Provider interface {
	Load() (Table, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func() (Table, error)

// Load calls f.
func (f ProviderFunc) Load() (Table, error) {
	return f()
}

// SpeedRange is a half-open speed interval [Min, Max) in m/s.
// A nil bound is open on that side.
type SpeedRange struct {
	Min *float32
	Max *float32
}

// Contains reports whether speed falls in the range. NaN is outside every
// bounded range.
func (r SpeedRange) Contains(speed float32) bool {
	return (r.Min == nil || speed >= *r.Min) && (r.Max == nil || speed < *r.Max)
}

// IsAny reports whether the range has no bounds.
func (r SpeedRange) IsAny() bool {
	return r.Min == nil && r.Max == nil
}

// String renders the range in interval notation.
func (r SpeedRange) String() string {
	if r.IsAny() {
		return "any"
	}
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = fmt.Sprintf("%g", *r.Min)
	}
	if r.Max != nil {
		hi = fmt.Sprintf("%g", *r.Max)
	}
	return fmt.Sprintf("[%s, %s)", lo, hi)
}

// Rule is a single mapping entry.
type Rule struct {
	State        vehicle.DrivingState
	Speed        SpeedRange
	Restrictions restriction.Flags

	// Line is the source line of the rule, 0 if not loaded from a file.
	Line int
}

// Matches reports whether the rule applies to the input.
func (r Rule) Matches(state vehicle.DrivingState, speed float32) bool {
	return r.State == state && r.Speed.Contains(speed)
}

// RuleTable is an ordered, immutable list of rules.
type RuleTable struct {
	rules []Rule
}

// NewRuleTable validates rules and builds a table.
func NewRuleTable(rules []Rule) (*RuleTable, error) {
	if len(rules) == 0 {
		return nil, ErrEmptyMapping
	}
	for i, r := range rules {
		if err := validateRule(r); err != nil {
			if r.Line > 0 {
				return nil, fmt.Errorf("line %d: %w", r.Line, err)
			}
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}

	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &RuleTable{rules: copied}, nil
}

func validateRule(r Rule) error {
	if r.State > vehicle.DrivingStateMoving {
		return fmt.Errorf("%w: driving state %d", ErrInvalidMapping, r.State)
	}
	if !r.Restrictions.IsValid() {
		return fmt.Errorf("%w: restrictions 0x%x", ErrInvalidMapping, uint16(r.Restrictions))
	}
	for _, b := range []*float32{r.Speed.Min, r.Speed.Max} {
		if b != nil && (math.IsNaN(float64(*b)) || math.IsInf(float64(*b), 0)) {
			return fmt.Errorf("%w: speed bound must be finite", ErrInvalidMapping)
		}
	}
	if r.Speed.Min != nil && r.Speed.Max != nil && *r.Speed.Min >= *r.Speed.Max {
		return fmt.Errorf("%w: speed min %g >= max %g", ErrInvalidMapping, *r.Speed.Min, *r.Speed.Max)
	}
	return nil
}

// Lookup returns the restrictions of the first matching rule.
func (t *RuleTable) Lookup(state vehicle.DrivingState, speed float32) (restriction.Flags, bool) {
	for _, r := range t.rules {
		if r.Matches(state, speed) {
			return r.Restrictions, true
		}
	}
	return 0, false
}

// Rules returns a copy of the rules in evaluation order.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Len returns the number of rules.
func (t *RuleTable) Len() int {
	return len(t.rules)
}

// Compile-time interface satisfaction checks.
var (
	_ Table    = (*RuleTable)(nil)
	_ Table    = DefaultTable{}
	_ Provider = ProviderFunc(nil)
)
