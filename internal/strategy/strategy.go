// Package strategy defines the screening strategy abstraction and the four
// built-in rule sets. A strategy is a named, versioned, ordered list of
// numbered conditions; ApplyFilters evaluates every condition against a
// canonical stock record and reports the overall pass plus per-condition
// detail for funnel statistics.
package strategy

import (
	"context"

	"github.com/wonny/sevensplit/internal/contracts"
)

// Strategy is a pluggable set of screening conditions.
// ⭐ SSOT: 전략 구현은 이 인터페이스로만 노출
type Strategy interface {
	ID() string
	Name() string
	Description() string
	Category() string
	Version() string

	// RequiredData declares which external sources the collector must hit
	RequiredData() contracts.DataSet

	// Conditions maps 1-based condition numbers to human labels.
	// The key set is fixed per strategy version.
	Conditions() map[int]string

	// ApplyFilters evaluates every condition and returns the overall pass
	// plus the full detail map. The detail key set always equals the
	// Conditions key set, even when an early hard exclusion already decided
	// the overall outcome — funnel statistics need every entry.
	ApplyFilters(ctx context.Context, record *contracts.StockRecord) (bool, contracts.ConditionResult)
}

// Info is the strategy metadata surfaced to CLI and API listings
type Info struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Category       string         `json:"category"`
	Version        string         `json:"version"`
	ConditionCount int            `json:"conditions_count"`
	Conditions     map[int]string `json:"conditions"`
}

// Describe builds Info from a strategy
func Describe(s Strategy) Info {
	conditions := s.Conditions()
	return Info{
		ID:             s.ID(),
		Name:           s.Name(),
		Description:    s.Description(),
		Category:       s.Category(),
		Version:        s.Version(),
		ConditionCount: len(conditions),
		Conditions:     conditions,
	}
}

// Nullable numeric comparisons. A nil input always fails the condition,
// never skips it.

func geFloat(v *float64, min float64) bool {
	return v != nil && *v >= min
}

func ltFloat(v *float64, max float64) bool {
	return v != nil && *v < max
}

func gePositive(v *float64, min float64) bool {
	return v != nil && *v > 0 && *v >= min
}

func inRange(v *float64, lo, hi float64) bool {
	return v != nil && *v >= lo && *v <= hi
}
