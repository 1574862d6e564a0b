package strategy

import (
	"fmt"
	"sort"

	"github.com/wonny/sevensplit/internal/contracts"
)

// Registry indexes available strategies by id.
// Strategies are registered explicitly at construction time — no runtime
// discovery, no reflection.
// ⭐ SSOT: 전략 조회는 레지스트리를 통해서만
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds a registry holding the four built-in strategies,
// each wired to the given settings provider for threshold lookups
func NewRegistry(settings contracts.SettingsProvider) *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(NewSevenSplit21(settings))
	r.Register(NewSevenSplitMini(settings))
	r.Register(NewDividend(settings))
	r.Register(NewValueInvesting(settings))
	return r
}

// Register adds a strategy; a duplicate id overwrites the previous entry
func (r *Registry) Register(s Strategy) {
	r.strategies[s.ID()] = s
}

// Get returns the strategy for an id
func (r *Registry) Get(id string) (Strategy, error) {
	s, ok := r.strategies[id]
	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s", id)
	}
	return s, nil
}

// IDs returns all registered strategy ids, sorted
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns metadata for every registered strategy, sorted by id
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.strategies))
	for _, id := range r.IDs() {
		infos = append(infos, Describe(r.strategies[id]))
	}
	return infos
}
