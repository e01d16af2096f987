package strategy

import (
	"context"
	"sort"
	"sync/atomic"

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

// Snapshot is an immutable view of the loaded strategy set for one evaluation
// epoch. Strategies are held in the deterministic priority order used for
// symbol-lock contention: ascending creation time, then id. Invalid strategies
// are flagged and excluded from Active, never partially run.
type Snapshot struct {
	active  []*domain.StrategySpec
	invalid map[string]error
}

// Active returns the validated strategies in stable priority order.
func (s *Snapshot) Active() []*domain.StrategySpec { return s.active }

// Invalid maps excluded strategy ids to the validation error that excluded them.
func (s *Snapshot) Invalid() map[string]error { return s.invalid }

// BuildSnapshot validates every spec against the variant set and produces an
// immutable snapshot. A validation failure excludes and flags that strategy
// without failing the whole build; a visibly flagged strategy beats a silently
// skipped one.
func BuildSnapshot(ctx context.Context, specs []*domain.StrategySpec, resolver VariantResolver, logger ports.Logger) *Snapshot {
	snap := &Snapshot{invalid: make(map[string]error)}
	seenNames := make(map[string]bool)

	for _, spec := range specs {
		if seenNames[spec.Name] {
			snap.invalid[spec.ID] = ports.ErrDuplicateStrategy
			logger.Warn(ctx, "Strategy excluded: duplicate name", map[string]interface{}{
				"strategyID": spec.ID, "name": spec.Name,
			})
			continue
		}
		seenNames[spec.Name] = true

		if err := Validate(spec, resolver); err != nil {
			snap.invalid[spec.ID] = err
			logger.Warn(ctx, "Strategy excluded: validation failed", map[string]interface{}{
				"strategyID": spec.ID, "name": spec.Name, "error": err.Error(),
			})
			continue
		}
		snap.active = append(snap.active, spec)
	}

	sort.SliceStable(snap.active, func(i, j int) bool {
		a, b := snap.active[i], snap.active[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return snap
}

// Registry holds the current snapshot. Reloading definitions builds a fresh
// snapshot and swaps it atomically; a snapshot is never mutated in place.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry holding an empty snapshot.
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(&Snapshot{invalid: map[string]error{}})
	return r
}

// Swap installs a new snapshot.
func (r *Registry) Swap(snap *Snapshot) { r.current.Store(snap) }

// Current returns the active snapshot.
func (r *Registry) Current() *Snapshot { return r.current.Load() }
