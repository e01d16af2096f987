package indicator

import (
	"fmt"
	"sort"

	"signalPilot/internal/ports"
)

// validateGraph checks the variant dependency graph for dangling references
// and cycles. Both are load-time errors; no runtime evaluation ever walks an
// unchecked edge.
func validateGraph(variants map[string]*Variant) error {
	const (
		white = iota // unvisited
		grey         // on the current DFS path
		black        // fully explored
	)
	color := make(map[string]int, len(variants))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch color[id] {
		case grey:
			return fmt.Errorf("%w: %v -> %s", ports.ErrDependencyCycle, path, id)
		case black:
			return nil
		}
		color[id] = grey
		v := variants[id]
		for _, dep := range v.DependsOn() {
			if _, ok := variants[dep]; !ok {
				return fmt.Errorf("%w: variant %s depends on %q", ports.ErrDanglingVariant, id, dep)
			}
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}

	// Stable iteration order keeps validation errors reproducible.
	ids := make([]string, 0, len(variants))
	for id := range variants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := visit(id, nil); err != nil {
			return err
		}
	}
	return nil
}
