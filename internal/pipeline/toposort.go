package pipeline

import (
	"fmt"
	"slices"
	"sort"
)

// topoSort returns node indices in dependency order. depsFn(i) yields the nodes that must come
// before i. Among ready nodes the smallest index goes first, so the order is deterministic and
// keeps the declaration order wherever dependencies allow.
func topoSort(n int, depsFn func(i int) []int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}

	indeg := make([]int, n)
	out := make([][]int, n)

	for i := range n {
		for _, d := range depsFn(i) {
			if d < 0 || d >= n {
				return nil, fmt.Errorf("dependency index out of range: %d depends on %d", i, d)
			}

			indeg[i]++
			out[d] = append(out[d], i)
		}
	}

	var ready []int

	for i := range n {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)

	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]

		order = append(order, i)

		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				k := sort.SearchInts(ready, j)
				ready = slices.Insert(ready, k, j)
			}
		}
	}

	if len(order) != n {
		return nil, ErrCycle
	}

	return order, nil
}

// orderStages sorts stages by their Needs and assigns each a wave: one past the deepest wave
// among the stages it needs.
func orderStages(stages []Stage) ([]Stage, []int, error) {
	index := make(map[string]int, len(stages))

	for i, s := range stages {
		if _, dup := index[s.Name()]; dup {
			return nil, nil, fmt.Errorf("duplicate stage %q", s.Name())
		}

		index[s.Name()] = i
	}

	deps := make([][]int, len(stages))

	for i, s := range stages {
		for _, n := range s.Needs() {
			j, ok := index[n]
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s needs %q", ErrUnknownStage, s.Name(), n)
			}

			deps[i] = append(deps[i], j)
		}
	}

	order, err := topoSort(len(stages), func(i int) []int { return deps[i] })
	if err != nil {
		return nil, nil, err
	}

	sorted := make([]Stage, len(order))
	waves := make([]int, len(order))
	waveOf := make([]int, len(stages))

	for pos, i := range order {
		w := 0
		for _, d := range deps[i] {
			w = max(w, waveOf[d]+1)
		}

		waveOf[i] = w
		sorted[pos] = stages[i]
		waves[pos] = w
	}

	return sorted, waves, nil
}
