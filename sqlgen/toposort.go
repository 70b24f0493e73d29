package sqlgen

import (
	"strings"
)

// SQL renders every node in one valid topological order and
// concatenates the non-empty results, each followed by one newline.
// The tie-break among incomparable nodes is the node insertion index,
// which makes the output stable across rebuilds of the same entity
// set. A cycle is a hard error and produces no partial output.
func (g *Graph) SQL() (string, error) {
	order, err := g.topoSort()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, idx := range order {
		sql, err := g.render(idx)
		if err != nil {
			return "", err
		}
		if sql == "" {
			continue
		}
		b.WriteString(sql)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// topoSort is Kahn's algorithm with a deterministic ready-node choice:
// the lowest insertion index among nodes with no unsatisfied
// predecessors is always taken next.
func (g *Graph) topoSort() ([]int, error) {
	indegree := make([]int, len(g.nodes))
	for _, e := range g.edges {
		indegree[e.to]++
	}
	done := make([]bool, len(g.nodes))
	order := make([]int, 0, len(g.nodes))
	for len(order) < len(g.nodes) {
		next := -1
		for idx := range g.nodes {
			if !done[idx] && indegree[idx] == 0 {
				next = idx
				break
			}
		}
		if next < 0 {
			var remaining []string
			for idx := range g.nodes {
				if !done[idx] {
					remaining = append(remaining, identify(g.nodes[idx]))
				}
			}
			return nil, &CycleError{Node: remaining[0], Remaining: remaining}
		}
		done[next] = true
		order = append(order, next)
		for _, e := range g.edges {
			if e.from == next {
				indegree[e.to]--
			}
		}
	}
	return order, nil
}
