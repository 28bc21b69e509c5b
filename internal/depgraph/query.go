package depgraph

import (
	"sort"

	"leangraph/internal/decl"
	"leangraph/internal/index"
)

// TopoSort returns the node names in a topological order, every
// dependency before its dependents. Ties break by build order, so the
// result is deterministic. A cyclic graph fails with
// CycleDetectedError naming one cycle.
func (g *Graph) TopoSort() ([]string, error) {
	indeg := make(map[string]int, len(g.order))
	for _, name := range g.order {
		indeg[name] = len(g.nodes[name].pred)
	}

	queue := make([]string, 0, len(g.order))
	for _, name := range g.order {
		if indeg[name] == 0 {
			queue = append(queue, name)
		}
	}

	sorted := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		sorted = append(sorted, cur)
		for _, next := range g.nodes[cur].succ {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(sorted) != len(g.order) {
		return nil, &CycleDetectedError{Names: g.cycleFrom(indeg)}
	}
	return sorted, nil
}

// cycleFrom extracts one concrete cycle from the nodes Kahn's
// algorithm could not drain. Every remaining node has a predecessor
// among the remainder, so walking predecessors must revisit a node.
func (g *Graph) cycleFrom(indeg map[string]int) []string {
	var start string
	for _, name := range g.order {
		if indeg[name] > 0 {
			start = name
			break
		}
	}

	pos := map[string]int{}
	var walk []string
	cur := start
	for {
		if at, seen := pos[cur]; seen {
			return append([]string(nil), walk[at:]...)
		}
		pos[cur] = len(walk)
		walk = append(walk, cur)
		for _, p := range g.nodes[cur].pred {
			if indeg[p] > 0 {
				cur = p
				break
			}
		}
	}
}

// Ancestors returns every node with a directed path to name, sorted.
// The name itself is not included.
func (g *Graph) Ancestors(name string) ([]string, error) {
	closure, err := g.closure(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(closure)-1)
	for _, n := range closure {
		if n != name {
			out = append(out, n)
		}
	}
	return out, nil
}

// ComponentOf returns the subgraph induced by name and all of its
// ancestors, rebuilt with the same options as g. An unknown name
// fails with NotFoundError.
func (g *Graph) ComponentOf(name string) (*Graph, error) {
	closure, err := g.closure(name)
	if err != nil {
		return nil, err
	}
	members := make(map[string]struct{}, len(closure))
	for _, n := range closure {
		members[n] = struct{}{}
	}
	ds := make([]*decl.Declaration, 0, len(members))
	for _, n := range g.order {
		if _, ok := members[n]; ok {
			ds = append(ds, g.nodes[n].decl)
		}
	}
	sub, err := index.FromDeclarations(g.index.Label(), ds)
	if err != nil {
		return nil, err
	}
	return build(sub, g.opts)
}

// closure returns name plus its ancestors, cached per name.
func (g *Graph) closure(name string) ([]string, error) {
	if _, ok := g.nodes[name]; !ok {
		return nil, &index.NotFoundError{Name: name}
	}
	if cached, ok := g.components.Get(name); ok {
		return cached, nil
	}

	seen := map[string]struct{}{name: {}}
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range g.nodes[cur].pred {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, p)
		}
	}

	closure := make([]string, 0, len(seen))
	for n := range seen {
		closure = append(closure, n)
	}
	sort.Strings(closure)
	g.components.Add(name, closure)
	return closure, nil
}
