// Package depgraph builds the dependency graph over a library index.
// Nodes are declarations; an edge A→B records that B's type or value
// uses A, so path queries answer "what does this build on".
package depgraph

import (
	"fmt"
	"iter"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"leangraph/internal/decl"
	"leangraph/internal/index"
)

// DefaultComponentCacheSize bounds the ancestor-closure cache.
const DefaultComponentCacheSize = 1024

// CycleDetectedError reports a dependency cycle, which a well-formed
// corpus never contains. Names holds the members of one detected
// cycle in walk order.
type CycleDetectedError struct {
	Names []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Names, " -> "))
}

// Edge is one directed dependency edge, From the dependency, To the
// dependent.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type node struct {
	decl *decl.Declaration
	succ []string // dependents
	pred []string // dependencies
}

// Graph is a built dependency graph. It is read-only after Build;
// pruning and component extraction return new graphs.
type Graph struct {
	index *index.LibraryIndex
	order []string
	nodes map[string]*node
	edges []Edge
	opts  options

	components *lru.Cache[string, []string]
}

type options struct {
	skipAuxiliary  bool
	skipStructural bool
	allowCycles    bool
	cacheSize      int
}

// BuildOption adjusts graph construction.
type BuildOption func(*options)

// SkipAuxiliary drops declarations whose name carries a generated
// helper suffix (".rec", ".cases_on", ...).
func SkipAuxiliary() BuildOption {
	return func(o *options) { o.skipAuxiliary = true }
}

// SkipStructural drops structure fields, constructors and recursors.
func SkipStructural() BuildOption {
	return func(o *options) { o.skipStructural = true }
}

// AllowCycles disables the acyclicity check at build time. TopoSort
// still reports cycles when asked.
func AllowCycles() BuildOption {
	return func(o *options) { o.allowCycles = true }
}

// WithComponentCacheSize sets the ancestor-closure cache capacity.
// Values below 1 keep the default.
func WithComponentCacheSize(n int) BuildOption {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

func (o options) skip(d *decl.Declaration) bool {
	if o.skipAuxiliary && hasAuxSuffix(d.Name) {
		return true
	}
	if o.skipStructural && (d.Flags.IsStructureField || d.Flags.IsConstructor || d.Flags.IsRecursor) {
		return true
	}
	return false
}

// Build constructs the graph for every declaration in ix. For each
// name N referenced by declaration D, it adds edge N→D when N is a
// node; a reference to an absent name falls back to its parent name
// when that parent is a node, and is dropped otherwise. Self-edges are
// never added. Unless AllowCycles is set, a cyclic result fails with
// CycleDetectedError.
func Build(ix *index.LibraryIndex, opts ...BuildOption) (*Graph, error) {
	o := options{cacheSize: DefaultComponentCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	return build(ix, o)
}

func build(ix *index.LibraryIndex, o options) (*Graph, error) {
	g := &Graph{
		index: ix,
		nodes: make(map[string]*node, ix.Len()),
		opts:  o,
	}
	for d := range ix.Declarations() {
		if o.skip(d) {
			continue
		}
		g.order = append(g.order, d.Name)
		g.nodes[d.Name] = &node{decl: d}
	}

	for _, name := range g.order {
		n := g.nodes[name]
		refs := n.decl.References()
		seen := make(map[string]struct{}, len(refs))
		for _, ref := range refs {
			dep := ref
			if _, ok := g.nodes[dep]; !ok {
				stripped := decl.ParentName(dep)
				if stripped == "" || stripped == name {
					continue
				}
				if _, ok := g.nodes[stripped]; !ok {
					continue
				}
				dep = stripped
			}
			if dep == name {
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			g.addEdge(dep, name)
		}
	}

	if !o.allowCycles {
		if _, err := g.TopoSort(); err != nil {
			return nil, err
		}
	}

	cache, err := lru.New[string, []string](o.cacheSize)
	if err != nil {
		return nil, err
	}
	g.components = cache
	return g, nil
}

func (g *Graph) addEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
	g.nodes[from].succ = append(g.nodes[from].succ, to)
	g.nodes[to].pred = append(g.nodes[to].pred, from)
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.order) }

// EdgeCount returns the edge count.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// NodeNames returns the node names in build order.
func (g *Graph) NodeNames() []string {
	return append([]string(nil), g.order...)
}

// Decl returns the declaration behind a node.
func (g *Graph) Decl(name string) (*decl.Declaration, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, false
	}
	return n.decl, true
}

// Edges iterates the edges in build order.
func (g *Graph) Edges() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		for _, e := range g.edges {
			if !yield(e) {
				return
			}
		}
	}
}

// Dependents returns the names that directly use name.
func (g *Graph) Dependents(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return append([]string(nil), n.succ...)
}

// Dependencies returns the names that name directly uses.
func (g *Graph) Dependencies(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return append([]string(nil), n.pred...)
}

// PruneFoundations returns a new graph without the declarations
// matched by c: the backing index is pruned first and edges are
// rebuilt over the reduced node set, so the result is identical to
// building from an index pruned up front.
func (g *Graph) PruneFoundations(c index.Criteria) (*Graph, error) {
	return build(g.index.Prune(c), g.opts)
}
