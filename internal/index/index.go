// Package index holds the library index: the name-keyed, ingestion-
// ordered collection of declarations built from one crawl session.
// Indexes are immutable once built; prune returns a new index sharing
// the same declarations.
package index

import (
	"fmt"
	"iter"
	"strings"

	"leangraph/internal/decl"
	"leangraph/internal/record"
)

// NotFoundError reports a lookup or query on an absent name. It never
// invalidates the index it came from.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("declaration %q not found", e.Name)
}

// LibraryIndex maps qualified names to declarations for one crawl.
type LibraryIndex struct {
	label string
	names []string
	decls map[string]*decl.Declaration
}

// IngestOption adjusts ingestion behavior.
type IngestOption func(*ingestConfig)

type ingestConfig struct {
	aggregateConstructors bool
}

// WithConstructorAggregation folds each constructor's references and
// sizes into its parent declaration after all records build, removing
// parent self-references. Constructors stay in the index.
func WithConstructorAggregation() IngestOption {
	return func(c *ingestConfig) { c.aggregateConstructors = true }
}

// Ingest drains the scanner, building every declaration. It fails as a
// whole on the first malformed record or invalid declaration: no
// partial index is returned.
func Ingest(label string, sc *record.Scanner, opts ...IngestOption) (*LibraryIndex, error) {
	var ds []*decl.Declaration
	for sc.Scan() {
		d, err := decl.Build(sc.Record())
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return FromDeclarations(label, ds, opts...)
}

// FromDeclarations builds an index from already-built declarations,
// preserving their order. It enforces name uniqueness.
func FromDeclarations(label string, ds []*decl.Declaration, opts ...IngestOption) (*LibraryIndex, error) {
	var cfg ingestConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ix := &LibraryIndex{
		label: label,
		names: make([]string, 0, len(ds)),
		decls: make(map[string]*decl.Declaration, len(ds)),
	}
	for _, d := range ds {
		if _, dup := ix.decls[d.Name]; dup {
			return nil, &decl.InvalidDeclarationError{Name: d.Name, Reason: "duplicate declaration name"}
		}
		ix.names = append(ix.names, d.Name)
		ix.decls[d.Name] = d
	}
	if cfg.aggregateConstructors {
		ix.aggregateConstructors()
	}
	return ix, nil
}

// Label returns the index's display label.
func (ix *LibraryIndex) Label() string { return ix.label }

// Len returns the number of declarations.
func (ix *LibraryIndex) Len() int { return len(ix.names) }

// Has reports whether name is present.
func (ix *LibraryIndex) Has(name string) bool {
	_, ok := ix.decls[name]
	return ok
}

// Lookup returns the declaration for name or a NotFoundError.
func (ix *LibraryIndex) Lookup(name string) (*decl.Declaration, error) {
	d, ok := ix.decls[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return d, nil
}

// Declarations iterates the index in ingestion order.
func (ix *LibraryIndex) Declarations() iter.Seq[*decl.Declaration] {
	return func(yield func(*decl.Declaration) bool) {
		for _, name := range ix.names {
			if !yield(ix.decls[name]) {
				return
			}
		}
	}
}

// Names returns the declaration names in ingestion order.
func (ix *LibraryIndex) Names() []string {
	return append([]string(nil), ix.names...)
}

// Criteria selects declarations to exclude: by file-path substring, by
// name prefix, or by exact name. The three sets compose as a union; a
// declaration is removed when it matches any of them.
type Criteria struct {
	FileSubstrings []string `json:"file_substrings,omitempty" yaml:"file_substrings"`
	NamePrefixes   []string `json:"name_prefixes,omitempty" yaml:"name_prefixes"`
	Names          []string `json:"names,omitempty" yaml:"names"`
}

// Empty reports whether the criteria exclude nothing.
func (c Criteria) Empty() bool {
	return len(c.FileSubstrings) == 0 && len(c.NamePrefixes) == 0 && len(c.Names) == 0
}

// Union combines two criteria sets.
func (c Criteria) Union(other Criteria) Criteria {
	return Criteria{
		FileSubstrings: append(append([]string(nil), c.FileSubstrings...), other.FileSubstrings...),
		NamePrefixes:   append(append([]string(nil), c.NamePrefixes...), other.NamePrefixes...),
		Names:          append(append([]string(nil), c.Names...), other.Names...),
	}
}

// Prune returns a new index without the declarations matching c. The
// kept declarations are the original instances, unchanged; the receiver
// stays valid.
func (ix *LibraryIndex) Prune(c Criteria) *LibraryIndex {
	exact := make(map[string]struct{}, len(c.Names))
	for _, n := range c.Names {
		exact[n] = struct{}{}
	}
	drop := func(d *decl.Declaration) bool {
		if _, hit := exact[d.Name]; hit {
			return true
		}
		for _, p := range c.NamePrefixes {
			if strings.HasPrefix(d.Name, p) {
				return true
			}
		}
		for _, s := range c.FileSubstrings {
			if strings.Contains(d.File, s) {
				return true
			}
		}
		return false
	}

	out := &LibraryIndex{
		label: ix.label,
		decls: make(map[string]*decl.Declaration, len(ix.names)),
	}
	for _, name := range ix.names {
		d := ix.decls[name]
		if drop(d) {
			continue
		}
		out.names = append(out.names, name)
		out.decls[name] = d
	}
	return out
}

// aggregateConstructors rewrites each constructor's parent with the
// constructor's references and size counters folded in. It runs before
// the index is sealed, so the published declarations stay immutable.
func (ix *LibraryIndex) aggregateConstructors() {
	for _, name := range ix.names {
		d := ix.decls[name]
		if !d.Flags.IsConstructor || d.Parent == "" {
			continue
		}
		parent, ok := ix.decls[d.Parent]
		if !ok {
			continue
		}
		p := parent.Clone()
		p.TypeUsesProofs = mergeNames(p.TypeUsesProofs, d.TypeUsesProofs, p.Name)
		p.TypeUsesOthers = mergeNames(p.TypeUsesOthers, d.TypeUsesOthers, p.Name)
		p.ValueUsesProofs = mergeNames(p.ValueUsesProofs, d.ValueUsesProofs, p.Name)
		p.ValueUsesOthers = mergeNames(p.ValueUsesOthers, d.ValueUsesOthers, p.Name)
		p.TypeStats.Raw += d.TypeStats.Raw
		p.TypeStats.Dedup += d.TypeStats.Dedup
		p.TypeStats.PP += d.TypeStats.PP
		p.ValueStats.Raw += d.ValueStats.Raw
		p.ValueStats.Dedup += d.ValueStats.Dedup
		p.ValueStats.PP += d.ValueStats.PP
		ix.decls[p.Name] = p
	}
}

// mergeNames unions src into dst preserving first-seen order, dropping
// references to self.
func mergeNames(dst, src []string, self string) []string {
	seen := make(map[string]struct{}, len(dst)+len(src))
	out := make([]string, 0, len(dst)+len(src))
	for _, list := range [][]string{dst, src} {
		for _, n := range list {
			if n == self {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
