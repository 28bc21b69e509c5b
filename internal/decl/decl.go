// Package decl defines the typed declaration entity built from parsed
// records, one per verified entity in the corpus.
package decl

import (
	"fmt"
	"strings"
)

// Modifiers are the independent boolean flags a record may carry. They
// are taken from explicit record fields, never inferred from the kind.
type Modifiers struct {
	IsClass          bool `json:"is_class,omitempty"`
	IsStructure      bool `json:"is_structure,omitempty"`
	IsStructureField bool `json:"is_structure_field,omitempty"`
	IsInductive      bool `json:"is_inductive,omitempty"`
	IsInstance       bool `json:"is_instance,omitempty"`
	IsRecursor       bool `json:"is_recursor,omitempty"`
	IsConstructor    bool `json:"is_constructor,omitempty"`
}

// TermStats holds the size metrics of one term: raw tree size, the
// structure-sharing-aware deduplicated size, and the pretty-printed
// length reported by the emitter.
type TermStats struct {
	Raw   int `json:"raw"`
	Dedup int `json:"dedup"`
	PP    int `json:"pp"`
}

// Declaration is one verified entity. Instances are built once at
// ingestion and never mutated afterward; pruning produces new indexes
// that reference the same declarations.
type Declaration struct {
	Name  string    `json:"name"`
	File  string    `json:"file"`
	Line  int       `json:"line"`
	Kind  Kind      `json:"kind"`
	Flags Modifiers `json:"flags"`

	Type            string    `json:"type,omitempty"`
	TypeStats       TermStats `json:"type_stats"`
	TypeUsesProofs  []string  `json:"type_uses_proofs,omitempty"`
	TypeUsesOthers  []string  `json:"type_uses_others,omitempty"`
	Value           string    `json:"value,omitempty"`
	ValueStats      TermStats `json:"value_stats"`
	ValueUsesProofs []string  `json:"value_uses_proofs,omitempty"`
	ValueUsesOthers []string  `json:"value_uses_others,omitempty"`

	TargetClass string   `json:"target_class,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Fields      []string `json:"fields,omitempty"`
}

// DisplayKind is a more informative classification for presentation:
// modifier flags take precedence over the declared kind.
func (d *Declaration) DisplayKind() string {
	switch {
	case d.Flags.IsClass:
		return "class"
	case d.Flags.IsInstance:
		return "instance"
	case d.Flags.IsStructure:
		return "structure"
	case d.Flags.IsInductive:
		return "inductive"
	}
	if d.Kind != "" {
		return string(d.Kind)
	}
	return "unknown"
}

// References returns every name the declaration's type or value uses,
// deduplicated in first-seen order across the four partitions (type
// proofs, type others, value proofs, value others).
func (d *Declaration) References() []string {
	total := len(d.TypeUsesProofs) + len(d.TypeUsesOthers) +
		len(d.ValueUsesProofs) + len(d.ValueUsesOthers)
	if total == 0 {
		return nil
	}
	seen := make(map[string]struct{}, total)
	out := make([]string, 0, total)
	for _, list := range [][]string{d.TypeUsesProofs, d.TypeUsesOthers, d.ValueUsesProofs, d.ValueUsesOthers} {
		for _, name := range list {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// Clone returns a deep copy, used by ingest-time aggregation before an
// index is sealed.
func (d *Declaration) Clone() *Declaration {
	c := *d
	c.TypeUsesProofs = append([]string(nil), d.TypeUsesProofs...)
	c.TypeUsesOthers = append([]string(nil), d.TypeUsesOthers...)
	c.ValueUsesProofs = append([]string(nil), d.ValueUsesProofs...)
	c.ValueUsesOthers = append([]string(nil), d.ValueUsesOthers...)
	c.Fields = append([]string(nil), d.Fields...)
	return &c
}

// ParentName drops the final dotted component of a qualified name:
// ParentName("nat.rec") is "nat". A name without a dot has no parent.
func ParentName(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[:i]
}

// InvalidDeclarationError reports a record that parsed cleanly but
// violates the declaration invariants for its kind.
type InvalidDeclarationError struct {
	Name   string
	Reason string
}

func (e *InvalidDeclarationError) Error() string {
	if e.Name == "" {
		return "invalid declaration: " + e.Reason
	}
	return fmt.Sprintf("invalid declaration %s: %s", e.Name, e.Reason)
}
