package decl

// Kind classifies a declaration. Kind and modifier flags are orthogonal
// in the source data: a structure is declared as an inductive kind with
// the structure flag set, and so on.
type Kind string

const (
	KindTheorem        Kind = "theorem"
	KindDefinition     Kind = "definition"
	KindConstant       Kind = "constant"
	KindAxiom          Kind = "axiom"
	KindStructure      Kind = "structure"
	KindInductive      Kind = "inductive"
	KindInstance       Kind = "instance"
	KindStructureField Kind = "structure_field"
)

var validKinds = map[Kind]bool{
	KindTheorem:        true,
	KindDefinition:     true,
	KindConstant:       true,
	KindAxiom:          true,
	KindStructure:      true,
	KindInductive:      true,
	KindInstance:       true,
	KindStructureField: true,
}

// kindAliases maps alternate spellings the emitter produces to their
// canonical kind.
var kindAliases = map[string]Kind{
	"lemma": KindTheorem,
}

// ParseKind canonicalizes a record's Kind value.
func ParseKind(s string) (Kind, bool) {
	if k := Kind(s); validKinds[k] {
		return k, true
	}
	if k, ok := kindAliases[s]; ok {
		return k, true
	}
	return "", false
}
