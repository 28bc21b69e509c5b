package depgraph

import (
	"strings"

	"leangraph/internal/index"
)

// auxSuffixes mark compiler-generated helper declarations that shadow
// a parent definition rather than carrying content of their own.
var auxSuffixes = []string{
	".rec",
	".brec",
	".brec_on",
	".mk",
	".rec_on",
	".inj_on",
	".has_sizeof_inst",
	".no_confusion_type",
	".no_confusion",
	".cases_on",
	".inj_arrow",
	".sizeof",
	".inj",
	".inj_eq",
	".sizeof_spec",
	".drec",
	".dcases_on",
	".drec_on",
	".below",
	".ibelow",
	".binduction_on",
}

func hasAuxSuffix(name string) bool {
	for _, s := range auxSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// DefaultFoundations returns prune criteria matching the logical
// plumbing that almost every declaration depends on. Pruning these
// keeps component queries about the mathematics instead of about
// equality and propositional connectives.
func DefaultFoundations() index.Criteria {
	return index.Criteria{Names: []string{
		"eq",
		"eq.refl",
		"eq.mpr",
		"eq.rec",
		"eq.trans",
		"eq.subst",
		"eq.symm",
		"eq_self_iff_true",
		"eq.mp",
		"ne",
		"not",
		"true",
		"false",
		"trivial",
		"rfl",
		"congr",
		"congr_arg",
		"propext",
		"funext",
		"and",
		"and.intro",
		"and.elim",
		"or",
		"or.inl",
		"or.inr",
		"or.elim",
		"iff",
		"iff.intro",
		"iff.mp",
		"iff.mpr",
		"iff_true_intro",
		"iff_self",
		"iff.refl",
		"iff.rfl",
		"classical.choice",
		"classical.indefinite_description",
		"classical.some",
		"nonempty",
		"decidable",
		"decidable_eq",
		"decidable_rel",
		"imp_congr_eq",
		"auto_param",
		"Exists",
		"Exists.intro",
		"subtype",
		"subtype.val",
		"id_rhs",
		"set",
		"set.has_mem",
		"set_of",
		"prod",
		"prod.fst",
		"prod.snd",
		"prod.mk",
		"coe",
		"coe_to_lift",
		"coe_base",
		"coe_fn",
		"coe_sort",
		"coe_t",
		"coe_trans",
	}}
}
