package decl

import (
	"fmt"
	"strconv"
	"strings"

	"leangraph/internal/record"
	"leangraph/internal/term"
)

// Build constructs a Declaration from one parsed record. It is pure:
// the record is not retained and the result never changes after return.
// Referenced-name lists are deduplicated preserving first-seen order so
// downstream iteration is reproducible.
func Build(rec *record.Record) (*Declaration, error) {
	name := rec.Name()
	if name == "" {
		return nil, &InvalidDeclarationError{Reason: "record has no name"}
	}
	fail := func(format string, args ...any) error {
		return &InvalidDeclarationError{Name: name, Reason: fmt.Sprintf(format, args...)}
	}

	kindText, ok := rec.Text("Kind")
	if !ok {
		return nil, fail("missing kind")
	}
	kind, ok := ParseKind(strings.TrimSpace(kindText))
	if !ok {
		return nil, fail("unrecognized kind %q", kindText)
	}

	d := &Declaration{Name: name, Kind: kind}

	var err error
	if d.File, err = textField(rec, "File"); err != nil {
		return nil, fail("%v", err)
	}
	if d.Line, err = intField(rec, "Line"); err != nil {
		return nil, fail("%v", err)
	}
	if d.Line < 0 {
		return nil, fail("negative source line %d", d.Line)
	}

	if d.Flags, err = modifiers(rec); err != nil {
		return nil, fail("%v", err)
	}

	if d.Type, err = textField(rec, "Type"); err != nil {
		return nil, fail("%v", err)
	}
	if d.Value, err = textField(rec, "Value"); err != nil {
		return nil, fail("%v", err)
	}
	if d.TypeStats, err = sizeStats(rec, "Type"); err != nil {
		return nil, fail("%v", err)
	}
	if d.ValueStats, err = sizeStats(rec, "Value"); err != nil {
		return nil, fail("%v", err)
	}

	if d.TypeUsesProofs, err = nameList(rec, "Type uses proofs"); err != nil {
		return nil, fail("%v", err)
	}
	if d.TypeUsesOthers, err = nameList(rec, "Type uses others"); err != nil {
		return nil, fail("%v", err)
	}
	if d.ValueUsesProofs, err = nameList(rec, "Value uses proofs"); err != nil {
		return nil, fail("%v", err)
	}
	if d.ValueUsesOthers, err = nameList(rec, "Value uses others"); err != nil {
		return nil, fail("%v", err)
	}

	if d.TargetClass, err = textField(rec, "Target class"); err != nil {
		return nil, fail("%v", err)
	}
	if d.Parent, err = textField(rec, "Parent"); err != nil {
		return nil, fail("%v", err)
	}
	if d.Fields, err = listField(rec, "Fields"); err != nil {
		return nil, fail("%v", err)
	}

	if d.Flags.IsInstance && d.TargetClass == "" {
		return nil, fail("instance without a target class")
	}
	if d.Flags.IsStructureField {
		if d.Parent == "" {
			return nil, fail("structure field without a parent")
		}
		// The emitter names the parent through its constructor; drop
		// the trailing component to reach the structure itself.
		d.Parent = ParentName(d.Parent)
	} else if d.Flags.IsConstructor {
		d.Parent = ParentName(d.Name)
	}

	return d, nil
}

// modifiers reads the seven independent boolean flags, absent = false.
func modifiers(rec *record.Record) (Modifiers, error) {
	var m Modifiers
	for _, f := range []struct {
		key string
		dst *bool
	}{
		{"Is class", &m.IsClass},
		{"Is structure", &m.IsStructure},
		{"Is structure field", &m.IsStructureField},
		{"Is inductive", &m.IsInductive},
		{"Is instance", &m.IsInstance},
		{"Is recursor", &m.IsRecursor},
		{"Is constructor", &m.IsConstructor},
	} {
		v, err := boolField(rec, f.key)
		if err != nil {
			return Modifiers{}, err
		}
		*f.dst = v
	}
	return m, nil
}

// sizeStats resolves the size metrics for the Type or Value term. A
// structured term surrogate, when present, is authoritative for raw and
// dedup sizes; otherwise the explicit numeric fields are carried as-is.
// The pretty-printed length is always taken from the record.
func sizeStats(rec *record.Record, prefix string) (TermStats, error) {
	var st TermStats
	surrogate, _ := rec.Text(prefix + " term")
	if strings.TrimSpace(surrogate) != "" {
		tm, err := term.Parse(surrogate)
		if err != nil {
			return st, fmt.Errorf("%s term: %w", strings.ToLower(prefix), err)
		}
		st.Raw = term.Size(tm)
		st.Dedup = term.DedupSize(tm)
	} else {
		var err error
		if st.Raw, err = intField(rec, prefix+" size"); err != nil {
			return st, err
		}
		if st.Dedup, err = intField(rec, prefix+" dedup size"); err != nil {
			return st, err
		}
		if st.Raw < 0 || st.Dedup < 0 {
			return st, fmt.Errorf("%s sizes must be non-negative", strings.ToLower(prefix))
		}
		if st.Dedup > st.Raw {
			return st, fmt.Errorf("%s dedup size %d exceeds raw size %d", strings.ToLower(prefix), st.Dedup, st.Raw)
		}
	}
	var err error
	if st.PP, err = intField(rec, prefix+" pp size"); err != nil {
		return st, err
	}
	if st.PP < 0 {
		return st, fmt.Errorf("%s pp size must be non-negative", strings.ToLower(prefix))
	}
	return st, nil
}

// textField returns a scalar attribute, "" when absent. The emitter
// renders absent optionals as null.
func textField(rec *record.Record, key string) (string, error) {
	v, ok := rec.Lookup(key)
	if !ok {
		return "", nil
	}
	if v.List {
		return "", fmt.Errorf("%s: expected string, got list", key)
	}
	if v.Text == "null" || v.Text == "~" {
		return "", nil
	}
	return v.Text, nil
}

func intField(rec *record.Record, key string) (int, error) {
	text, err := textField(rec, key)
	if err != nil || text == "" {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%s: expected integer, got %q", key, text)
	}
	return n, nil
}

func boolField(rec *record.Record, key string) (bool, error) {
	text, err := textField(rec, key)
	if err != nil || text == "" {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%s: expected boolean, got %q", key, text)
}

func listField(rec *record.Record, key string) ([]string, error) {
	v, ok := rec.Lookup(key)
	if !ok {
		return nil, nil
	}
	if !v.List {
		if v.Text == "" || v.Text == "null" || v.Text == "~" {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: expected list, got string", key)
	}
	// Empty lists normalize to nil so serialized declarations
	// round-trip exactly.
	if len(v.Items) == 0 {
		return nil, nil
	}
	return v.Items, nil
}

// nameList reads a referenced-name list, deduplicated first-seen.
func nameList(rec *record.Record, key string) ([]string, error) {
	items, err := listField(rec, key)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, name := range items {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}
