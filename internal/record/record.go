// Package record parses the declaration record stream emitted by the
// introspection tool. The stream is a sequence of blocks, each starting
// with an unindented "Name:" line followed by "Key: value" attribute
// lines. Blocks are separated by a blank line, a "---" marker, or the
// next "Name:" line.
package record

import "fmt"

// Value is one record attribute: either a scalar string or a list of
// strings, never both.
type Value struct {
	Text  string
	Items []string
	List  bool
}

// Record is one parsed declaration block, a flat attribute mapping.
// Key order is first-seen order within the block. Unknown keys are kept
// so later stages can ignore them without the parser having to know the
// full key set.
type Record struct {
	line   int
	offset int64
	keys   []string
	values map[string]Value
}

// Line returns the 1-based line number of the block's "Name:" line.
func (r *Record) Line() int { return r.line }

// Offset returns the byte offset of the block's "Name:" line.
func (r *Record) Offset() int64 { return r.offset }

// Keys returns the attribute keys in first-seen order.
func (r *Record) Keys() []string { return r.keys }

// Has reports whether the record carries the given key.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Lookup returns the raw value for key.
func (r *Record) Lookup(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Text returns the scalar value for key. A list value reports false.
func (r *Record) Text(key string) (string, bool) {
	v, ok := r.values[key]
	if !ok || v.List {
		return "", false
	}
	return v.Text, true
}

// List returns the list value for key. A scalar value reports false.
func (r *Record) List(key string) ([]string, bool) {
	v, ok := r.values[key]
	if !ok || !v.List {
		return nil, false
	}
	return v.Items, true
}

// Name returns the record's qualified declaration name.
func (r *Record) Name() string {
	name, _ := r.Text("Name")
	return name
}

func (r *Record) set(key string, v Value) {
	if _, seen := r.values[key]; !seen {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// MalformedRecordError reports input the scanner cannot shape into a
// record block: a missing required key, an attribute line outside any
// block, or an unparseable value. Line and Offset locate the offending
// line in the source stream.
type MalformedRecordError struct {
	Line   int
	Offset int64
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at line %d (byte %d): %s", e.Line, e.Offset, e.Reason)
}
