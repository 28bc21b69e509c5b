// Package term models the structured term surrogates carried by
// declaration records and computes their raw and deduplicated sizes.
//
// A surrogate is rendered in parenthesized form: an atom is a leaf,
// "(f a (g b))" is a node with head f and children a and (g b).
package term

import (
	"errors"
	"fmt"
	"strings"
)

// Term is one node of a term tree: a head symbol and zero or more
// children. Callers may share child pointers; sizes treat sharing as
// repeated occurrences, matching the tree reading of the term.
type Term struct {
	Head string
	Args []*Term
}

// Parse reads a term from its parenthesized rendering.
func Parse(s string) (*Term, error) {
	p := &parser{input: s}
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, errors.New("empty term")
	}
	t, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("trailing input after term at byte %d", p.pos)
	}
	return t, nil
}

// String renders the term back in parenthesized form.
func (t *Term) String() string {
	if t == nil {
		return ""
	}
	if len(t.Args) == 0 {
		return t.Head
	}
	var b strings.Builder
	t.render(&b)
	return b.String()
}

func (t *Term) render(b *strings.Builder) {
	if len(t.Args) == 0 {
		b.WriteString(t.Head)
		return
	}
	b.WriteByte('(')
	b.WriteString(t.Head)
	for _, a := range t.Args {
		b.WriteByte(' ')
		a.render(b)
	}
	b.WriteByte(')')
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parseTerm() (*Term, error) {
	if p.pos >= len(p.input) {
		return nil, errors.New("unexpected end of term")
	}
	switch p.input[p.pos] {
	case '(':
		p.pos++
		p.skipSpace()
		head, err := p.atom()
		if err != nil {
			return nil, fmt.Errorf("composite head: %w", err)
		}
		t := &Term{Head: head}
		for {
			p.skipSpace()
			if p.pos >= len(p.input) {
				return nil, errors.New("unclosed parenthesis in term")
			}
			if p.input[p.pos] == ')' {
				p.pos++
				return t, nil
			}
			arg, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			t.Args = append(t.Args, arg)
		}
	case ')':
		return nil, fmt.Errorf("unexpected ')' at byte %d", p.pos)
	default:
		head, err := p.atom()
		if err != nil {
			return nil, err
		}
		return &Term{Head: head}, nil
	}
}

func (p *parser) atom() (string, error) {
	start := p.pos
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case '(', ')', ' ', '\t', '\n', '\r':
			return p.cut(start)
		}
		p.pos++
	}
	return p.cut(start)
}

func (p *parser) cut(start int) (string, error) {
	if p.pos == start {
		return "", fmt.Errorf("expected atom at byte %d", start)
	}
	return p.input[start:p.pos], nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}
