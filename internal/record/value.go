package record

import (
	"errors"
	"strings"
)

// parseValue interprets a raw attribute value: a bracketed list, a
// quoted string, or a bare scalar.
func parseValue(raw string) (Value, error) {
	switch {
	case strings.HasPrefix(raw, "["):
		if !strings.HasSuffix(raw, "]") {
			return Value{}, errors.New("unterminated list value")
		}
		items, err := splitList(raw[1 : len(raw)-1])
		if err != nil {
			return Value{}, err
		}
		return Value{Items: items, List: true}, nil
	case strings.HasPrefix(raw, `"`):
		text, err := unquote(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Text: text}, nil
	default:
		return Value{Text: raw}, nil
	}
}

// unquote strips surrounding double quotes and resolves the escape
// sequences the introspection tool emits: \n, \t, \r, \" and \\.
// Unrecognized escapes pass through untouched.
func unquote(s string) (string, error) {
	if len(s) < 2 || !strings.HasSuffix(s, `"`) {
		return "", errors.New("unterminated quoted value")
	}
	body := s[1 : len(s)-1]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			if c == '"' {
				return "", errors.New("unescaped quote inside value")
			}
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", errors.New("dangling escape at end of value")
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// splitList splits the inside of a bracketed list on commas outside
// quotes, unquoting each quoted item.
func splitList(body string) ([]string, error) {
	if strings.TrimSpace(body) == "" {
		return []string{}, nil
	}
	var parts []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(body):
			cur.WriteByte(c)
			i++
			cur.WriteByte(body[i])
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ',' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quoted list item")
	}
	parts = append(parts, cur.String())

	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, `"`) {
			u, err := unquote(p)
			if err != nil {
				return nil, err
			}
			items = append(items, u)
			continue
		}
		items = append(items, p)
	}
	return items, nil
}
