package record

import (
	"bufio"
	"io"
	"strings"
)

// Scanner reads declaration blocks from a record stream one at a time,
// in the manner of bufio.Scanner: call Scan until it returns false,
// read each block with Record, then check Err. The stream is consumed
// in a single pass.
type Scanner struct {
	r      *bufio.Reader
	line   int
	offset int64

	rec *Record
	err error

	// Lookahead for the "Name:" line that terminated the previous block.
	pending     string
	pendingLine int
	pendingOff  int64
	hasPending  bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// Scan advances to the next record block. It returns false at end of
// input or on the first malformed block; Err distinguishes the two.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	s.rec = nil

	var rec *Record
	for {
		text, lineNo, off, ok, err := s.next()
		if err != nil {
			s.err = err
			return false
		}
		if !ok {
			if rec == nil {
				return false
			}
			return s.finish(rec)
		}

		trimmed := strings.TrimSpace(text)
		if trimmed == "" || trimmed == "---" {
			if rec != nil {
				return s.finish(rec)
			}
			continue
		}

		if strings.HasPrefix(text, "Name:") {
			if rec != nil {
				// The line belongs to the next block.
				s.pending, s.pendingLine, s.pendingOff, s.hasPending = text, lineNo, off, true
				return s.finish(rec)
			}
			rec = &Record{line: lineNo, offset: off, values: make(map[string]Value)}
			if err := s.attribute(rec, text, lineNo, off); err != nil {
				s.err = err
				return false
			}
			continue
		}

		if rec == nil {
			s.err = &MalformedRecordError{Line: lineNo, Offset: off, Reason: "attribute line outside any record block"}
			return false
		}
		if err := s.attribute(rec, trimmed, lineNo, off); err != nil {
			s.err = err
			return false
		}
	}
}

// Record returns the block read by the last successful Scan.
func (s *Scanner) Record() *Record { return s.rec }

// Err returns the first error encountered. It is nil at clean end of
// input.
func (s *Scanner) Err() error { return s.err }

// next yields the following input line with its 1-based line number and
// byte offset. ok is false once the input is exhausted.
func (s *Scanner) next() (text string, line int, off int64, ok bool, err error) {
	if s.hasPending {
		s.hasPending = false
		return s.pending, s.pendingLine, s.pendingOff, true, nil
	}
	raw, err := s.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", 0, 0, false, err
	}
	if raw == "" {
		return "", 0, 0, false, nil
	}
	s.line++
	line, off = s.line, s.offset
	s.offset += int64(len(raw))
	text = strings.TrimRight(raw, "\r\n")
	return text, line, off, true, nil
}

// attribute parses one "Key: value" line into rec.
func (s *Scanner) attribute(rec *Record, text string, lineNo int, off int64) error {
	i := strings.Index(text, ":")
	if i < 0 {
		return &MalformedRecordError{Line: lineNo, Offset: off, Reason: "line has no key/value separator"}
	}
	key := strings.TrimSpace(text[:i])
	if key == "" {
		return &MalformedRecordError{Line: lineNo, Offset: off, Reason: "empty attribute key"}
	}
	raw := strings.TrimSpace(text[i+1:])

	v, err := parseValue(raw)
	if err != nil {
		return &MalformedRecordError{Line: lineNo, Offset: off, Reason: err.Error()}
	}
	rec.set(key, v)
	return nil
}

// finish validates the completed block and publishes it.
func (s *Scanner) finish(rec *Record) bool {
	if rec.Name() == "" {
		s.err = &MalformedRecordError{Line: rec.line, Offset: rec.offset, Reason: `required key "Name" is empty`}
		return false
	}
	if !rec.Has("Kind") {
		s.err = &MalformedRecordError{Line: rec.line, Offset: rec.offset, Reason: `required key "Kind" is missing`}
		return false
	}
	s.rec = rec
	return true
}

// ReadAll drains the stream into a slice of records. It returns the
// records read so far along with the error that stopped the scan.
func ReadAll(r io.Reader) ([]*Record, error) {
	sc := NewScanner(r)
	var recs []*Record
	for sc.Scan() {
		recs = append(recs, sc.Record())
	}
	return recs, sc.Err()
}
