package template

import "strings"

// reader is a cursor over template source text. The parser is its only
// consumer. The position only moves forward; the line counter advances
// exactly as newlines are consumed.
type reader struct {
	name string
	src  string
	pos  int
	line int
}

func newReader(name, src string) *reader {
	return &reader{name: name, src: src, line: 1}
}

// find returns the offset, relative to the current position, of the
// first occurrence of token at or after start, or -1.
func (r *reader) find(token string, start int) int {
	i := strings.Index(r.src[r.pos+start:], token)
	if i < 0 {
		return -1
	}
	return i + start
}

// findBefore is find restricted to offsets below end.
func (r *reader) findBefore(token string, start, end int) int {
	i := r.find(token, start)
	if i < 0 || i >= end {
		return -1
	}
	return i
}

// remaining reports the count of unconsumed characters.
func (r *reader) remaining() int { return len(r.src) - r.pos }

// at returns the byte at the given offset from the current position.
// Callers must bound the offset within remaining().
func (r *reader) at(off int) byte { return r.src[r.pos+off] }

// consume returns the next n characters and advances past them.
func (r *reader) consume(n int) string {
	s := r.src[r.pos : r.pos+n]
	r.pos += n
	r.line += strings.Count(s, "\n")
	return s
}

// consumeRest consumes everything left.
func (r *reader) consumeRest() string { return r.consume(r.remaining()) }
