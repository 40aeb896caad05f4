package dataline

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Delimiter separates the name and each field on the wire.
	Delimiter = "::"
	// DelimiterEscape replaces Delimiter inside stored field values.
	// A field that already contains DelimiterEscape will not round-trip.
	DelimiterEscape = "[:]dR[:]"
)

var (
	ErrIndex  = errors.New("dataline: field index out of range")
	ErrFormat = errors.New("dataline: malformed field")
)

// Parser is the low level representation of a line: a name followed by
// zero or more fields, stored in wire (escaped) form.
type Parser struct {
	name   string
	fields []string
}

// Parse splits s on Delimiter. The first piece becomes the name and every
// following piece a field, trailing empty pieces included. An empty s
// yields an empty name and no fields.
func Parse(s string) *Parser {
	parts := strings.Split(s, Delimiter)
	p := &Parser{name: parts[0]}
	if len(parts) > 1 {
		p.fields = parts[1:]
	}
	return p
}

func (p *Parser) Name() string {
	return p.name
}

// Append escapes every Delimiter in s and adds it after the last field.
func (p *Parser) Append(s string) {
	p.fields = append(p.fields, escape(s))
}

// RemoveLast drops the last field and returns its unescaped value.
// It reports false if there are no fields.
func (p *Parser) RemoveLast() (string, bool) {
	if len(p.fields) == 0 {
		return "", false
	}
	last := p.fields[len(p.fields)-1]
	p.fields = p.fields[:len(p.fields)-1]
	return unescape(last), true
}

// Field returns the unescaped field at index.
func (p *Parser) Field(index int) (string, error) {
	if len(p.fields) == 0 {
		return "", fmt.Errorf("%w: read of index %d but there are no fields", ErrIndex, index)
	}
	if index < 0 || index >= len(p.fields) {
		return "", fmt.Errorf("%w: read of index %d but field count is %d", ErrIndex, index, len(p.fields))
	}
	return unescape(p.fields[index]), nil
}

func (p *Parser) FieldCount() int {
	return len(p.fields)
}

// String renders the wire form: the name, then each stored field preceded
// by Delimiter.
func (p *Parser) String() string {
	var b strings.Builder
	b.WriteString(p.name)
	for _, f := range p.fields {
		b.WriteString(Delimiter)
		b.WriteString(f)
	}
	return b.String()
}

func escape(s string) string {
	if !strings.Contains(s, Delimiter) {
		return s
	}
	return strings.ReplaceAll(s, Delimiter, DelimiterEscape)
}

func unescape(s string) string {
	if !strings.Contains(s, DelimiterEscape) {
		return s
	}
	return strings.ReplaceAll(s, DelimiterEscape, Delimiter)
}
