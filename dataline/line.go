// Package dataline implements the "::" delimited text line used on the
// wire: a name, usually a command tag, followed by ordered fields.
//
//	LOGIN::alice::f
//
// Booleans are encoded as "t" or "f" and byte slices as their UTF-8 text, so
// binary payloads must be encoded (e.g. base64) by the caller.
package dataline

import (
	"fmt"
	"strconv"
)

// LineReader reads one line from a connection. It returns io.EOF once no
// more data is available.
type LineReader interface {
	ReadLine() (string, error)
}

// LineWriter writes one line synchronously.
type LineWriter interface {
	WriteLine(data string) error
}

// Sender queues one line for asynchronous, ordered delivery.
type Sender interface {
	Send(data string)
}

// Line is the typed view of a Parser.
type Line struct {
	p *Parser
}

func New(s string) *Line {
	return &Line{p: Parse(s)}
}

// NewTagged creates a line holding only the tag name.
func NewTagged(tag fmt.Stringer) *Line {
	return New(tag.String())
}

// Read reads one line from r and parses it. Read errors, io.EOF included,
// are returned unchanged.
func Read(r LineReader) (*Line, error) {
	s, err := r.ReadLine()
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

// FromParser wraps an existing parser. It panics on a nil parser.
func FromParser(p *Parser) *Line {
	if p == nil {
		panic("dataline: nil parser")
	}
	return &Line{p: p}
}

// IsType reports whether the line name equals the tag name.
func (l *Line) IsType(tag fmt.Stringer) bool {
	return l.p.Name() == tag.String()
}

// ToType returns the tag among tags whose name matches the line name. The
// second result is false when none matches.
func ToType[T fmt.Stringer](l *Line, tags ...T) (T, bool) {
	for _, tag := range tags {
		if tag.String() == l.p.Name() {
			return tag, true
		}
	}
	var zero T
	return zero, false
}

// SendTo queues the line on s. It does not wait for the write.
func (l *Line) SendTo(s Sender) {
	s.Send(l.String())
}

// WriteLineTo writes the line to w synchronously.
func (l *Line) WriteLineTo(w LineWriter) error {
	return w.WriteLine(l.String())
}

func (l *Line) Name() string {
	return l.p.Name()
}

// Fields returns every field unescaped.
func (l *Line) Fields() []string {
	out := make([]string, l.p.FieldCount())
	for i := range out {
		out[i], _ = l.p.Field(i)
	}
	return out
}

func (l *Line) Field(index int) (string, error) {
	return l.p.Field(index)
}

func (l *Line) Int(index int) (int, error) {
	s, err := l.p.Field(index)
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: field %d is not an int: %w", ErrFormat, index, err)
	}
	return i, nil
}

func (l *Line) Int64(index int) (int64, error) {
	s, err := l.p.Field(index)
	if err != nil {
		return 0, err
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %d is not an int64: %w", ErrFormat, index, err)
	}
	return i, nil
}

// Bool is true only for the field value "t".
func (l *Line) Bool(index int) (bool, error) {
	s, err := l.p.Field(index)
	if err != nil {
		return false, err
	}
	return s == "t", nil
}

func (l *Line) Bytes(index int) ([]byte, error) {
	s, err := l.p.Field(index)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (l *Line) FieldCount() int {
	return l.p.FieldCount()
}

func (l *Line) String() string {
	return l.p.String()
}

func (l *Line) Add(s string) *Line {
	l.p.Append(s)
	return l
}

func (l *Line) AddInt(i int) *Line {
	l.p.Append(strconv.Itoa(i))
	return l
}

func (l *Line) AddInt64(i int64) *Line {
	l.p.Append(strconv.FormatInt(i, 10))
	return l
}

func (l *Line) AddBool(b bool) *Line {
	if b {
		l.p.Append("t")
	} else {
		l.p.Append("f")
	}
	return l
}

// AddBytes stores b as UTF-8 text. Each byte that is not part of a valid
// sequence becomes one U+FFFD, so only text-safe bytes round-trip.
func (l *Line) AddBytes(b []byte) *Line {
	l.p.Append(string([]rune(string(b))))
	return l
}

// RemoveLast drops the last field, if any.
func (l *Line) RemoveLast() *Line {
	l.p.RemoveLast()
	return l
}
