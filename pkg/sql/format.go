package sql

import (
	"slices"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
)

// Formatter renders a piece of SQL text into a caller-supplied region.
//
// TryFormat writes into dst and returns the number of bytes written. When
// dst is too small it returns ok=false; n then counts the whole pieces that
// did fit, and the caller must retry from scratch with a larger region.
// Pieces are written whole, so a failed render never ends inside a UTF-8
// sequence.
type Formatter interface {
	TryFormat(dst []byte) (n int, ok bool)
}

// Text is a literal SQL fragment written as-is.
type Text string

func (t Text) TryFormat(dst []byte) (int, bool) {
	if len(dst) < len(t) {
		return 0, false
	}
	return copy(dst, t), true
}

const (
	minRenderSize = 64
	maxRenderSize = 1 << 30
)

// Render formats f into the fixed-capacity dst. It never grows dst.
func Render(dst []byte, f Formatter) (int, error) {
	n, ok := f.TryFormat(dst)
	if !ok {
		return n, apperrors.ErrBufferTooSmall
	}
	return n, nil
}

// Append formats f into the spare capacity of dst and returns the extended
// slice. When the spare capacity is insufficient it doubles it and renders
// again from scratch; bytes past len(dst) are never committed by a failed
// attempt.
func Append(dst []byte, f Formatter) []byte {
	size := max(cap(dst)-len(dst), minRenderSize)
	for {
		dst = slices.Grow(dst, size)
		n, ok := f.TryFormat(dst[len(dst):cap(dst)])
		if ok {
			return dst[:len(dst)+n]
		}
		if size > maxRenderSize {
			panic("sql: formatter output exceeds maximum render size")
		}
		size = (cap(dst) - len(dst)) * 2
	}
}

// String renders f into a new string.
func String(f Formatter) string {
	return string(Append(nil, f))
}

// Buffer accumulates statement text. The zero value is ready to use and a
// Buffer may be Reset and reused across statements.
type Buffer struct {
	buf []byte
}

func (b *Buffer) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// Format appends each formatter in order.
func (b *Buffer) Format(fs ...Formatter) {
	for _, f := range fs {
		b.buf = Append(b.buf, f)
	}
}

func (b *Buffer) Len() int       { return len(b.buf) }
func (b *Buffer) String() string { return string(b.buf) }
func (b *Buffer) Reset()         { b.buf = b.buf[:0] }

// writer tracks a write position inside a fixed region.
type writer struct {
	dst []byte
	n   int
}

func (w *writer) text(s string) bool {
	if len(w.dst)-w.n < len(s) {
		return false
	}
	w.n += copy(w.dst[w.n:], s)
	return true
}

func (w *writer) byte(c byte) bool {
	if w.n >= len(w.dst) {
		return false
	}
	w.dst[w.n] = c
	w.n++
	return true
}

func (w *writer) format(f Formatter) bool {
	n, ok := f.TryFormat(w.dst[w.n:])
	w.n += n
	return ok
}
