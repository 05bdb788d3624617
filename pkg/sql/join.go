package sql

import (
	"iter"
	"slices"
)

// Delimiters for list rendering.
const (
	CommaDelimiter = ", "
	AndDelimiter   = " AND "
)

// Elements is a re-enterable element source: every call to All starts a
// fresh traversal, so one Elements value can back any number of renders.
type Elements []Element

// Idents returns an identifier element for each name.
func Idents(names ...string) Elements {
	es := make(Elements, len(names))
	for i, n := range names {
		es[i] = Ident(n)
	}
	return es
}

func (es Elements) All() iter.Seq[Element] {
	return slices.Values(es)
}

// IdentSeq lazily maps names to identifier elements. The result is
// re-enterable exactly when names is; Join and JoinAsEquality accept either.
func IdentSeq(names iter.Seq[string]) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		for n := range names {
			if !yield(Ident(n)) {
				return
			}
		}
	}
}

// Buffered drains a source once. The result is re-enterable.
func Buffered(seq iter.Seq[Element]) Elements {
	return slices.Collect(seq)
}

// List joins elements with ", ".
//
// A failed render is retried from scratch, so the source is collected once
// when the list is built and every attempt renders the same elements.
type List struct {
	elems  Elements
	prefix string
}

// Join returns an unprefixed list over seq: [a], [b], [c]. seq is ranged
// over exactly once, here.
func Join(seq iter.Seq[Element]) List {
	return List{elems: Buffered(seq)}
}

// Prefix returns a copy of l whose identifiers render as prefix.[name].
// An empty prefix means none. The receiver is unchanged, so one source
// can be joined under several aliases.
func (l List) Prefix(prefix string) List {
	l.prefix = prefix
	return l
}

func (l List) TryFormat(dst []byte) (int, bool) {
	w := writer{dst: dst}
	for i, e := range l.elems {
		if i > 0 && !w.text(CommaDelimiter) {
			return w.n, false
		}
		if !w.format(Qualified{Qualifier: l.prefix, Name: e}) {
			return w.n, false
		}
	}
	return w.n, true
}

func (l List) String() string { return String(l) }

// EqualityList renders name = value pairs, e.g. for SET and WHERE clauses:
// [a] = @v0, [b] = @v1.
type EqualityList struct {
	names     Elements
	valueAt   func(i int) Formatter
	delimiter string
	prefix    string
}

// JoinAsEquality pairs the i-th name with valueAt(i) and joins the pairs
// with delimiter. Like Join, it collects names once.
func JoinAsEquality(names iter.Seq[Element], valueAt func(i int) Formatter, delimiter string) EqualityList {
	return EqualityList{names: Buffered(names), valueAt: valueAt, delimiter: delimiter}
}

// Prefix qualifies the left-hand identifiers: t1.[a] = ...
func (l EqualityList) Prefix(prefix string) EqualityList {
	l.prefix = prefix
	return l
}

func (l EqualityList) TryFormat(dst []byte) (int, bool) {
	w := writer{dst: dst}
	for i, e := range l.names {
		if i > 0 && !w.text(l.delimiter) {
			return w.n, false
		}
		if !w.format(Qualified{Qualifier: l.prefix, Name: e}) || !w.text(" = ") || !w.format(l.valueAt(i)) {
			return w.n, false
		}
	}
	return w.n, true
}

func (l EqualityList) String() string { return String(l) }

// Concat renders its parts back to back.
type Concat []Formatter

func (c Concat) TryFormat(dst []byte) (int, bool) {
	w := writer{dst: dst}
	for _, f := range c {
		if !w.format(f) {
			return w.n, false
		}
	}
	return w.n, true
}
