package sql

import (
	"strconv"
	"strings"
)

// DefaultValuePrefix is the placeholder prefix used when none is configured.
const DefaultValuePrefix = "v"

// ElementKind tags the variants of Element.
type ElementKind uint8

const (
	// ElementIdent is a column or table name, rendered bracket-quoted.
	ElementIdent ElementKind = iota
	// ElementRaw is a literal SQL fragment.
	ElementRaw
	// ElementPlaceholder is a positional parameter such as @v3.
	ElementPlaceholder
	// ElementNamed is a named parameter such as @currentIndex.
	ElementNamed
)

// Element is one entry of a joinable list.
type Element struct {
	kind   ElementKind
	text   string
	prefix string
	index  int
}

// Ident is a bracket-quoted identifier. A ']' inside name is doubled.
func Ident(name string) Element {
	return Element{kind: ElementIdent, text: name}
}

// Raw is written verbatim and never bracketed or prefixed.
func Raw(fragment string) Element {
	return Element{kind: ElementRaw, text: fragment}
}

// Placeholder renders positional parameter i as @v{i}.
func Placeholder(i int) Element {
	return PrefixedPlaceholder(DefaultValuePrefix, i)
}

// PrefixedPlaceholder renders positional parameter i as @{prefix}{i}.
func PrefixedPlaceholder(prefix string, i int) Element {
	return Element{kind: ElementPlaceholder, prefix: prefix, index: i}
}

// Named renders a named parameter as @name.
func Named(name string) Element {
	return Element{kind: ElementNamed, text: name}
}

func (e Element) Kind() ElementKind { return e.kind }

// Name returns the identifier or fragment text. For placeholders it
// returns the parameter name without the leading '@'.
func (e Element) Name() string {
	if e.kind == ElementPlaceholder {
		return e.prefix + strconv.Itoa(e.index)
	}
	return e.text
}

// NeedsBrackets reports whether list builders may prefix the element with
// a table alias. Only identifiers do; parameters and raw SQL opt out.
func (e Element) NeedsBrackets() bool {
	return e.kind == ElementIdent
}

func (e Element) TryFormat(dst []byte) (int, bool) {
	w := writer{dst: dst}
	switch e.kind {
	case ElementIdent:
		if !writeBracketed(&w, e.text) {
			return w.n, false
		}
	case ElementRaw:
		if !w.text(e.text) {
			return w.n, false
		}
	case ElementPlaceholder:
		var num [20]byte
		if !w.byte('@') || !w.text(e.prefix) || !w.text(string(strconv.AppendInt(num[:0], int64(e.index), 10))) {
			return w.n, false
		}
	case ElementNamed:
		if !w.byte('@') || !w.text(e.text) {
			return w.n, false
		}
	}
	return w.n, true
}

func (e Element) String() string { return String(e) }

// Qualified renders qualifier.[name], e.g. t1.[Id]. The qualifier is a
// table alias and is written as-is.
type Qualified struct {
	Qualifier string
	Name      Element
}

func (q Qualified) TryFormat(dst []byte) (int, bool) {
	w := writer{dst: dst}
	if q.Qualifier != "" && q.Name.NeedsBrackets() {
		if !w.text(q.Qualifier) || !w.byte('.') {
			return w.n, false
		}
	}
	if !w.format(q.Name) {
		return w.n, false
	}
	return w.n, true
}

// QualifiedName is a schema-qualified object name rendered as
// [schema].[name]. An empty schema renders only [name].
type QualifiedName struct {
	Schema string
	Name   string
}

func (q QualifiedName) TryFormat(dst []byte) (int, bool) {
	w := writer{dst: dst}
	if q.Schema != "" {
		if !writeBracketed(&w, q.Schema) || !w.byte('.') {
			return w.n, false
		}
	}
	if !writeBracketed(&w, q.Name) {
		return w.n, false
	}
	return w.n, true
}

func (q QualifiedName) String() string { return String(q) }

// EscapedString renders a single-quoted string literal with every embedded
// single quote doubled: O'Brien becomes 'O''Brien'.
type EscapedString string

func (s EscapedString) TryFormat(dst []byte) (int, bool) {
	w := writer{dst: dst}
	if !w.byte('\'') {
		return w.n, false
	}
	rest := string(s)
	for {
		i := strings.IndexByte(rest, '\'')
		if i < 0 {
			break
		}
		if !w.text(rest[:i]) || !w.text("''") {
			return w.n, false
		}
		rest = rest[i+1:]
	}
	if !w.text(rest) || !w.byte('\'') {
		return w.n, false
	}
	return w.n, true
}

func (s EscapedString) String() string { return String(s) }

// QuoteIdent returns name bracket-quoted, with ']' doubled.
func QuoteIdent(name string) string {
	return String(Ident(name))
}

func writeBracketed(w *writer, name string) bool {
	if !w.byte('[') {
		return false
	}
	rest := name
	for {
		i := strings.IndexByte(rest, ']')
		if i < 0 {
			break
		}
		if !w.text(rest[:i]) || !w.text("]]") {
			return false
		}
		rest = rest[i+1:]
	}
	return w.text(rest) && w.byte(']')
}
