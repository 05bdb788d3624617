package models

import (
	"fmt"
	"slices"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/sql"
)

// Kind is the semantic value type of a column, independent of the native
// database type used for DDL.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUint8
	KindInt8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindDecimal
	KindBool
	KindString
	KindChar
	KindGUID
	KindDateTime
	KindDateTimeOffset
	KindBytes

	// Kinds below are discovered from the database but have no parameter mapping.
	KindDate
	KindTime
	KindXML
	KindVariant
	KindSpatial
	KindHierarchyID
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	KindUint8:          "uint8",
	KindInt8:           "int8",
	KindInt16:          "int16",
	KindUint16:         "uint16",
	KindInt32:          "int32",
	KindUint32:         "uint32",
	KindInt64:          "int64",
	KindUint64:         "uint64",
	KindFloat32:        "float32",
	KindFloat64:        "float64",
	KindDecimal:        "decimal",
	KindBool:           "bool",
	KindString:         "string",
	KindChar:           "char",
	KindGUID:           "guid",
	KindDateTime:       "datetime",
	KindDateTimeOffset: "datetimeoffset",
	KindBytes:          "bytes",
	KindDate:           "date",
	KindTime:           "time",
	KindXML:            "xml",
	KindVariant:        "variant",
	KindSpatial:        "spatial",
	KindHierarchyID:    "hierarchyid",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the Kind named s, as produced by Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindUnknown, false
}

// ValueType is a Kind plus nullability. A nullable type unwraps to its
// underlying Kind for parameter type lookup.
type ValueType struct {
	Kind     Kind
	Nullable bool
}

// TypeOf returns the non-nullable ValueType of k.
func TypeOf(k Kind) ValueType { return ValueType{Kind: k} }

// NullableOf returns the nullable ValueType of k.
func NullableOf(k Kind) ValueType { return ValueType{Kind: k, Nullable: true} }

// Underlying strips nullability.
func (t ValueType) Underlying() ValueType { return ValueType{Kind: t.Kind} }

func (t ValueType) String() string {
	if t.Nullable {
		return "nullable " + t.Kind.String()
	}
	return t.Kind.String()
}

// ColumnSchema describes one table column.
type ColumnSchema struct {
	Name string
	// DatabaseType is the native type as written in DDL, e.g. "nvarchar(40)".
	DatabaseType    string
	Type            ValueType
	IsID            bool
	IsAutoGenerated bool
}

// TableModel describes one table. It is read-only once constructed.
type TableModel struct {
	Schema string
	Name   string

	columns []ColumnSchema
}

// NewTableModel validates and builds a TableModel. Columns keep the given
// order; names must be non-empty and unique.
func NewTableModel(schema, name string, columns []ColumnSchema) (*TableModel, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: table name is required", apperrors.ErrSchema)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table %s.%s has no columns", apperrors.ErrSchema, schema, name)
	}

	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: table %s.%s has a column without a name", apperrors.ErrSchema, schema, name)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: table %s.%s has duplicate column %q", apperrors.ErrSchema, schema, name, c.Name)
		}
		seen[c.Name] = true
	}

	return &TableModel{
		Schema:  schema,
		Name:    name,
		columns: slices.Clone(columns),
	}, nil
}

// FullyQualifiedName renders as [schema].[name].
func (t *TableModel) FullyQualifiedName() sql.QualifiedName {
	return sql.QualifiedName{Schema: t.Schema, Name: t.Name}
}

// Columns returns all columns in declared order.
func (t *TableModel) Columns() []ColumnSchema {
	return slices.Clone(t.columns)
}

// Column looks up a column by name.
func (t *TableModel) Column(name string) (ColumnSchema, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// IDColumns returns the key columns in declared order.
func (t *TableModel) IDColumns() []ColumnSchema {
	return t.filter(func(c ColumnSchema) bool { return c.IsID })
}

// NonIDColumns returns the columns that are not part of the key.
func (t *TableModel) NonIDColumns() []ColumnSchema {
	return t.filter(func(c ColumnSchema) bool { return !c.IsID })
}

// NonAutoGeneratedColumns returns the columns whose values are supplied on insert.
func (t *TableModel) NonAutoGeneratedColumns() []ColumnSchema {
	return t.filter(func(c ColumnSchema) bool { return !c.IsAutoGenerated })
}

// RequireIDColumns returns the key columns or a schema error when there are none.
func (t *TableModel) RequireIDColumns() ([]ColumnSchema, error) {
	ids := t.IDColumns()
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: table %s.%s has no id columns", apperrors.ErrSchema, t.Schema, t.Name)
	}
	return ids, nil
}

func (t *TableModel) filter(keep func(ColumnSchema) bool) []ColumnSchema {
	var out []ColumnSchema
	for _, c := range t.columns {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []ColumnSchema) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
