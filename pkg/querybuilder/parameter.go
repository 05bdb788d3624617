package querybuilder

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/models"
)

// CurrentIndexParameterName names the row index parameter of GetRowAtIndex.
const CurrentIndexParameterName = "currentIndex"

// Parameter is one bound statement parameter.
type Parameter struct {
	// Name is the parameter name without the leading '@', e.g. "v0".
	Name       string
	Type       DbType
	IsNullable bool
	// SourceColumn is the column the value belongs to. Empty for
	// parameters not tied to a column, such as currentIndex.
	SourceColumn string
	ValueType    models.ValueType

	// Value holds the converted value after Bind; nil means NULL.
	Value any
	bound bool
}

// NewParameter materializes the parameter for a column. It fails with an
// *apperrors.UnsupportedTypeError when the column type has no mapping.
func NewParameter(name string, column models.ColumnSchema) (*Parameter, error) {
	t, nullable, err := ParameterTypeFor(column.Type)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", column.Name, err)
	}
	return &Parameter{
		Name:         name,
		Type:         t,
		IsNullable:   nullable,
		SourceColumn: column.Name,
		ValueType:    column.Type,
	}, nil
}

// Bind converts raw to the parameter's value type and stores it. raw may
// be a Go value of the target type or an external form such as a string
// or a decoded JSON value. A nil raw value is accepted only by nullable
// parameters.
func (p *Parameter) Bind(raw any) error {
	if raw == nil {
		if !p.IsNullable {
			return p.conversionError(raw, errNullNotAllowed)
		}
		p.Value = nil
		p.bound = true
		return nil
	}

	v, err := convert(p.ValueType.Kind, raw)
	if err != nil {
		return p.conversionError(raw, err)
	}
	p.Value = v
	p.bound = true
	return nil
}

// Bound reports whether Bind has succeeded.
func (p *Parameter) Bound() bool { return p.bound }

func (p *Parameter) conversionError(raw any, err error) error {
	return &apperrors.ConversionError{
		Column: p.SourceColumn,
		Type:   p.ValueType.String(),
		Value:  raw,
		Err:    err,
	}
}

// BindValues binds each column parameter to values[SourceColumn]. A column
// missing from values binds NULL when nullable and fails otherwise. Keys in
// values that match no parameter are ignored.
func BindValues(params []*Parameter, values map[string]any) error {
	for _, p := range params {
		if p.SourceColumn == "" {
			continue
		}
		raw, ok := values[p.SourceColumn]
		if !ok && !p.IsNullable {
			return p.conversionError(nil, errMissingValue)
		}
		if err := p.Bind(raw); err != nil {
			return err
		}
	}
	return nil
}

// newIndexParameter returns the bound currentIndex parameter.
func newIndexParameter(index int64) (*Parameter, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrInvalidIndex, index)
	}
	p := &Parameter{
		Name:      CurrentIndexParameterName,
		Type:      DbTypeInt,
		ValueType: models.TypeOf(models.KindInt32),
	}
	if err := p.Bind(index); err != nil {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrInvalidIndex, index)
	}
	return p, nil
}

// namer hands out positional parameter names: v0, v1, ...
type namer struct {
	prefix string
	next   int
}

func (n *namer) Next() string {
	name := fmt.Sprintf("%s%d", n.prefix, n.next)
	n.next++
	return name
}

// columnParameters materializes one parameter per column, named in order.
func columnParameters(cols []models.ColumnSchema, n *namer) ([]*Parameter, error) {
	params := make([]*Parameter, 0, len(cols))
	for _, c := range cols {
		p, err := NewParameter(n.Next(), c)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}
