package querybuilder

import (
	"github.com/ekaya-inc/ekaya-grid/pkg/models"
	"github.com/ekaya-inc/ekaya-grid/pkg/sql"
)

// Statement is generated SQL text with its ordered parameters.
type Statement struct {
	Text   string
	Params []*Parameter
}

// CreateStatement materializes the parameters first, so an unsupported
// column type fails before any text is produced, then renders the text.
// b may be nil; a non-nil buffer is reset and left empty for reuse.
func CreateStatement(b *sql.Buffer, builder Builder, table *models.TableModel) (*Statement, error) {
	params, err := builder.Parameters(table)
	if err != nil {
		return nil, err
	}

	if b == nil {
		b = new(sql.Buffer)
	}
	b.Reset()
	defer b.Reset()

	if err := builder.Build(b, table); err != nil {
		return nil, err
	}
	return &Statement{Text: b.String(), Params: params}, nil
}

// Bind binds the column parameters from values keyed by column name.
func (s *Statement) Bind(values map[string]any) error {
	return BindValues(s.Params, values)
}

// Param returns the parameter named name, without the '@'.
func (s *Statement) Param(name string) (*Parameter, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
