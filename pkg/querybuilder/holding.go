package querybuilder

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/models"
	"github.com/ekaya-inc/ekaya-grid/pkg/sql"
)

// HoldingTable is the session-scoped temporary table that captures the
// keys of an inserted row. It lives only on the connection that created
// it, so inserts on distinct sessions never collide.
type HoldingTable struct {
	Name    string
	Columns []models.ColumnSchema
}

// NewHoldingTable shapes a holding table like the id columns. Every column
// needs a DatabaseType to appear in CREATE TABLE.
func NewHoldingTable(name string, idColumns []models.ColumnSchema) (*HoldingTable, error) {
	for _, c := range idColumns {
		if c.DatabaseType == "" {
			return nil, fmt.Errorf("%w: id column %q has no database type", apperrors.ErrSchema, c.Name)
		}
	}
	return &HoldingTable{Name: name, Columns: idColumns}, nil
}

// Ref is the table reference, e.g. #tempTable1.
func (h *HoldingTable) Ref() sql.Text {
	return sql.Text("#" + h.Name)
}

// DropIfExists removes a table left behind by an aborted insert on the
// same session.
func (h *HoldingTable) DropIfExists() sql.Formatter {
	return sql.Concat{
		sql.Text("IF OBJECT_ID("),
		sql.EscapedString("tempdb..#" + h.Name),
		sql.Text(") IS NOT NULL\n    DROP TABLE "),
		h.Ref(),
		sql.Text(";"),
	}
}

// Create renders CREATE TABLE #name([Id] int, ...);
func (h *HoldingTable) Create() sql.Formatter {
	defs := make(sql.Elements, len(h.Columns))
	for i, c := range h.Columns {
		defs[i] = sql.Raw(sql.QuoteIdent(c.Name) + " " + holdingColumnType(c.DatabaseType))
	}
	return sql.Concat{
		sql.Text("CREATE TABLE "),
		h.Ref(),
		sql.Text("("),
		sql.Join(defs.All()),
		sql.Text(");"),
	}
}

func (h *HoldingTable) Drop() sql.Formatter {
	return sql.Concat{sql.Text("DROP TABLE "), h.Ref(), sql.Text(";")}
}

// holdingColumnType maps a key column type to a type that can receive it
// through OUTPUT INTO. rowversion values are stored as plain binary.
func holdingColumnType(databaseType string) string {
	switch strings.ToLower(databaseType) {
	case "rowversion", "timestamp":
		return "binary(8)"
	}
	return databaseType
}
