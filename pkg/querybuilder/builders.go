package querybuilder

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/models"
	"github.com/ekaya-inc/ekaya-grid/pkg/sql"
)

// Builder produces the text and the ordered parameters of one statement.
// Build writes nothing when it returns an error.
type Builder interface {
	Build(b *sql.Buffer, table *models.TableModel) error
	Parameters(table *models.TableModel) ([]*Parameter, error)
}

var (
	_ Builder = GetRowAtIndex{}
	_ Builder = DeleteRowWithKey{}
	_ Builder = InsertRowWithValues{}
	_ Builder = InsertRow{}
	_ Builder = UpdateRow{}
)

func columnIdents(cols []models.ColumnSchema) sql.Elements {
	return sql.Idents(models.ColumnNames(cols)...)
}

// GetRowAtIndex selects the rows at positions Index-1, Index and Index+1 of
// the table ordered by its id columns. Positions are 0-based and exposed as
// the rowNumberX column; fewer rows come back at either end of the table.
type GetRowAtIndex struct {
	Index   int64
	Options Options
}

func (q GetRowAtIndex) Build(b *sql.Buffer, table *models.TableModel) error {
	ids, err := table.RequireIDColumns()
	if err != nil {
		return err
	}
	idList := columnIdents(ids)
	all := append(sql.Elements{sql.Ident(RowNumberColumn)}, columnIdents(table.Columns())...)
	current := sql.Named(CurrentIndexParameterName)

	b.WriteString("SELECT * FROM\n(\n    SELECT ")
	b.Format(sql.Join(all.All()).Prefix("t1"))
	b.WriteString(" FROM\n    (\n        SELECT\n            t.*,\n            ROW_NUMBER() OVER (ORDER BY ")
	b.Format(sql.Join(idList.All()).Prefix("t"))
	b.WriteString(") - 1 AS " + RowNumberColumn + "\n        FROM ")
	b.Format(table.FullyQualifiedName())
	b.WriteString(" AS t\n    ) AS t1\n    WHERE t1." + RowNumberColumn + " <= ")
	b.Format(current)
	b.WriteString(" + 1\n        AND t1." + RowNumberColumn + " >= ")
	b.Format(current)
	b.WriteString(" - 1\n) AS t2\nORDER BY ")
	b.Format(sql.Join(idList.All()).Prefix("t2"))
	return nil
}

// Parameters returns the bound currentIndex parameter. The index must fit
// an int and be non-negative.
func (q GetRowAtIndex) Parameters(table *models.TableModel) ([]*Parameter, error) {
	p, err := newIndexParameter(q.Index)
	if err != nil {
		return nil, err
	}
	return []*Parameter{p}, nil
}

// DeleteRowWithKey deletes the row whose id columns equal @v0, @v1, ...
// in id column order.
type DeleteRowWithKey struct {
	Options Options
}

func (q DeleteRowWithKey) Build(b *sql.Buffer, table *models.TableModel) error {
	ids, err := table.RequireIDColumns()
	if err != nil {
		return err
	}
	b.WriteString("DELETE FROM ")
	b.Format(table.FullyQualifiedName())
	b.WriteString("\nWHERE ")
	b.Format(sql.JoinAsEquality(columnIdents(ids).All(), q.Options.placeholder, sql.AndDelimiter))
	return nil
}

func (q DeleteRowWithKey) Parameters(table *models.TableModel) ([]*Parameter, error) {
	ids, err := table.RequireIDColumns()
	if err != nil {
		return nil, err
	}
	return columnParameters(ids, q.Options.namer())
}

// UpdateRow sets every non-id column and matches the row on its id columns.
// Parameters are the non-id columns first, then the id columns, numbered
// continuously: SET [a] = @v0, [b] = @v1 WHERE [id] = @v2.
type UpdateRow struct {
	Options Options
}

func (q UpdateRow) columns(table *models.TableModel) (set, ids []models.ColumnSchema, err error) {
	ids, err = table.RequireIDColumns()
	if err != nil {
		return nil, nil, err
	}
	set = table.NonIDColumns()
	if len(set) == 0 {
		return nil, nil, fmt.Errorf("%w: table %s.%s has no columns to update", apperrors.ErrSchema, table.Schema, table.Name)
	}
	return set, ids, nil
}

func (q UpdateRow) Build(b *sql.Buffer, table *models.TableModel) error {
	set, ids, err := q.columns(table)
	if err != nil {
		return err
	}
	k := len(set)

	b.WriteString("UPDATE ")
	b.Format(table.FullyQualifiedName())
	b.WriteString("\nSET ")
	b.Format(sql.JoinAsEquality(columnIdents(set).All(), q.Options.placeholder, sql.CommaDelimiter))
	b.WriteString("\nWHERE ")
	b.Format(sql.JoinAsEquality(columnIdents(ids).All(), func(i int) sql.Formatter {
		return q.Options.placeholder(i + k)
	}, sql.AndDelimiter))
	return nil
}

func (q UpdateRow) Parameters(table *models.TableModel) ([]*Parameter, error) {
	set, ids, err := q.columns(table)
	if err != nil {
		return nil, err
	}
	n := q.Options.namer()
	setParams, err := columnParameters(set, n)
	if err != nil {
		return nil, err
	}
	idParams, err := columnParameters(ids, n)
	if err != nil {
		return nil, err
	}
	return append(setParams, idParams...), nil
}

// InsertRowWithValues inserts a row from its non-autogenerated columns and
// selects the new row's 0-based position in id column order.
//
// The generated keys are captured with OUTPUT INTO a session temporary
// table, the table is re-ranked, and the rank of the captured key is
// returned as rowNumberX. Statements sharing a session must not run this
// concurrently.
type InsertRowWithValues struct {
	Options Options
}

func (q InsertRowWithValues) Build(b *sql.Buffer, table *models.TableModel) error {
	ids, err := table.RequireIDColumns()
	if err != nil {
		return err
	}
	opts := q.Options.withDefaults()
	holding, err := NewHoldingTable(opts.HoldingTable, ids)
	if err != nil {
		return err
	}
	idList := columnIdents(ids)
	cols := table.NonAutoGeneratedColumns()

	b.WriteString("SET NOCOUNT ON;\n\n")
	b.Format(holding.DropIfExists())
	b.WriteString("\n\n")
	b.Format(holding.Create())
	b.WriteString("\n\nINSERT INTO ")
	b.Format(table.FullyQualifiedName())
	if len(cols) > 0 {
		b.WriteString("\n(\n    ")
		b.Format(sql.Join(columnIdents(cols).All()))
		b.WriteString("\n)")
	}
	b.WriteString("\nOUTPUT ")
	b.Format(sql.Join(idList.All()).Prefix("INSERTED"))
	b.WriteString("\n    INTO ")
	b.Format(holding.Ref())
	b.WriteString("(")
	b.Format(sql.Join(idList.All()))
	b.WriteString(")\n")
	if len(cols) > 0 {
		b.WriteString("VALUES\n(\n    ")
		b.Format(placeholderList(opts, len(cols)))
		b.WriteString("\n);\n\n")
	} else {
		b.WriteString("DEFAULT VALUES;\n\n")
	}

	b.WriteString("SELECT TOP(1) t1." + RowNumberColumn + " AS " + RowNumberColumn + " FROM\n(\n    SELECT\n        t.*,\n        ROW_NUMBER() OVER (ORDER BY ")
	b.Format(sql.Join(idList.All()).Prefix("t"))
	b.WriteString(") - 1 AS " + RowNumberColumn + "\n    FROM ")
	b.Format(table.FullyQualifiedName())
	b.WriteString(" AS t\n) AS t1\nWHERE EXISTS (\n    SELECT 1 FROM ")
	b.Format(holding.Ref())
	b.WriteString(" AS t2\n    WHERE ")
	b.Format(sql.JoinAsEquality(idList.All(), func(i int) sql.Formatter {
		return sql.Qualified{Qualifier: "t2", Name: idList[i]}
	}, sql.AndDelimiter).Prefix("t1"))
	b.WriteString("\n);\n\n")
	b.Format(holding.Drop())
	return nil
}

// Parameters returns one parameter per non-autogenerated column, in
// column order.
func (q InsertRowWithValues) Parameters(table *models.TableModel) ([]*Parameter, error) {
	if _, err := table.RequireIDColumns(); err != nil {
		return nil, err
	}
	return columnParameters(table.NonAutoGeneratedColumns(), q.Options.namer())
}

// InsertRow is a plain insert of the non-autogenerated columns. Unlike
// InsertRowWithValues it works on tables without id columns and reports
// only the affected row count.
type InsertRow struct {
	Options Options
}

func (q InsertRow) Build(b *sql.Buffer, table *models.TableModel) error {
	cols := table.NonAutoGeneratedColumns()
	b.WriteString("INSERT INTO ")
	b.Format(table.FullyQualifiedName())
	if len(cols) == 0 {
		b.WriteString("\nDEFAULT VALUES")
		return nil
	}
	b.WriteString("\n(\n    ")
	b.Format(sql.Join(columnIdents(cols).All()))
	b.WriteString("\n)\nVALUES\n(\n    ")
	b.Format(placeholderList(q.Options.withDefaults(), len(cols)))
	b.WriteString("\n)")
	return nil
}

func (q InsertRow) Parameters(table *models.TableModel) ([]*Parameter, error) {
	return columnParameters(table.NonAutoGeneratedColumns(), q.Options.namer())
}

func placeholderList(opts Options, n int) sql.List {
	es := make(sql.Elements, n)
	for i := range es {
		es[i] = sql.PrefixedPlaceholder(opts.ValuePrefix, i)
	}
	return sql.Join(es.All())
}
