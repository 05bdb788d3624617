package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ekaya-inc/ekaya-grid/pkg/models"
	"github.com/ekaya-inc/ekaya-grid/pkg/querybuilder"
	"github.com/ekaya-inc/ekaya-grid/pkg/sql"
)

// ErrTableNotFound is returned when the named table is not in the schema file.
var ErrTableNotFound = errors.New("table not found in schema file")

const defaultSchema = "dbo"

// BuildCmd represents the build command
type BuildCmd struct {
	Table        string            `arg:"" help:"Table as schema.name; the schema defaults to dbo"`
	Kind         string            `short:"k" help:"Statement kind (${enum})" enum:"get,insert,insert-plain,update,delete" default:"get"`
	Index        int64             `short:"i" help:"Row index for get" default:"0"`
	Prefix       string            `help:"Parameter name prefix" default:"v"`
	HoldingTable string            `help:"Temporary table used by inserts, without the #" default:"tempTable1"`
	Set          map[string]string `help:"Bind COLUMN=VALUE and show the converted values"`
}

func (cmd *BuildCmd) Run(ctx *Context) error {
	table, err := loadTable(ctx.Schema, cmd.Table)
	if err != nil {
		return err
	}

	opts := querybuilder.Options{ValuePrefix: cmd.Prefix, HoldingTable: cmd.HoldingTable}
	if err := opts.Validate(); err != nil {
		return err
	}
	builder, err := querybuilder.BuilderFor(cmd.Kind, cmd.Index, opts)
	if err != nil {
		return err
	}
	stmt, err := querybuilder.CreateStatement(nil, builder, table)
	if err != nil {
		return fmt.Errorf("build %s for %s: %w", cmd.Kind, table.FullyQualifiedName(), err)
	}

	bound := len(cmd.Set) > 0
	if bound {
		values := make(map[string]any, len(cmd.Set))
		for k, v := range cmd.Set {
			values[k] = v
		}
		if err := stmt.Bind(values); err != nil {
			return err
		}
	}

	fmt.Fprintln(ctx.Out, stmt.Text)
	if len(stmt.Params) == 0 {
		return nil
	}
	fmt.Fprintln(ctx.Out)

	w := tabwriter.NewWriter(ctx.Out, 0, 0, 2, ' ', 0)
	header := "PARAMETER\tTYPE\tNULLABLE\tCOLUMN"
	if bound || cmd.Kind == querybuilder.KindGetRowAtIndex {
		header += "\tVALUE"
	}
	fmt.Fprintln(w, header)
	for _, p := range stmt.Params {
		line := fmt.Sprintf("@%s\t%s\t%t\t%s", p.Name, p.Type, p.IsNullable, p.SourceColumn)
		if bound || cmd.Kind == querybuilder.KindGetRowAtIndex {
			line += "\t" + formatValue(p)
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}

// TablesCmd represents the tables command
type TablesCmd struct{}

func (cmd *TablesCmd) Run(ctx *Context) error {
	tables, err := models.LoadTablesFile(ctx.Schema)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(ctx.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tCOLUMNS\tID COLUMNS")
	for _, t := range tables {
		fmt.Fprintf(w, "%s\t%d\t%s\n",
			t.FullyQualifiedName(),
			len(t.Columns()),
			strings.Join(models.ColumnNames(t.IDColumns()), ", "))
	}
	return w.Flush()
}

func loadTable(schemaPath, name string) (*models.TableModel, error) {
	tables, err := models.LoadTablesFile(schemaPath)
	if err != nil {
		return nil, err
	}
	qn, err := sql.ParseQualifiedName(name, defaultSchema)
	if err != nil {
		return nil, err
	}
	table, ok := models.FindTable(tables, qn.Schema, qn.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, qn)
	}
	return table, nil
}

func formatValue(p *querybuilder.Parameter) string {
	if !p.Bound() {
		return "-"
	}
	if p.Value == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v (%T)", p.Value, p.Value)
}
