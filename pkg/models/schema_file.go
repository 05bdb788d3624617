package models

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type schemaFile struct {
	Tables []tableEntry `yaml:"tables"`
}

type tableEntry struct {
	Schema  string        `yaml:"schema"`
	Name    string        `yaml:"name"`
	Columns []columnEntry `yaml:"columns"`
}

type columnEntry struct {
	Name          string `yaml:"name"`
	DatabaseType  string `yaml:"database_type"`
	Type          string `yaml:"type"`
	Nullable      bool   `yaml:"nullable"`
	ID            bool   `yaml:"id"`
	AutoGenerated bool   `yaml:"auto_generated"`
}

// LoadTablesYAML reads table descriptions from a YAML document of the form
//
//	tables:
//	  - schema: dbo
//	    name: Region
//	    columns:
//	      - {name: RegionID, database_type: int, type: int32, id: true}
//	      - {name: RegionDescription, database_type: nchar(50), type: string}
//
// Schema defaults to "dbo".
func LoadTablesYAML(r io.Reader) ([]*TableModel, error) {
	var file schemaFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode schema file: %w", err)
	}

	tables := make([]*TableModel, 0, len(file.Tables))
	for _, te := range file.Tables {
		schema := te.Schema
		if schema == "" {
			schema = "dbo"
		}

		cols := make([]ColumnSchema, 0, len(te.Columns))
		for _, ce := range te.Columns {
			kind, ok := ParseKind(ce.Type)
			if !ok {
				return nil, fmt.Errorf("table %s.%s column %q: unknown type %q", schema, te.Name, ce.Name, ce.Type)
			}
			cols = append(cols, ColumnSchema{
				Name:            ce.Name,
				DatabaseType:    ce.DatabaseType,
				Type:            ValueType{Kind: kind, Nullable: ce.Nullable},
				IsID:            ce.ID,
				IsAutoGenerated: ce.AutoGenerated,
			})
		}

		table, err := NewTableModel(schema, te.Name, cols)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// LoadTablesFile is LoadTablesYAML over a file path.
func LoadTablesFile(path string) ([]*TableModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()
	return LoadTablesYAML(f)
}

// FindTable returns the table with the given schema and name.
func FindTable(tables []*TableModel, schema, name string) (*TableModel, bool) {
	for _, t := range tables {
		if t.Schema == schema && t.Name == name {
			return t, true
		}
	}
	return nil, false
}
