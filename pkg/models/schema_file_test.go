package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regionYAML = `tables:
  - name: Region
    columns:
      - {name: RegionID, database_type: int, type: int32, id: true}
      - {name: RegionDescription, database_type: nchar(50), type: string}
  - schema: hr
    name: Employees
    columns:
      - {name: EmployeeID, database_type: int, type: int32, id: true, auto_generated: true}
      - {name: ReportsTo, database_type: int, type: int32, nullable: true}
      - {name: Photo, database_type: image, type: bytes, nullable: true}
`

func TestLoadTablesYAML(t *testing.T) {
	tables, err := LoadTablesYAML(strings.NewReader(regionYAML))
	require.NoError(t, err)
	require.Len(t, tables, 2)

	region, ok := FindTable(tables, "dbo", "Region")
	require.True(t, ok, "schema defaults to dbo")
	assert.Equal(t, []string{"RegionID"}, ColumnNames(region.IDColumns()))

	employees, ok := FindTable(tables, "hr", "Employees")
	require.True(t, ok)
	reportsTo, ok := employees.Column("ReportsTo")
	require.True(t, ok)
	assert.Equal(t, NullableOf(KindInt32), reportsTo.Type)
	assert.Equal(t, []string{"ReportsTo", "Photo"}, ColumnNames(employees.NonAutoGeneratedColumns()))

	_, ok = FindTable(tables, "dbo", "Employees")
	assert.False(t, ok)
}

func TestLoadTablesYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown type", "tables:\n  - name: T\n    columns:\n      - {name: A, type: money}\n", `unknown type "money"`},
		{"unknown field", "tables:\n  - name: T\n    colums: []\n", "decode schema file"},
		{"duplicate column", "tables:\n  - name: T\n    columns:\n      - {name: A, type: int32}\n      - {name: A, type: int32}\n", "duplicate column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTablesYAML(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadTablesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(regionYAML), 0o600))

	tables, err := LoadTablesFile(path)
	require.NoError(t, err)
	assert.Len(t, tables, 2)

	_, err = LoadTablesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
