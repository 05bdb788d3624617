package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const northwindYAML = `tables:
  - name: Products
    columns:
      - {name: ProductID, database_type: int, type: int32, id: true, auto_generated: true}
      - {name: ProductName, database_type: nvarchar(40), type: string}
      - {name: UnitPrice, database_type: money, type: decimal, nullable: true}
  - schema: dbo
    name: Order Details
    columns:
      - {name: OrderID, database_type: int, type: int32, id: true}
      - {name: ProductID, database_type: int, type: int32, id: true}
      - {name: Quantity, database_type: smallint, type: int16}
`

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(northwindYAML), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}

func TestBuildCmd_Delete(t *testing.T) {
	schema := writeSchema(t)

	out, err := runCLI(t, "--schema", schema, "build", "dbo.Products", "--kind", "delete")
	require.NoError(t, err)

	assert.Contains(t, out, "DELETE FROM [dbo].[Products]\nWHERE [ProductID] = @v0\n")
	assert.Contains(t, out, "PARAMETER")
	assert.Regexp(t, `@v0\s+int\s+false\s+ProductID`, out)
}

func TestBuildCmd_GetShowsIndex(t *testing.T) {
	schema := writeSchema(t)

	out, err := runCLI(t, "-s", schema, "build", "[dbo].[Order Details]", "-k", "get", "-i", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "FROM [dbo].[Order Details]")
	assert.Regexp(t, `@currentIndex\s+int\s+false\s+3 \(int32\)`, out)
}

func TestBuildCmd_Prefix(t *testing.T) {
	schema := writeSchema(t)

	out, err := runCLI(t, "-s", schema, "build", "Products", "-k", "update", "--prefix", "p")
	require.NoError(t, err)
	assert.Contains(t, out, "UPDATE [dbo].[Products]\nSET [ProductName] = @p0, [UnitPrice] = @p1\nWHERE [ProductID] = @p2")
}

func TestBuildCmd_BindValues(t *testing.T) {
	schema := writeSchema(t)

	out, err := runCLI(t, "-s", schema, "build", "Products", "-k", "update",
		"--set", "ProductID=1", "--set", "ProductName=Chai")
	require.NoError(t, err)

	assert.Regexp(t, `@v0\s+nvarchar\s+false\s+ProductName\s+Chai \(string\)`, out)
	assert.Regexp(t, `@v1\s+money\s+true\s+UnitPrice\s+NULL`, out)
	assert.Regexp(t, `@v2\s+int\s+false\s+ProductID\s+1 \(int32\)`, out)
}

func TestBuildCmd_Errors(t *testing.T) {
	schema := writeSchema(t)

	_, err := runCLI(t, "-s", schema, "build", "dbo.Suppliers")
	assert.True(t, errors.Is(err, ErrTableNotFound))

	_, err = runCLI(t, "-s", schema, "build", "dbo.Products", "-k", "merge")
	assert.Error(t, err, "kind outside the enum")

	_, err = runCLI(t, "-s", schema, "build", "dbo.Products", "--prefix", "1x")
	assert.Error(t, err)

	_, err = runCLI(t, "-s", filepath.Join(t.TempDir(), "missing.yaml"), "tables")
	assert.Error(t, err)
}

func TestTablesCmd(t *testing.T) {
	schema := writeSchema(t)

	out, err := runCLI(t, "-s", schema, "tables")
	require.NoError(t, err)

	assert.Regexp(t, `\[dbo\]\.\[Products\]\s+3\s+ProductID`, out)
	assert.Regexp(t, `\[dbo\]\.\[Order Details\]\s+3\s+OrderID, ProductID`, out)
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gridsql dev\n", out)
}
