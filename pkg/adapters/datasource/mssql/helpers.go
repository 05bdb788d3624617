package mssql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-grid/pkg/models"
)

// kindForSQLType maps a SQL Server system type to a value kind. maxLength
// is sys.columns.max_length in bytes; nchar(1) and char(1) map to a single
// character.
func kindForSQLType(sqlServerType string, maxLength int) models.Kind {
	switch strings.ToLower(sqlServerType) {
	case "tinyint":
		return models.KindUint8
	case "smallint":
		return models.KindInt16
	case "int":
		return models.KindInt32
	case "bigint":
		return models.KindInt64
	case "bit":
		return models.KindBool

	case "decimal", "numeric", "money", "smallmoney":
		return models.KindDecimal
	case "float":
		return models.KindFloat64
	case "real":
		return models.KindFloat32

	case "nchar":
		if maxLength == 2 {
			return models.KindChar
		}
		return models.KindString
	case "char":
		if maxLength == 1 {
			return models.KindChar
		}
		return models.KindString
	case "varchar", "nvarchar", "text", "ntext", "sysname":
		return models.KindString

	case "uniqueidentifier":
		return models.KindGUID
	case "datetime", "datetime2", "smalldatetime":
		return models.KindDateTime
	case "datetimeoffset":
		return models.KindDateTimeOffset

	case "binary", "varbinary", "image", "rowversion", "timestamp":
		return models.KindBytes

	case "date":
		return models.KindDate
	case "time":
		return models.KindTime
	case "xml":
		return models.KindXML
	case "sql_variant":
		return models.KindVariant
	case "geography", "geometry":
		return models.KindSpatial
	case "hierarchyid":
		return models.KindHierarchyID
	}
	return models.KindUnknown
}

// ddlType renders the column type as written in CREATE TABLE, e.g.
// nvarchar(40), decimal(18,2), varbinary(max), datetime2(7).
func ddlType(sqlServerType string, maxLength, precision, scale int) string {
	name := strings.ToLower(sqlServerType)
	length := func(n int) string {
		if maxLength == -1 {
			return name + "(max)"
		}
		return fmt.Sprintf("%s(%d)", name, n)
	}

	switch name {
	case "char", "varchar", "binary", "varbinary":
		return length(maxLength)
	case "nchar", "nvarchar":
		return length(maxLength / 2)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", name, precision, scale)
	case "datetime2", "datetimeoffset", "time":
		return fmt.Sprintf("%s(%d)", name, scale)
	case "timestamp":
		return "rowversion"
	}
	return name
}

// isStringType returns true if the type is a string type in SQL Server.
func isStringType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT", "NTEXT", "SYSNAME", "XML":
		return true
	}
	return false
}

// isDecimalType returns true for types the driver returns as decimal text.
func isDecimalType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}
