package querybuilder

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/models"
)

// DbType is the SQL Server wire type of a bound parameter.
type DbType uint8

const (
	DbTypeUnknown DbType = iota
	DbTypeTinyInt
	DbTypeSmallInt
	DbTypeInt
	DbTypeBigInt
	DbTypeDecimal
	DbTypeReal
	DbTypeFloat
	DbTypeMoney
	DbTypeBit
	DbTypeNVarChar
	DbTypeNChar
	DbTypeUniqueIdentifier
	DbTypeDateTime2
	DbTypeDateTimeOffset
	DbTypeVarBinary
)

var dbTypeNames = [...]string{
	DbTypeUnknown:          "unknown",
	DbTypeTinyInt:          "tinyint",
	DbTypeSmallInt:         "smallint",
	DbTypeInt:              "int",
	DbTypeBigInt:           "bigint",
	DbTypeDecimal:          "decimal",
	DbTypeReal:             "real",
	DbTypeFloat:            "float",
	DbTypeMoney:            "money",
	DbTypeBit:              "bit",
	DbTypeNVarChar:         "nvarchar",
	DbTypeNChar:            "nchar",
	DbTypeUniqueIdentifier: "uniqueidentifier",
	DbTypeDateTime2:        "datetime2",
	DbTypeDateTimeOffset:   "datetimeoffset",
	DbTypeVarBinary:        "varbinary",
}

func (t DbType) String() string {
	if int(t) < len(dbTypeNames) {
		return dbTypeNames[t]
	}
	return fmt.Sprintf("dbtype(%d)", uint8(t))
}

// kindDbTypes maps value kinds to parameter types. uint64 has no native
// wire type and travels as decimal.
var kindDbTypes = map[models.Kind]DbType{
	models.KindUint8:          DbTypeTinyInt,
	models.KindInt8:           DbTypeSmallInt,
	models.KindInt16:          DbTypeSmallInt,
	models.KindUint16:         DbTypeInt,
	models.KindInt32:          DbTypeInt,
	models.KindUint32:         DbTypeBigInt,
	models.KindInt64:          DbTypeBigInt,
	models.KindUint64:         DbTypeDecimal,
	models.KindFloat32:        DbTypeReal,
	models.KindFloat64:        DbTypeFloat,
	models.KindDecimal:        DbTypeMoney,
	models.KindBool:           DbTypeBit,
	models.KindString:         DbTypeNVarChar,
	models.KindChar:           DbTypeNChar,
	models.KindGUID:           DbTypeUniqueIdentifier,
	models.KindDateTime:       DbTypeDateTime2,
	models.KindDateTimeOffset: DbTypeDateTimeOffset,
	models.KindBytes:          DbTypeVarBinary,
}

// ParameterTypeFor returns the parameter type and nullability for a value
// type. Nullable types are looked up by their underlying kind.
func ParameterTypeFor(vt models.ValueType) (DbType, bool, error) {
	t, ok := kindDbTypes[vt.Underlying().Kind]
	if !ok {
		return DbTypeUnknown, false, &apperrors.UnsupportedTypeError{Type: vt.String()}
	}
	return t, vt.Nullable, nil
}
