package querybuilder

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-grid/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-grid/pkg/models"
)

func TestParameterTypeFor(t *testing.T) {
	tests := []struct {
		kind     models.Kind
		expected DbType
	}{
		{models.KindUint8, DbTypeTinyInt},
		{models.KindInt8, DbTypeSmallInt},
		{models.KindInt16, DbTypeSmallInt},
		{models.KindUint16, DbTypeInt},
		{models.KindInt32, DbTypeInt},
		{models.KindUint32, DbTypeBigInt},
		{models.KindInt64, DbTypeBigInt},
		{models.KindUint64, DbTypeDecimal},
		{models.KindFloat32, DbTypeReal},
		{models.KindFloat64, DbTypeFloat},
		{models.KindDecimal, DbTypeMoney},
		{models.KindBool, DbTypeBit},
		{models.KindString, DbTypeNVarChar},
		{models.KindChar, DbTypeNChar},
		{models.KindGUID, DbTypeUniqueIdentifier},
		{models.KindDateTime, DbTypeDateTime2},
		{models.KindDateTimeOffset, DbTypeDateTimeOffset},
		{models.KindBytes, DbTypeVarBinary},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, nullable, err := ParameterTypeFor(models.TypeOf(tt.kind))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.False(t, nullable)

			got, nullable, err = ParameterTypeFor(models.NullableOf(tt.kind))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got, "nullable types map by their underlying kind")
			assert.True(t, nullable)
		})
	}
}

func TestParameterTypeFor_Unsupported(t *testing.T) {
	for _, k := range []models.Kind{models.KindUnknown, models.KindDate, models.KindTime, models.KindXML, models.KindVariant, models.KindSpatial, models.KindHierarchyID} {
		_, _, err := ParameterTypeFor(models.NullableOf(k))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedType)
		assert.NotErrorIs(t, err, apperrors.ErrConversion)

		var ute *apperrors.UnsupportedTypeError
		require.ErrorAs(t, err, &ute)
		assert.Equal(t, "nullable "+k.String(), ute.Type)
	}
}

func TestDbType_String(t *testing.T) {
	assert.Equal(t, "uniqueidentifier", DbTypeUniqueIdentifier.String())
	assert.Equal(t, "datetime2", DbTypeDateTime2.String())
	assert.Equal(t, "dbtype(200)", DbType(200).String())
}

func TestNewParameter(t *testing.T) {
	p, err := NewParameter("v3", models.ColumnSchema{Name: "Photo", Type: models.NullableOf(models.KindBytes)})
	require.NoError(t, err)
	assert.Equal(t, "v3", p.Name)
	assert.Equal(t, DbTypeVarBinary, p.Type)
	assert.True(t, p.IsNullable)
	assert.Equal(t, "Photo", p.SourceColumn)
	assert.False(t, p.Bound())
}

func bindKind(t *testing.T, kind models.Kind, raw any) (any, error) {
	t.Helper()
	p, err := NewParameter("v0", models.ColumnSchema{Name: "C", Type: models.TypeOf(kind)})
	require.NoError(t, err)
	if err := p.Bind(raw); err != nil {
		return nil, err
	}
	return p.Value, nil
}

func TestParameter_Bind(t *testing.T) {
	id := uuid.MustParse("6f9619ff-8b86-d011-b42d-00c04fc964ff")
	when := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		kind     models.Kind
		raw      any
		expected any
	}{
		{"uint8 from string", models.KindUint8, "255", uint8(255)},
		{"int8 from int", models.KindInt8, -128, int8(-128)},
		{"int16 from json number", models.KindInt16, json.Number("1200"), int16(1200)},
		{"uint16 from float", models.KindUint16, float64(65535), uint16(65535)},
		{"int32 from string with spaces", models.KindInt32, " 42 ", int32(42)},
		{"uint32 max", models.KindUint32, "4294967295", uint32(math.MaxUint32)},
		{"int64 from int64", models.KindInt64, int64(math.MinInt64), int64(math.MinInt64)},
		{"uint64 max from string", models.KindUint64, "18446744073709551615", uint64(math.MaxUint64)},
		{"uint64 from int", models.KindUint64, 7, uint64(7)},
		{"float32 from string", models.KindFloat32, "0.25", float32(0.25)},
		{"float64 from int", models.KindFloat64, 3, float64(3)},
		{"decimal from string", models.KindDecimal, "18.0000", decimal.RequireFromString("18")},
		{"decimal from int", models.KindDecimal, 10, decimal.NewFromInt(10)},
		{"bool from string", models.KindBool, "true", true},
		{"bool from int", models.KindBool, 0, false},
		{"string from string", models.KindString, "O'Brien", "O'Brien"},
		{"string from int", models.KindString, 12, "12"},
		{"char from string", models.KindChar, "é", 'é'},
		{"char from rune", models.KindChar, 'x', 'x'},
		{"guid from string", models.KindGUID, "6F9619FF-8B86-D011-B42D-00C04FC964FF", id},
		{"guid from uuid", models.KindGUID, id, id},
		{"datetime from RFC3339", models.KindDateTime, "2024-01-15T10:30:00Z", when},
		{"datetime from time", models.KindDateTime, when, when},
		{"bytes from base64", models.KindBytes, "AQL/", []byte{0x01, 0x02, 0xff}},
		{"bytes from base64 starting with 0x", models.KindBytes, "0x12", []byte{0xd3, 0x1d, 0x76}},
		{"bytes from slice", models.KindBytes, []byte{9}, []byte{9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bindKind(t, tt.kind, tt.raw)
			require.NoError(t, err)
			if d, ok := tt.expected.(decimal.Decimal); ok {
				require.IsType(t, decimal.Decimal{}, got)
				assert.True(t, d.Equal(got.(decimal.Decimal)), "got %v", got)
				return
			}
			if ts, ok := tt.expected.(time.Time); ok {
				require.IsType(t, time.Time{}, got)
				assert.True(t, ts.Equal(got.(time.Time)), "got %v", got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParameter_BindBytesFromJSON(t *testing.T) {
	blobs := [][]byte{
		{0xd3, 0x1d, 0x76},
		{0xd3, 0x1d, 0x76, 0x00, 0xff},
		{},
	}

	for _, blob := range blobs {
		encoded, err := json.Marshal(blob)
		require.NoError(t, err)
		var text string
		require.NoError(t, json.Unmarshal(encoded, &text))

		got, err := bindKind(t, models.KindBytes, text)
		require.NoError(t, err, "text %q", text)
		assert.Equal(t, blob, got, "text %q", text)
	}
}

func TestParameter_BindConversionErrors(t *testing.T) {
	tests := []struct {
		name string
		kind models.Kind
		raw  any
	}{
		{"uint8 overflow", models.KindUint8, 256},
		{"uint8 negative", models.KindUint8, "-1"},
		{"int16 overflow", models.KindInt16, 40000},
		{"int32 not a number", models.KindInt32, "abc"},
		{"int32 fractional", models.KindInt32, 1.5},
		{"int32 from bool", models.KindInt32, true},
		{"int64 from huge uint64", models.KindInt64, uint64(math.MaxUint64)},
		{"uint64 negative", models.KindUint64, -1},
		{"float32 overflow", models.KindFloat32, math.MaxFloat64},
		{"float64 NaN", models.KindFloat64, math.NaN()},
		{"float64 not a number", models.KindFloat64, "x1"},
		{"money overflow", models.KindDecimal, "922337203685478"},
		{"money not a number", models.KindDecimal, "12,50"},
		{"bool from word", models.KindBool, "maybe"},
		{"char too long", models.KindChar, "ab"},
		{"char empty", models.KindChar, ""},
		{"char outside BMP", models.KindChar, "😀"},
		{"guid malformed", models.KindGUID, "not-a-guid"},
		{"guid from int", models.KindGUID, 5},
		{"datetime malformed", models.KindDateTime, "yesterday"},
		{"bytes bad base64", models.KindBytes, "0xzz!"},
		{"bytes unpadded base64", models.KindBytes, "AQI"},
		{"bytes from int", models.KindBytes, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bindKind(t, tt.kind, tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrConversion)
			assert.NotErrorIs(t, err, apperrors.ErrUnsupportedType)

			var ce *apperrors.ConversionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "C", ce.Column)
			assert.Equal(t, tt.kind.String(), ce.Type)
		})
	}
}

func TestParameter_BindNull(t *testing.T) {
	nullable, err := NewParameter("v0", models.ColumnSchema{Name: "UnitPrice", Type: models.NullableOf(models.KindDecimal)})
	require.NoError(t, err)
	require.NoError(t, nullable.Bind(nil))
	assert.True(t, nullable.Bound())
	assert.Nil(t, nullable.Value)

	required, err := NewParameter("v1", models.ColumnSchema{Name: "ProductName", Type: models.TypeOf(models.KindString)})
	require.NoError(t, err)
	err = required.Bind(nil)
	require.ErrorIs(t, err, apperrors.ErrConversion)
	assert.False(t, required.Bound())
	assert.Contains(t, err.Error(), "ProductName")
}

func TestBindValues(t *testing.T) {
	stmt, err := CreateStatement(nil, InsertRowWithValues{}, orderDetailsTable(t))
	require.NoError(t, err)

	err = BindValues(stmt.Params, map[string]any{
		"OrderID":   10248,
		"ProductID": "11",
		"UnitPrice": "14.00",
		"Quantity":  json.Number("12"),
		"Discount":  0,
		"Ignored":   "extra keys are fine",
	})
	require.NoError(t, err)

	assert.Equal(t, int32(10248), stmt.Params[0].Value)
	assert.Equal(t, int32(11), stmt.Params[1].Value)
	assert.Equal(t, int16(12), stmt.Params[3].Value)
	assert.Equal(t, float32(0), stmt.Params[4].Value)
}

func TestBindValues_MissingRequired(t *testing.T) {
	stmt, err := CreateStatement(nil, DeleteRowWithKey{}, orderDetailsTable(t))
	require.NoError(t, err)

	err = BindValues(stmt.Params, map[string]any{"OrderID": 1})
	require.ErrorIs(t, err, apperrors.ErrConversion)

	var ce *apperrors.ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ProductID", ce.Column)
}
