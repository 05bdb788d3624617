package querybuilder

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/ekaya-inc/ekaya-grid/pkg/models"
)

var (
	errNullNotAllowed = errors.New("column is not nullable")
	errMissingValue   = errors.New("no value supplied")
	errOutOfRange     = errors.New("value out of range")
	errNotIntegral    = errors.New("value has a fractional part")
	errNotFinite      = errors.New("value is not a finite number")
	errNotOneChar     = errors.New("value is not a single UTF-16 character")
	errBadType        = errors.New("unsupported source type")
)

// money is the range of the SQL Server money type.
var (
	moneyMax = decimal.RequireFromString("922337203685477.5807")
	moneyMin = decimal.RequireFromString("-922337203685477.5808")
)

// convert normalizes raw to the canonical Go type of kind:
//
//	uint8..int64, uint64  integer of that width
//	float32, float64      float of that width
//	decimal               decimal.Decimal
//	bool                  bool
//	string                string
//	char                  rune
//	guid                  uuid.UUID
//	datetime(offset)      time.Time
//	bytes                 []byte
func convert(kind models.Kind, raw any) (any, error) {
	if n, ok := raw.(json.Number); ok {
		raw = n.String()
	}

	switch kind {
	case models.KindUint8:
		v, err := toInt64InRange(raw, 0, math.MaxUint8)
		return uint8(v), err
	case models.KindInt8:
		v, err := toInt64InRange(raw, math.MinInt8, math.MaxInt8)
		return int8(v), err
	case models.KindInt16:
		v, err := toInt64InRange(raw, math.MinInt16, math.MaxInt16)
		return int16(v), err
	case models.KindUint16:
		v, err := toInt64InRange(raw, 0, math.MaxUint16)
		return uint16(v), err
	case models.KindInt32:
		v, err := toInt64InRange(raw, math.MinInt32, math.MaxInt32)
		return int32(v), err
	case models.KindUint32:
		v, err := toInt64InRange(raw, 0, math.MaxUint32)
		return uint32(v), err
	case models.KindInt64:
		return toInt64(raw)
	case models.KindUint64:
		return toUint64(raw)
	case models.KindFloat32:
		v, err := toFloat64(raw)
		if err != nil {
			return nil, err
		}
		if math.Abs(v) > math.MaxFloat32 {
			return nil, errOutOfRange
		}
		return float32(v), nil
	case models.KindFloat64:
		return toFloat64(raw)
	case models.KindDecimal:
		return toMoney(raw)
	case models.KindBool:
		return cast.ToBoolE(raw)
	case models.KindString:
		return cast.ToStringE(raw)
	case models.KindChar:
		return toChar(raw)
	case models.KindGUID:
		return toUUID(raw)
	case models.KindDateTime, models.KindDateTimeOffset:
		return cast.ToTimeE(raw)
	case models.KindBytes:
		return toBytes(raw)
	}
	return nil, fmt.Errorf("%w: %s", errBadType, kind)
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, errOutOfRange
		}
	case uint64:
		if v > math.MaxInt64 {
			return 0, errOutOfRange
		}
	case bool, nil:
		return 0, errBadType
	}
	return cast.ToInt64E(raw)
}

func toInt64InRange(raw any, lo, hi int64) (int64, error) {
	v, err := toInt64(raw)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, errOutOfRange
	}
	return v, nil
}

func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	if f != math.Trunc(f) {
		return 0, errNotIntegral
	}
	// 2^63 is exactly representable; anything at or above it overflows.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errOutOfRange
	}
	return int64(f), nil
}

func toUint64(raw any) (uint64, error) {
	switch v := raw.(type) {
	case string:
		return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case float32, float64:
		f := cast.ToFloat64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, errNotFinite
		}
		if f != math.Trunc(f) {
			return 0, errNotIntegral
		}
		if f < 0 || f >= math.MaxUint64 {
			return 0, errOutOfRange
		}
		return uint64(f), nil
	case decimal.Decimal:
		if !v.IsInteger() || v.IsNegative() || v.BigInt().BitLen() > 64 {
			return 0, errOutOfRange
		}
		return v.BigInt().Uint64(), nil
	}
	i, err := toInt64(raw)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, errOutOfRange
	}
	return uint64(i), nil
}

func toFloat64(raw any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	case decimal.Decimal:
		f = v.InexactFloat64()
	case bool, nil:
		err = errBadType
	default:
		f, err = cast.ToFloat64E(raw)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return decimal.Decimal{}, errNotFinite
		}
		return decimal.NewFromFloat32(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, errNotFinite
		}
		return decimal.NewFromFloat(v), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), nil
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(v)), 0), nil
	}
	i, err := toInt64(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromInt(i), nil
}

func toMoney(raw any) (decimal.Decimal, error) {
	d, err := toDecimal(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.GreaterThan(moneyMax) || d.LessThan(moneyMin) {
		return decimal.Decimal{}, errOutOfRange
	}
	return d, nil
}

// toChar accepts a one-character string or a code point. The value must fit
// a single UTF-16 code unit, which is what nchar(1) stores.
func toChar(raw any) (rune, error) {
	var r rune
	switch v := raw.(type) {
	case string:
		if !utf8.ValidString(v) || utf8.RuneCountInString(v) != 1 {
			return 0, errNotOneChar
		}
		r, _ = utf8.DecodeRuneInString(v)
	case rune:
		r = v
	default:
		i, err := toInt64InRange(raw, 0, utf8.MaxRune)
		if err != nil {
			return 0, err
		}
		r = rune(i)
	}
	if r > 0xFFFF || !utf8.ValidRune(r) {
		return 0, errNotOneChar
	}
	return r, nil
}

func toUUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		return uuid.FromBytes(v)
	case string:
		return uuid.Parse(strings.TrimSpace(v))
	}
	return uuid.Nil, errBadType
}

// toBytes accepts a byte slice or standard base64 text, the encoding
// encoding/json uses for []byte. Text is always base64: "0x12" decodes to
// d3 1d 76, never to 12.
func toBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return base64.StdEncoding.DecodeString(v)
	}
	return nil, errBadType
}
