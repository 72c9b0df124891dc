// Package rowcodec implements the line-delimited JSON wire format of
// spec.md §6: document rows as plain arrays, archive rows as objects with
// key/pos/cells, reserved tag encodings for datetime/date/time/null/new
// values, and optional gzip compression. It is grounded on the teacher's
// pkg/resource/badger/row_codec.go, which isolates a narrow encode/decode
// type so callers never see the wire format directly.
package rowcodec

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kasuganosora/histore/pkg/rowkey"
)

// Date wraps a calendar date with no time-of-day component, encoded with
// the "$date" tag.
type Date struct{ time.Time }

// TimeOfDay wraps a time-of-day value with no date component, encoded with
// the "$time" tag.
type TimeOfDay struct{ time.Time }

const (
	tagDateTime = "$datetime"
	tagDate     = "$date"
	tagTime     = "$time"
	tagNull     = "$null"
	tagNew      = "$new"
)

// EncodingError reports a cell value that the codec cannot represent.
type EncodingError struct {
	Value any
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("rowcodec: value %#v is not serializable", e.Value)
}

// encodeValue converts a raw cell value into a form encoding/json can
// marshal directly, applying the tagged encodings for date/time values.
func encodeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return x, nil
	case float32:
		return checkedFloat(float64(x))
	case float64:
		return checkedFloat(x)
	case time.Time:
		return map[string]any{tagDateTime: x.Format(time.RFC3339Nano)}, nil
	case Date:
		return map[string]any{tagDate: x.Format("2006-01-02")}, nil
	case TimeOfDay:
		return map[string]any{tagTime: x.Format("15:04:05.999999999")}, nil
	default:
		return nil, &EncodingError{Value: v}
	}
}

func checkedFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &EncodingError{Value: f}
	}
	return f, nil
}

// ValuesEqual implements spec.md §4.7's cell-value equality: numeric
// equality on numbers, exact equality on strings/booleans/nulls, and
// byte-for-byte equality on serialized dates/times (compared via their
// encoded wire form so Date/TimeOfDay values with equal calendar fields
// but different internal time.Time state still compare equal).
func ValuesEqual(a, b any) bool {
	ea, erra := encodeValue(a)
	eb, errb := encodeValue(b)
	if erra != nil || errb != nil {
		return false
	}
	aj, erra := json.Marshal(ea)
	bj, errb := json.Marshal(eb)
	if erra != nil || errb != nil {
		return false
	}
	return string(aj) == string(bj)
}

// decodeValue reverses encodeValue, recognizing the tagged map encodings.
func decodeValue(raw any) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw, nil
	}
	if s, ok := m[tagDateTime].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: decode $datetime %q: %w", s, err)
		}
		return t, nil
	}
	if s, ok := m[tagDate].(string); ok {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: decode $date %q: %w", s, err)
		}
		return Date{t}, nil
	}
	if s, ok := m[tagTime].(string); ok {
		t, err := time.Parse("15:04:05.999999999", s)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: decode $time %q: %w", s, err)
		}
		return TimeOfDay{t}, nil
	}
	return raw, nil
}

// encodeKeyPart converts one rowkey.Key into its JSON form: Number and
// String pass through as their native JSON type, Null/NewRow use the
// "$null"/"$new" tags carrying their stable identifier.
func encodeKeyPart(k rowkey.Key) any {
	switch k.Kind() {
	case rowkey.KindNumber:
		return k.NumberValue()
	case rowkey.KindString:
		return k.StringValue()
	case rowkey.KindNull:
		return map[string]any{tagNull: k.ID()}
	case rowkey.KindNewRow:
		return map[string]any{tagNew: k.ID()}
	default:
		return nil
	}
}

// decodeKeyPart reverses encodeKeyPart.
func decodeKeyPart(raw any) (rowkey.Key, error) {
	switch v := raw.(type) {
	case float64:
		return rowkey.Number(v), nil
	case string:
		return rowkey.String(v), nil
	case map[string]any:
		if id, ok := v[tagNull].(string); ok {
			return rowkey.Null(id), nil
		}
		if id, ok := v[tagNew].(string); ok {
			return rowkey.NewRow(id), nil
		}
		return rowkey.Key{}, fmt.Errorf("rowcodec: unrecognized tagged key part %v", v)
	default:
		return rowkey.Key{}, fmt.Errorf("rowcodec: unrecognized key part %#v", raw)
	}
}

// EncodeKey converts a composite key into its JSON array form.
func EncodeKey(key rowkey.Composite) []any {
	out := make([]any, len(key))
	for i, k := range key {
		out[i] = encodeKeyPart(k)
	}
	return out
}

// DecodeKey reverses EncodeKey.
func DecodeKey(raw []any) (rowkey.Composite, error) {
	out := make(rowkey.Composite, len(raw))
	for i, part := range raw {
		k, err := decodeKeyPart(part)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}
