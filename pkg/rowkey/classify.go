package rowkey

import "math"

// NullValue is the sentinel a document cell holds to mean "this row has no
// usable value for this key column" (including an explicit "unset"
// marker). ToKey classifies it into a fresh Null key.
type NullValue struct{}

// NewRowValue is the sentinel a cell can hold to mark a document row that
// has no prior archive counterpart (rowid == -1 in spec.md §4.3).
// document.DefaultReader does not use it; it builds its NewRow keys
// directly. ToKey classifies it into a fresh NewRow key.
type NewRowValue struct{}

// ToKey classifies a raw cell value into a Key following spec.md §4.2:
// numeric primitives become Number, strings become String, the Null/NewRow
// sentinels become identified Null/NewRow keys (using the supplied id, or a
// freshly generated one if id is empty), and anything else is rejected with
// UnkeyableValueError. NaN numbers are always rejected.
func ToKey(value any, id string) (Key, error) {
	switch v := value.(type) {
	case NullValue:
		if id == "" {
			return NewNull(), nil
		}
		return Null(id), nil
	case NewRowValue:
		if id == "" {
			return NewNewRow(), nil
		}
		return NewRow(id), nil
	case nil:
		if id == "" {
			return NewNull(), nil
		}
		return Null(id), nil
	case string:
		return String(v), nil
	case bool:
		// booleans are not declared numeric/string/null/new-row in
		// spec.md §4.2; treat as unkeyable rather than silently
		// coercing to 0/1.
		return Key{}, &UnkeyableValueError{Value: value}
	case int:
		return Number(float64(v)), nil
	case int8:
		return Number(float64(v)), nil
	case int16:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case uint:
		return Number(float64(v)), nil
	case uint8:
		return Number(float64(v)), nil
	case uint16:
		return Number(float64(v)), nil
	case uint32:
		return Number(float64(v)), nil
	case uint64:
		return Number(float64(v)), nil
	case float32:
		return numberOrErr(float64(v), value)
	case float64:
		return numberOrErr(v, value)
	default:
		return Key{}, &UnkeyableValueError{Value: value}
	}
}

func numberOrErr(v float64, original any) (Key, error) {
	if math.IsNaN(v) {
		return Key{}, &UnkeyableValueError{Value: original}
	}
	return Number(v), nil
}

// ToComposite classifies each element of values in order into a Composite
// key, passing ids[i] (when present) to ToKey as the identifier for a
// Null/NewRow component, so that two rows missing the same key column do
// not collide unless they were given the same id explicitly.
func ToComposite(values []any, ids []string) (Composite, error) {
	out := make(Composite, len(values))
	for i, v := range values {
		var id string
		if i < len(ids) {
			id = ids[i]
		}
		k, err := ToKey(v, id)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}
