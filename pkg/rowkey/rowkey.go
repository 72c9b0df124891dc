// Package rowkey implements the totally ordered, heterogeneous row-key
// model used to align document rows with archive rows across versions.
//
// A Key is one of four kinds, in ascending order: Number, String, Null, and
// NewRow. Number and String compare by their natural ordering; Null and
// NewRow carry a stable identifier, and two keys of one of these kinds
// compare by their identifiers.
package rowkey

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Kind discriminates the four row-key cases. Its ordinal is the primary
// comparison axis between keys of different kinds.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindNull
	KindNewRow
)

// UnkeyableValueError reports a value that cannot be classified into any Key
// kind, e.g. a NaN number or an unsupported container type.
type UnkeyableValueError struct {
	Value any
}

func (e *UnkeyableValueError) Error() string {
	return fmt.Sprintf("value %#v cannot be used as a row key", e.Value)
}

// Key is a single row-key component. Composite keys are represented as
// Composite, a slice of Key compared lexicographically.
type Key struct {
	kind   Kind
	number float64
	str    string
	id     string
}

// Number constructs a Number key.
func Number(v float64) Key { return Key{kind: KindNumber, number: v} }

// String constructs a String key.
func String(v string) Key { return Key{kind: KindString, str: v} }

// Null constructs a Null key with the given stable identifier.
func Null(id string) Key { return Key{kind: KindNull, id: id} }

// NewRow constructs a NewRow key with the given stable identifier.
func NewRow(id string) Key { return Key{kind: KindNewRow, id: id} }

// NewNull constructs a Null key with a freshly generated identifier.
func NewNull() Key { return Null(uuid.NewString()) }

// NewNewRow constructs a NewRow key with a freshly generated identifier.
func NewNewRow() Key { return NewRow(uuid.NewString()) }

// Kind reports which of the four cases k is.
func (k Key) Kind() Kind { return k.kind }

// NumberValue returns the numeric value of a Number key. It panics if k is
// not a Number key; callers should check Kind first.
func (k Key) NumberValue() float64 {
	if k.kind != KindNumber {
		panic("rowkey: NumberValue called on non-Number key")
	}
	return k.number
}

// StringValue returns the string value of a String key. It panics if k is
// not a String key.
func (k Key) StringValue() string {
	if k.kind != KindString {
		panic("rowkey: StringValue called on non-String key")
	}
	return k.str
}

// ID returns the stable identifier of a Null or NewRow key. It panics for
// any other kind.
func (k Key) ID() string {
	if k.kind != KindNull && k.kind != KindNewRow {
		panic("rowkey: ID called on a key with no identifier")
	}
	return k.id
}

// String renders the fixed diagnostic representation used in
// snapshot-diagnostic output: Number prints the numeric value, String
// prints itself, Null prints "<Null (id)>", NewRow prints "<NewRow (id)>".
func (k Key) String() string {
	switch k.kind {
	case KindNumber:
		return formatNumber(k.number)
	case KindString:
		return k.str
	case KindNull:
		return fmt.Sprintf("<Null (%s)>", k.id)
	case KindNewRow:
		return fmt.Sprintf("<NewRow (%s)>", k.id)
	default:
		return "<invalid key>"
	}
}

// MarshalJSON renders the key via its diagnostic String representation.
// This is for ad hoc debug/CLI output only; pkg/rowcodec owns the actual
// wire encoding (tagged $null/$new objects) used for persistence.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than
// b. Keys of different kinds compare by kind ordinal (Number < String <
// Null < NewRow); keys of the same kind compare by value (Number, String)
// or by identifier (Null, NewRow).
func Compare(a, b Key) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.number < b.number:
			return -1
		case a.number > b.number:
			return 1
		default:
			return 0
		}
	case KindString:
		switch {
		case a.str < b.str:
			return -1
		case a.str > b.str:
			return 1
		default:
			return 0
		}
	case KindNull, KindNewRow:
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// Equals reports whether a and b denote the same key.
func Equals(a, b Key) bool { return Compare(a, b) == 0 }

// Composite is a tuple of Keys compared lexicographically component-wise.
// It is itself used as one side of Compare via CompareComposite.
type Composite []Key

// CompareComposite compares two composite keys lexicographically. Shorter
// tuples compare less than longer tuples that agree on every shared
// component (mirroring Go's slice-comparison convention), though in
// practice every composite key compared within one archive has the same
// arity.
func CompareComposite(a, b Composite) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func (c Composite) String() string {
	s := "("
	for i, k := range c {
		if i > 0 {
			s += ", "
		}
		s += k.String()
	}
	return s + ")"
}
