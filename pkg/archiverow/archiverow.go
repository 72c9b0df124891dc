// Package archiverow defines the archive row model of spec.md §3: a row
// key plus a position history and, per column, a value history, each entry
// tagged with the set of versions (a timestamp.Timestamp) for which it
// holds.
package archiverow

import (
	"github.com/kasuganosora/histore/pkg/rowkey"
	"github.com/kasuganosora/histore/pkg/timestamp"
)

// PositionEntry is one placement of a row within a version range.
type PositionEntry struct {
	Position int
	TS       timestamp.Timestamp
}

// ValueEntry is one cell value within a version range.
type ValueEntry struct {
	Value any
	TS    timestamp.Timestamp
}

// Row is one archive row: a unique key, its position history, and its
// per-column value history.
type Row struct {
	Key       rowkey.Composite
	Positions []PositionEntry
	Values    map[int][]ValueEntry // colid -> history
}

// PresenceTimestamp returns the union of every position entry's timestamp,
// i.e. the set of versions in which this row exists at all. Per spec.md
// §3, every column's value-history timestamps must union to exactly this
// set; PresenceTimestamp is therefore the row's single source of truth and
// is never stored redundantly.
func (r *Row) PresenceTimestamp() timestamp.Timestamp {
	ts := timestamp.Empty()
	for _, p := range r.Positions {
		ts = ts.Union(p.TS)
	}
	return ts
}

// PositionAt returns the position this row occupies in version v and
// whether the row is present at all in v.
func (r *Row) PositionAt(v int) (int, bool) {
	for i := len(r.Positions) - 1; i >= 0; i-- {
		if r.Positions[i].TS.Contains(v) {
			return r.Positions[i].Position, true
		}
	}
	return 0, false
}

// ValueAt returns the cell value for colid in version v and whether one
// exists (it may not, if the column was added in a later version or the
// row is absent in v).
func (r *Row) ValueAt(colid, v int) (any, bool) {
	for i := len(r.Values[colid]) - 1; i >= 0; i-- {
		entry := r.Values[colid][i]
		if entry.TS.Contains(v) {
			return entry.Value, true
		}
	}
	return nil, false
}

// Clone returns a deep-enough copy of r: the Positions slice and Values map
// are copied, but timestamp.Timestamp values are themselves immutable so
// their internal slices are safely shared.
func (r *Row) Clone() *Row {
	out := &Row{
		Key:       r.Key,
		Positions: append([]PositionEntry(nil), r.Positions...),
		Values:    make(map[int][]ValueEntry, len(r.Values)),
	}
	for col, entries := range r.Values {
		out.Values[col] = append([]ValueEntry(nil), entries...)
	}
	return out
}
