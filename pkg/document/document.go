// Package document defines the restartable, lazy row source that feeds the
// external sort (pkg/extsort) and, transitively, the nested merger
// (pkg/merge). A document exposes an ordered column list and can be opened
// more than once, each time yielding the same sequence of rows. The sort
// stage reads its input in a single pass; the sorted source it returns is
// itself restartable.
package document

import "github.com/kasuganosora/histore/pkg/rowkey"

// Column identifies one field of a document or archive row. Two columns
// with the same Name are not equal unless their ID also matches, so a
// column can be renamed without losing its identity across schema
// evolution (spec.md §6 "Schema evolution").
type Column struct {
	ID   int
	Name string
}

// Row is one (position, key, cells) triple as read from a document, per
// spec.md §3 "Document row". Key is always a Composite so that both plain
// keys (the common, single-component case) and multi-column annotated keys
// share one representation and one comparator (rowkey.CompareComposite).
type Row struct {
	// Position is the original 0-based insertion order in the snapshot.
	Position int
	// Key is the row's key: derived from cells for annotated readers; for
	// the default reader, {NumberKey(RowID)} when the file supplies a row
	// id and a position-derived {NewRow} otherwise.
	Key rowkey.Composite
	// Cells maps column ID to cell value.
	Cells map[int]any
}

// RowIter is a pull-based, forward-only iterator over document rows.
// Next returns (row, true, nil) while rows remain, (zero, false, nil) at
// end of stream, and (zero, false, err) on failure.
type RowIter interface {
	Next() (Row, bool, error)
	Close() error
}

// Source is a document: an ordered column list plus a restartable row
// sequence.
type Source interface {
	Columns() []Column
	Open() (RowIter, error)
}

// sliceIter adapts an in-memory []Row to RowIter. It's used by both the
// default in-memory Source implementation below and by tests.
type sliceIter struct {
	rows []Row
	pos  int
}

func (it *sliceIter) Next() (Row, bool, error) {
	if it.pos >= len(it.rows) {
		return Row{}, false, nil
	}
	r := it.rows[it.pos]
	it.pos++
	return r, true, nil
}

func (it *sliceIter) Close() error { return nil }

// Slice is an in-memory Source, mainly useful for tests and for small
// documents that don't warrant a file-backed adapter.
type Slice struct {
	Cols []Column
	Rows []Row
}

func (s *Slice) Columns() []Column { return s.Cols }

func (s *Slice) Open() (RowIter, error) {
	rows := make([]Row, len(s.Rows))
	copy(rows, s.Rows)
	return &sliceIter{rows: rows}, nil
}
