package document

import (
	"strconv"

	"github.com/kasuganosora/histore/pkg/rowkey"
)

// RawRow is what a file-format adapter (csvdoc, jsonldoc, ...) produces
// before a Reader assigns it a row key: the original rowid as declared by
// the file (or -1 when the file has no row-id concept, e.g. a freshly
// appended row) plus its cells.
type RawRow struct {
	Position int
	RowID    int64
	HasRowID bool
	Cells    map[int]any
}

// Reader turns a RawRow into a keyed document Row's Composite key.
type Reader interface {
	Key(row RawRow) (rowkey.Composite, error)
}

// DefaultReader implements spec.md §4.3's default reader: rows whose RowID
// is a valid integer get {NumberKey(RowID)}; rows with RowID == -1 (or no
// RowID at all) get a {NewRow} key with an identifier derived from the
// row's position, so repeated opens of the same source reproduce the same
// key (spec.md §4.3/§9 restartability) instead of a fresh random one.
type DefaultReader struct{}

func (DefaultReader) Key(row RawRow) (rowkey.Composite, error) {
	if !row.HasRowID || row.RowID == -1 {
		return rowkey.Composite{rowkey.NewRow(strconv.Itoa(row.Position))}, nil
	}
	return rowkey.Composite{rowkey.Number(float64(row.RowID))}, nil
}

// AnnotatedReader implements spec.md §4.3's annotated reader: it projects
// the key from the row's cells using an ordered list of key column IDs. A
// missing or null cell becomes a NullKey with a stable identifier scoped to
// (position, column) so that repeated opens of the same source produce the
// same key. Composite keys are built in KeyColumnIDs order.
type AnnotatedReader struct {
	KeyColumnIDs []int
}

func (r AnnotatedReader) Key(row RawRow) (rowkey.Composite, error) {
	parts := make(rowkey.Composite, len(r.KeyColumnIDs))
	for i, colID := range r.KeyColumnIDs {
		v, ok := row.Cells[colID]
		id := stableMissingID(row.Position, colID)
		if !ok || v == nil {
			parts[i] = rowkey.Null(id)
			continue
		}
		k, err := rowkey.ToKey(v, id)
		if err != nil {
			return nil, err
		}
		parts[i] = k
	}
	return parts, nil
}

func stableMissingID(position, colID int) string {
	// Deterministic per (position, column) so re-opening the same source
	// reproduces the same key, satisfying restartability.
	return strconv.Itoa(position) + ":" + strconv.Itoa(colID)
}
