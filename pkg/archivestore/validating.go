package archivestore

import (
	"github.com/kasuganosora/histore/pkg/archiverow"
	"github.com/kasuganosora/histore/pkg/archiveerr"
	"github.com/kasuganosora/histore/pkg/document"
	"github.com/kasuganosora/histore/pkg/rowkey"
)

// ValidatingArchiveWriter wraps any Writer and enforces spec.md §4.5's
// ordering contract: keys across distinct rows must strictly increase;
// a repeated call with the same key as the previous one is a permitted
// duplicate emission and is passed through unchanged; anything that goes
// backward fails with *archiveerr.OutOfOrderWriteError. Grounded on no
// single teacher file, but composed the way the teacher layers
// independent wrappers (MaintenanceManager, IndexManager) around a bare
// datasource rather than folding every concern into one type.
type ValidatingArchiveWriter struct {
	inner   Writer
	hasLast bool
	lastKey rowkey.Composite
}

// NewValidatingArchiveWriter wraps inner with key-order validation.
func NewValidatingArchiveWriter(inner Writer) *ValidatingArchiveWriter {
	return &ValidatingArchiveWriter{inner: inner}
}

func (w *ValidatingArchiveWriter) WriteRow(row *archiverow.Row) error {
	if w.hasLast {
		if c := rowkey.CompareComposite(w.lastKey, row.Key); c > 0 {
			return &archiveerr.OutOfOrderWriteError{Prev: w.lastKey, Got: row.Key}
		}
	}
	w.lastKey = row.Key
	w.hasLast = true
	return w.inner.WriteRow(row)
}

func (w *ValidatingArchiveWriter) Commit(meta VersionMeta, schema []document.Column) error {
	return w.inner.Commit(meta, schema)
}

func (w *ValidatingArchiveWriter) Rollback() error {
	return w.inner.Rollback()
}
