// Package archivestore defines the archive storage abstraction of spec.md
// §4.5: a pending-write handle that accepts archive rows in ascending key
// order, a commit/rollback pair that atomically installs or discards that
// stream, and a reader over the current committed archive. Two concrete
// stores implement it: volatile (in-process) and badgerstore
// (github.com/dgraph-io/badger/v4-backed).
package archivestore

import (
	"time"

	"github.com/kasuganosora/histore/pkg/archiverow"
	"github.com/kasuganosora/histore/pkg/document"
)

// VersionMeta is the metadata recorded for one committed version, per
// spec.md §3 "Version": a wall-clock timestamp and an optional label and
// description.
type VersionMeta struct {
	Version     int
	CommittedAt time.Time
	Label       string
	Description string
}

// SchemaVersion binds a column list to the version it became active, per
// spec.md §6 "Schema evolution".
type SchemaVersion struct {
	Version int
	Columns []document.Column
}

// Reader is a forward-only iterator over archive rows in ascending key
// order, plus accessors for schema history and committed version metadata.
// A Reader observes the archive as it stood when the reader was opened,
// even if a commit completes afterward (spec.md §5 "snapshot isolation").
type Reader interface {
	Next() (*archiverow.Row, bool, error)
	Close() error
	SchemaHistory() []SchemaVersion
	Versions() []VersionMeta
}

// Writer accepts archive rows, in ascending key order, for one pending
// commit. Commit installs the written stream as the new current archive
// and records meta/schema; Rollback discards it and releases any
// temporary storage. Exactly one of Commit or Rollback must be called.
type Writer interface {
	WriteRow(row *archiverow.Row) error
	Commit(meta VersionMeta, schema []document.Column) error
	Rollback() error
}

// Store is the archive storage abstraction.
type Store interface {
	// GetReader opens a reader over the current committed archive.
	GetReader() (Reader, error)
	// GetWriter opens a pending-write handle for the next commit. Only
	// one writer may be open per archive at a time; a second concurrent
	// call fails with *archiveerr.WriterBusyError.
	GetWriter() (Writer, error)
}
