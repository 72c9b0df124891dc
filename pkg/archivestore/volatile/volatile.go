// Package volatile implements an in-process archivestore.Store backed by a
// plain slice of archive rows, grounded on the teacher's
// pkg/resource/memory in-memory row table: no persistence, no locking
// beyond the advisory single-writer guard every store must provide.
package volatile

import (
	"sync"

	"github.com/kasuganosora/histore/pkg/archiveerr"
	"github.com/kasuganosora/histore/pkg/archiverow"
	"github.com/kasuganosora/histore/pkg/archivestore"
	"github.com/kasuganosora/histore/pkg/document"
)

// Store is a volatile, in-process archivestore.Store. The zero value is an
// empty archive at no committed version.
type Store struct {
	mu sync.Mutex

	rows    []*archiverow.Row
	meta    []archivestore.VersionMeta
	schemas []archivestore.SchemaVersion

	writing bool
}

// New returns an empty volatile store.
func New() *Store {
	return &Store{}
}

func (s *Store) snapshot() ([]*archiverow.Row, []archivestore.VersionMeta, []archivestore.SchemaVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]*archiverow.Row, len(s.rows))
	copy(rows, s.rows)
	meta := make([]archivestore.VersionMeta, len(s.meta))
	copy(meta, s.meta)
	schemas := make([]archivestore.SchemaVersion, len(s.schemas))
	copy(schemas, s.schemas)
	return rows, meta, schemas
}

// GetReader returns a reader over the archive as it stands right now; a
// later commit does not affect rows already returned to a prior reader
// (each reader holds its own copied snapshot), satisfying spec.md §5
// "snapshot isolation".
func (s *Store) GetReader() (archivestore.Reader, error) {
	rows, meta, schemas := s.snapshot()
	return &reader{rows: rows, meta: meta, schemas: schemas}, nil
}

// GetWriter opens a pending-write handle. Only one writer may be open at a
// time.
func (s *Store) GetWriter() (archivestore.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writing {
		return nil, &archiveerr.WriterBusyError{Archive: "volatile"}
	}
	s.writing = true
	return &writer{store: s}, nil
}

type reader struct {
	rows    []*archiverow.Row
	meta    []archivestore.VersionMeta
	schemas []archivestore.SchemaVersion
	pos     int
}

func (r *reader) Next() (*archiverow.Row, bool, error) {
	if r.pos >= len(r.rows) {
		return nil, false, nil
	}
	row := r.rows[r.pos]
	r.pos++
	return row, true, nil
}

func (r *reader) Close() error { return nil }

func (r *reader) SchemaHistory() []archivestore.SchemaVersion { return r.schemas }

func (r *reader) Versions() []archivestore.VersionMeta { return r.meta }

type writer struct {
	store   *Store
	pending []*archiverow.Row
	done    bool
}

func (w *writer) WriteRow(row *archiverow.Row) error {
	w.pending = append(w.pending, row)
	return nil
}

func (w *writer) Commit(meta archivestore.VersionMeta, schema []document.Column) error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	defer func() { w.store.writing = false; w.done = true }()

	w.store.rows = w.pending
	w.store.meta = append(w.store.meta, meta)
	w.store.schemas = append(w.store.schemas, archivestore.SchemaVersion{Version: meta.Version, Columns: schema})
	return nil
}

func (w *writer) Rollback() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.writing = false
	w.done = true
	w.pending = nil
	return nil
}
