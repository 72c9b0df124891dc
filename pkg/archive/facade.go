// Package archive implements the archive façade of spec.md §4.7: the
// single entry point that binds committed versions to checkoutable
// snapshots and drives a commit (sort + nested merge + store commit) or a
// diff between two versions. It is grounded on no single teacher file —
// the teacher has no append-only archive concept — but composes the
// lower layers (pkg/extsort, pkg/merge, pkg/archivestore) the way the
// teacher's own service layer (service/resource) composes its
// datasource/cache/index managers into one facing API.
package archive

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/kasuganosora/histore/pkg/archiveerr"
	"github.com/kasuganosora/histore/pkg/archiverow"
	"github.com/kasuganosora/histore/pkg/archivestore"
	"github.com/kasuganosora/histore/pkg/document"
	"github.com/kasuganosora/histore/pkg/extsort"
	"github.com/kasuganosora/histore/pkg/merge"
	"github.com/kasuganosora/histore/pkg/rowkey"
)

// ProjectedRow is one row as it exists at a single checked-out version: the
// position it occupied and its per-column cell values at that version,
// per spec.md §4.7 "Projection at version v".
type ProjectedRow struct {
	Position int
	Key      rowkey.Composite
	Cells    map[int]any
}

// Facade is the archive façade bound to one archivestore.Store.
type Facade struct {
	store archivestore.Store
	sort  extsort.Options
	cache *ristretto.Cache[int, []ProjectedRow]
}

// Options configures a Facade.
type Options struct {
	// SortOptions configures the external sort stage of Commit.
	SortOptions extsort.Options
	// CacheMaxCost bounds the per-version checkout cache; each cached
	// version costs its projected row count plus one. Zero disables caching.
	CacheMaxCost int64
}

// New builds a Facade over store. When opts.CacheMaxCost is positive, a
// ristretto cache (already a teacher transitive dependency via badger) is
// wired to memoize Checkout results per version, since the same version is
// often checked out repeatedly by a curation pipeline inspecting history.
func New(store archivestore.Store, opts Options) (*Facade, error) {
	f := &Facade{store: store, sort: opts.SortOptions}
	if opts.CacheMaxCost > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[int, []ProjectedRow]{
			NumCounters: opts.CacheMaxCost * 10,
			MaxCost:     opts.CacheMaxCost,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("archive: create checkout cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Snapshots returns the metadata of every committed version, in commit
// order.
func (f *Facade) Snapshots() ([]archivestore.VersionMeta, error) {
	r, err := f.store.GetReader()
	if err != nil {
		return nil, fmt.Errorf("archive: snapshots: %w", err)
	}
	defer r.Close()
	return r.Versions(), nil
}

// nextVersion returns the version id Commit should allocate: one past the
// highest committed version, or 0 for an empty archive.
func nextVersion(meta []archivestore.VersionMeta) int {
	next := 0
	for _, m := range meta {
		if m.Version+1 > next {
			next = m.Version + 1
		}
	}
	return next
}

// Commit performs spec.md §4.7's commit: external-sort the document,
// nested-merge it against the current archive, and atomically install the
// result as a new version. keyColumnIDs, when non-nil, names the column
// ids doc was keyed on (for an AnnotatedReader-backed source) so Commit can
// fail fast with SchemaMismatchError before doing any I/O if the document
// no longer carries them. On any failure the store is rolled back and no
// version id is consumed.
func (f *Facade) Commit(doc document.Source, meta archivestore.VersionMeta, keyColumnIDs []int) (archivestore.VersionMeta, error) {
	if err := merge.RequireKeyColumns(doc.Columns(), keyColumnIDs); err != nil {
		return archivestore.VersionMeta{}, err
	}

	existingMeta, err := f.Snapshots()
	if err != nil {
		return archivestore.VersionMeta{}, err
	}
	version := nextVersion(existingMeta)

	sorted, err := extsort.Sort(doc, f.sort)
	if err != nil {
		return archivestore.VersionMeta{}, fmt.Errorf("archive: commit: sort document: %w", err)
	}
	defer sorted.Remove()

	archiveReader, err := f.store.GetReader()
	if err != nil {
		return archivestore.VersionMeta{}, fmt.Errorf("archive: commit: open archive reader: %w", err)
	}
	defer archiveReader.Close()

	writer, err := f.store.GetWriter()
	if err != nil {
		return archivestore.VersionMeta{}, fmt.Errorf("archive: commit: %w", err)
	}
	vw := archivestore.NewValidatingArchiveWriter(writer)

	docIter, err := sorted.Open()
	if err != nil {
		writer.Rollback()
		return archivestore.VersionMeta{}, fmt.Errorf("archive: commit: open sorted document: %w", err)
	}
	defer docIter.Close()

	if err := merge.Merge(archiveReader, docIter, version, vw); err != nil {
		writer.Rollback()
		return archivestore.VersionMeta{}, fmt.Errorf("archive: commit: merge: %w", err)
	}

	meta.Version = version
	if meta.CommittedAt.IsZero() {
		meta.CommittedAt = time.Now()
	}
	if err := vw.Commit(meta, doc.Columns()); err != nil {
		writer.Rollback()
		return archivestore.VersionMeta{}, fmt.Errorf("archive: commit: install: %w", err)
	}
	if f.cache != nil {
		f.cache.Clear()
	}
	return meta, nil
}

// Checkout replays the archive stream and projects each row at version,
// per spec.md §4.7 "Projection at version v". Rows absent from version are
// omitted.
func (f *Facade) Checkout(version int) ([]ProjectedRow, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(version); ok {
			return cached, nil
		}
	}

	r, err := f.store.GetReader()
	if err != nil {
		return nil, fmt.Errorf("archive: checkout: %w", err)
	}
	defer r.Close()

	if !versionExists(r.Versions(), version) {
		return nil, &archiveerr.VersionNotFoundError{Version: version}
	}

	var out []ProjectedRow
	for {
		row, ok, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("archive: checkout: read row: %w", err)
		}
		if !ok {
			break
		}
		pos, present := row.PositionAt(version)
		if !present {
			continue
		}
		out = append(out, ProjectedRow{Position: pos, Key: row.Key, Cells: projectCells(row, version)})
	}

	if f.cache != nil {
		f.cache.Set(version, out, int64(len(out))+1)
	}
	return out, nil
}

func projectCells(row *archiverow.Row, version int) map[int]any {
	cells := make(map[int]any, len(row.Values))
	for colID := range row.Values {
		if v, ok := row.ValueAt(colID, version); ok {
			cells[colID] = v
		}
	}
	return cells
}

func versionExists(meta []archivestore.VersionMeta, version int) bool {
	for _, m := range meta {
		if m.Version == version {
			return true
		}
	}
	return false
}
