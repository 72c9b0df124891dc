// Package archiveerr collects the sentinel-wrapped error kinds shared by
// pkg/archivestore, pkg/merge and pkg/archive, grounded on the teacher's
// pkg/resource/domain/errors.go one-struct-per-kind style rather than
// errors.New strings.
package archiveerr

import (
	"fmt"

	"github.com/kasuganosora/histore/pkg/rowkey"
)

// OutOfOrderWriteError reports a ValidatingArchiveWriter call whose key is
// strictly less than the previous call's key.
type OutOfOrderWriteError struct {
	Prev, Got rowkey.Composite
}

func (e *OutOfOrderWriteError) Error() string {
	return fmt.Sprintf("archivestore: out-of-order write: %s then %s", e.Prev, e.Got)
}

// StreamUnorderedError reports that the archive or document stream fed to
// the merger was not strictly ascending by key.
type StreamUnorderedError struct {
	Stream    string
	Prev, Got rowkey.Composite
}

func (e *StreamUnorderedError) Error() string {
	return fmt.Sprintf("merge: %s stream not strictly ascending: %s then %s", e.Stream, e.Prev, e.Got)
}

// SchemaMismatchError reports that the archive and document schemas
// disagree on a required key column.
type SchemaMismatchError struct {
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("merge: schema mismatch: %s", e.Reason)
}

// WriterBusyError reports that another writer is already committing to the
// named archive.
type WriterBusyError struct {
	Archive string
}

func (e *WriterBusyError) Error() string {
	return fmt.Sprintf("archivestore: writer busy for archive %q", e.Archive)
}

// VersionNotFoundError reports a checkout/diff request for a version that
// was never committed.
type VersionNotFoundError struct {
	Version int
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("archive: version %d not found", e.Version)
}
