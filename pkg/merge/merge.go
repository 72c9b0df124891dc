// Package merge implements the nested-merge algorithm of spec.md §4.6: a
// single synchronized pass over an ascending-by-key archive row stream and
// an ascending-by-key document row stream, emitting the next archive
// generation by carrying forward unmatched archive rows, materializing new
// rows for unmatched document rows, and updating rows that match on both
// sides. It is the repository's hard core and has no teacher analogue —
// the teacher has no append-only multi-version merge — so its control flow
// is written the way the teacher writes its own hand-rolled iteration
// helpers (explicit two-cursor loops with drain-the-rest tails), rather
// than reaching for a generic "merge" library.
package merge

import (
	"fmt"

	"github.com/kasuganosora/histore/pkg/archiveerr"
	"github.com/kasuganosora/histore/pkg/archiverow"
	"github.com/kasuganosora/histore/pkg/archivestore"
	"github.com/kasuganosora/histore/pkg/document"
	"github.com/kasuganosora/histore/pkg/rowcodec"
	"github.com/kasuganosora/histore/pkg/rowkey"
	"github.com/kasuganosora/histore/pkg/timestamp"
)

// archiveCursor pulls archiverow.Row values from a Reader while checking
// that keys strictly ascend, per spec.md §4.6 "StreamUnordered".
type archiveCursor struct {
	r       archivestore.Reader
	cur     *archiverow.Row
	ok      bool
	have    bool
	lastKey rowkey.Composite
}

func newArchiveCursor(r archivestore.Reader) (*archiveCursor, error) {
	c := &archiveCursor{r: r}
	if err := c.advance(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *archiveCursor) advance() error {
	row, ok, err := c.r.Next()
	if err != nil {
		return fmt.Errorf("merge: read archive row: %w", err)
	}
	if !ok {
		c.cur, c.ok = nil, false
		return nil
	}
	if c.have && rowkey.CompareComposite(c.lastKey, row.Key) >= 0 {
		return &archiveerr.StreamUnorderedError{Stream: "archive", Prev: c.lastKey, Got: row.Key}
	}
	c.lastKey = row.Key
	c.have = true
	c.cur, c.ok = row, true
	return nil
}

// docCursor pulls document.Row values from a RowIter while checking that
// keys strictly ascend.
type docCursor struct {
	it      document.RowIter
	cur     document.Row
	ok      bool
	have    bool
	lastKey rowkey.Composite
}

func newDocCursor(it document.RowIter) (*docCursor, error) {
	c := &docCursor{it: it}
	if err := c.advance(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *docCursor) advance() error {
	row, ok, err := c.it.Next()
	if err != nil {
		return fmt.Errorf("merge: read document row: %w", err)
	}
	if !ok {
		c.cur, c.ok = document.Row{}, false
		return nil
	}
	if c.have && rowkey.CompareComposite(c.lastKey, row.Key) >= 0 {
		return &archiveerr.StreamUnorderedError{Stream: "document", Prev: c.lastKey, Got: row.Key}
	}
	c.lastKey = row.Key
	c.have = true
	c.cur, c.ok = row, true
	return nil
}

// RequireKeyColumns validates that every column id the document was keyed
// on (per an AnnotatedReader's KeyColumnIDs, or nil for the default
// reader) still appears in the document's own column list, per spec.md
// §4.6 "SchemaMismatch": a missing required key column means the document
// cannot be reconciled against the archive's row identity at all.
func RequireKeyColumns(cols []document.Column, keyColumnIDs []int) error {
	if len(keyColumnIDs) == 0 {
		return nil
	}
	present := make(map[int]bool, len(cols))
	for _, c := range cols {
		present[c.ID] = true
	}
	for _, id := range keyColumnIDs {
		if !present[id] {
			return &archiveerr.SchemaMismatchError{Reason: fmt.Sprintf("key column %d is not present in the document's column list", id)}
		}
	}
	return nil
}

// Merge performs the nested merge: it co-iterates archiveReader (the
// current archive, ascending by key) and docIter (the sorted incoming
// document, ascending by key), emitting one archive row per distinct key
// to w, tagged with version v. On any error, the caller is responsible for
// invoking the store's Rollback (spec.md §4.6 "All failures abort the
// commit").
func Merge(archiveReader archivestore.Reader, docIter document.RowIter, v int, w archivestore.Writer) error {
	a, err := newArchiveCursor(archiveReader)
	if err != nil {
		return err
	}
	d, err := newDocCursor(docIter)
	if err != nil {
		return err
	}

	for a.ok && d.ok {
		cmp := rowkey.CompareComposite(a.cur.Key, d.cur.Key)
		switch {
		case cmp < 0:
			if err := w.WriteRow(carryForward(a.cur)); err != nil {
				return fmt.Errorf("merge: write carried-forward row: %w", err)
			}
			if err := a.advance(); err != nil {
				return err
			}
		case cmp > 0:
			if err := w.WriteRow(materializeNew(d.cur, v)); err != nil {
				return fmt.Errorf("merge: write new row: %w", err)
			}
			if err := d.advance(); err != nil {
				return err
			}
		default:
			if err := w.WriteRow(update(a.cur, d.cur, v)); err != nil {
				return fmt.Errorf("merge: write updated row: %w", err)
			}
			if err := a.advance(); err != nil {
				return err
			}
			if err := d.advance(); err != nil {
				return err
			}
		}
	}

	for a.ok {
		if err := w.WriteRow(carryForward(a.cur)); err != nil {
			return fmt.Errorf("merge: write carried-forward row: %w", err)
		}
		if err := a.advance(); err != nil {
			return err
		}
	}
	for d.ok {
		if err := w.WriteRow(materializeNew(d.cur, v)); err != nil {
			return fmt.Errorf("merge: write new row: %w", err)
		}
		if err := d.advance(); err != nil {
			return err
		}
	}
	return nil
}

// carryForward emits a unchanged: its presence timestamp is not extended
// to include the new version, marking the row absent from it.
func carryForward(a *archiverow.Row) *archiverow.Row {
	return a
}

// materializeNew creates a fresh archive row for a document row with no
// archive counterpart: keys from the document's NewRow kind always land
// here, since NewRow outranks every data key kind (spec.md §4.6
// "Key-absence semantics").
func materializeNew(d document.Row, v int) *archiverow.Row {
	ts := timestamp.Single(v)
	values := make(map[int][]archiverow.ValueEntry, len(d.Cells))
	for colID, val := range d.Cells {
		values[colID] = []archiverow.ValueEntry{{Value: val, TS: ts}}
	}
	return &archiverow.Row{
		Key:       d.Key,
		Positions: []archiverow.PositionEntry{{Position: d.Position, TS: ts}},
		Values:    values,
	}
}

// update reconciles an existing archive row with a document row sharing
// its key: matching cell values have their timestamp extended (coalescing
// per the timestamp algebra); changed or new cell values get a fresh
// entry; columns present in a but absent from d keep their prior entries
// untouched. The position history follows the same extend-or-append rule.
func update(a *archiverow.Row, d document.Row, v int) *archiverow.Row {
	out := a.Clone()
	out.Positions = mergePositions(out.Positions, d.Position, v)

	for colID, val := range d.Cells {
		entries := out.Values[colID]
		if len(entries) > 0 {
			last := &entries[len(entries)-1]
			if rowcodec.ValuesEqual(last.Value, val) {
				extended, err := last.TS.Append(v)
				if err == nil {
					last.TS = extended
					out.Values[colID] = entries
					continue
				}
				// last.TS already contains v or is otherwise non-monotonic
				// (can't happen in a well-formed single-writer commit
				// sequence); fall through and append a new entry rather
				// than silently drop the update.
			}
		}
		out.Values[colID] = append(entries, archiverow.ValueEntry{Value: val, TS: timestamp.Single(v)})
	}
	return out
}

// mergePositions extends the most recent position entry's timestamp when
// it already equals newPos, otherwise appends a new positional entry.
func mergePositions(positions []archiverow.PositionEntry, newPos, v int) []archiverow.PositionEntry {
	if len(positions) > 0 {
		last := &positions[len(positions)-1]
		if last.Position == newPos {
			if extended, err := last.TS.Append(v); err == nil {
				last.TS = extended
				return positions
			}
		}
	}
	return append(positions, archiverow.PositionEntry{Position: newPos, TS: timestamp.Single(v)})
}
