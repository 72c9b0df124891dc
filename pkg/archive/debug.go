package archive

import (
	"fmt"
	"io"
	"sort"

	"github.com/kasuganosora/histore/pkg/archiverow"
	"github.com/kasuganosora/histore/pkg/timestamp"
)

// DebugDump writes a human-readable rendering of every archive row whose
// presence timestamp intersects [fromVersion, toVersion], in key order:
// the row's key, its position history, and its per-column value history,
// each entry tagged with the version range it holds for. It is grounded
// on the original histore/debug.py snapshot pretty-printer (see
// SPEC_FULL.md §9) but formatted the way the teacher renders its own
// debug/Stats strings, and is meant for operator troubleshooting, not the
// wire format (see pkg/rowcodec for that).
func (f *Facade) DebugDump(w io.Writer, fromVersion, toVersion int) error {
	window, err := timestamp.New(timestamp.Interval{Start: fromVersion, End: toVersion})
	if err != nil {
		return fmt.Errorf("archive: debug dump: %w", err)
	}

	r, err := f.store.GetReader()
	if err != nil {
		return fmt.Errorf("archive: debug dump: %w", err)
	}
	defer r.Close()

	for {
		row, ok, err := r.Next()
		if err != nil {
			return fmt.Errorf("archive: debug dump: read row: %w", err)
		}
		if !ok {
			return nil
		}
		if !row.PresenceTimestamp().Intersects(window) {
			continue
		}
		if err := dumpRow(w, row, window); err != nil {
			return err
		}
	}
}

func dumpRow(w io.Writer, row *archiverow.Row, window timestamp.Timestamp) error {
	if _, err := fmt.Fprintf(w, "%s present=%s\n", row.Key, row.PresenceTimestamp()); err != nil {
		return err
	}
	for _, p := range row.Positions {
		if !p.TS.Intersects(window) {
			continue
		}
		if _, err := fmt.Fprintf(w, "  position=%d at=%s\n", p.Position, p.TS); err != nil {
			return err
		}
	}

	colIDs := make([]int, 0, len(row.Values))
	for colID := range row.Values {
		colIDs = append(colIDs, colID)
	}
	sort.Ints(colIDs)
	for _, colID := range colIDs {
		for _, v := range row.Values[colID] {
			if !v.TS.Intersects(window) {
				continue
			}
			if _, err := fmt.Fprintf(w, "  col=%d value=%v at=%s\n", colID, v.Value, v.TS); err != nil {
				return err
			}
		}
	}
	return nil
}
