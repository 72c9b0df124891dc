// Package extsort sorts a document.Source by composite key using a
// two-phase external mergesort bounded by a byte-size buffer, per spec.md
// §4 "External sort". It is grounded on the teacher's
// pkg/resource/badger/row_codec.go for the run-file wire format (reused
// here as pkg/rowcodec) and on pkg/resource/badger/maintenance.go for the
// scoped-resource lifecycle now carried by runSet.
package extsort

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/kasuganosora/histore/pkg/document"
	"github.com/kasuganosora/histore/pkg/rowcodec"
	"github.com/kasuganosora/histore/pkg/rowkey"
)

const defaultBufferSize = 16 * 1024 * 1024

// Options configures a Sort call.
type Options struct {
	// BufferSize is the estimated byte threshold that triggers a run
	// flush during the split phase. Defaults to 16MiB.
	BufferSize int64
	// TempDir is the parent directory for scratch run files and the
	// final sorted file. Defaults to os.TempDir().
	TempDir string
	// Compression selects the wire compression used for run files and
	// the final sorted file.
	Compression rowcodec.Compression
	// Logger receives one line per run flush, e.g. "extsort: flushed run
	// <dir>/run-00003.ndjson (4.2 MB, 1200 rows)". Nil disables logging.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	return o
}

func runSuffix(c rowcodec.Compression) string {
	if c == rowcodec.CompressionGzip {
		return ".ndjson.gz"
	}
	return ".ndjson"
}

// Sort pulls every row out of src, sorts it by composite key (ties broken
// by original position), and returns a restartable, file-backed
// document.Source holding the result. The caller owns the returned
// source's backing file and must call its Remove when done with it.
func Sort(src document.Source, opts Options) (*FileSource, error) {
	opts = opts.withDefaults()

	iter, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("extsort: open source: %w", err)
	}
	defer iter.Close()

	rs, err := newRunSet(opts.TempDir)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	suffix := runSuffix(opts.Compression)

	var (
		buf      []document.Row
		bufBytes int64
		runPaths []string
	)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		sortRows(buf)
		path := rs.newRunPath(suffix)
		if err := writeRun(path, buf, opts.Compression); err != nil {
			return fmt.Errorf("extsort: flush run: %w", err)
		}
		if opts.Logger != nil {
			opts.Logger.Printf("extsort: flushed run %s (%s, %d rows)",
				path, humanize.Bytes(uint64(bufBytes)), len(buf))
		}
		runPaths = append(runPaths, path)
		buf = nil
		bufBytes = 0
		return nil
	}

	for {
		row, ok, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("extsort: read row: %w", err)
		}
		if !ok {
			break
		}
		encoded, err := rowcodec.EncodeDocumentRow(row)
		if err != nil {
			return nil, fmt.Errorf("extsort: encode row: %w", err)
		}
		buf = append(buf, row)
		bufBytes += int64(len(encoded)) + 1
		if bufBytes >= opts.BufferSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	outPath, err := newOutputPath(opts.TempDir, suffix)
	if err != nil {
		return nil, err
	}

	if len(runPaths) == 0 {
		// Only the retained buffer exists: emit it directly, no merge pass.
		sortRows(buf)
		if err := writeRun(outPath, buf, opts.Compression); err != nil {
			return nil, fmt.Errorf("extsort: write sorted output: %w", err)
		}
		return &FileSource{cols: src.Columns(), path: outPath, compression: opts.Compression}, nil
	}

	sortRows(buf)
	if err := mergeRuns(runPaths, buf, opts.Compression, outPath); err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("extsort: merge runs: %w", err)
	}
	return &FileSource{cols: src.Columns(), path: outPath, compression: opts.Compression}, nil
}

func newOutputPath(dir, suffix string) (string, error) {
	f, err := os.CreateTemp(dir, "histore-sorted-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("extsort: create output file: %w", err)
	}
	path := f.Name()
	f.Close()
	return path, nil
}

func sortRows(rows []document.Row) {
	sort.Slice(rows, func(i, j int) bool {
		if c := rowkey.CompareComposite(rows[i].Key, rows[j].Key); c != 0 {
			return c < 0
		}
		return rows[i].Position < rows[j].Position
	})
}

func writeRun(path string, rows []document.Row, compression rowcodec.Compression) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := rowcodec.NewWriter(f, compression)
	for _, row := range rows {
		line, eerr := rowcodec.EncodeDocumentRow(row)
		if eerr != nil {
			return eerr
		}
		if werr := w.WriteLine(line); werr != nil {
			return werr
		}
	}
	return w.Close()
}
