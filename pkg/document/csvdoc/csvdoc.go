// Package csvdoc adapts a delimited-text file to the document.Source
// contract. It is a thin, restartable reimplementation of the shape found
// in the teacher's pkg/resource/csv adapter: a configurable delimiter and
// header flag over encoding/csv.
package csvdoc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kasuganosora/histore/pkg/document"
)

// Options configures how a CSV file is read.
type Options struct {
	Delimiter rune // defaults to ',' when zero
	HasHeader bool
	Reader    document.Reader // defaults to document.DefaultReader{}
}

// Source is a document.Source backed by a CSV file on disk. Every Open call
// re-opens the file from the beginning, satisfying restartability.
type Source struct {
	path string
	opts Options
	cols []document.Column
}

// Open inspects the file's header row (if any) to discover its columns and
// returns a ready-to-stream Source.
func Open(path string, opts Options) (*Source, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.Reader == nil {
		opts.Reader = document.DefaultReader{}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvdoc: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = opts.Delimiter

	var cols []document.Column
	if opts.HasHeader {
		header, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("csvdoc: read header of %q: %w", path, err)
		}
		cols = make([]document.Column, len(header))
		for i, name := range header {
			cols[i] = document.Column{ID: i, Name: name}
		}
	} else {
		record, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("csvdoc: peek first row of %q: %w", path, err)
		}
		cols = make([]document.Column, len(record))
		for i := range record {
			cols[i] = document.Column{ID: i, Name: fmt.Sprintf("col%d", i)}
		}
	}

	return &Source{path: path, opts: opts, cols: cols}, nil
}

func (s *Source) Columns() []document.Column { return s.cols }

func (s *Source) Open() (document.RowIter, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("csvdoc: open %q: %w", s.path, err)
	}
	r := csv.NewReader(f)
	r.Comma = s.opts.Delimiter
	if s.opts.HasHeader {
		if _, err := r.Read(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvdoc: skip header of %q: %w", s.path, err)
		}
	}
	return &rowIter{f: f, r: r, cols: s.cols, reader: s.opts.Reader}, nil
}

type rowIter struct {
	f      *os.File
	r      *csv.Reader
	cols   []document.Column
	reader document.Reader
	pos    int
}

func (it *rowIter) Next() (document.Row, bool, error) {
	record, err := it.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return document.Row{}, false, nil
		}
		return document.Row{}, false, fmt.Errorf("csvdoc: read row: %w", err)
	}

	cells := make(map[int]any, len(record))
	for i, v := range record {
		if i >= len(it.cols) {
			break
		}
		cells[it.cols[i].ID] = v
	}

	raw := document.RawRow{Position: it.pos, RowID: -1, HasRowID: false, Cells: cells}
	key, err := it.reader.Key(raw)
	if err != nil {
		return document.Row{}, false, fmt.Errorf("csvdoc: derive key at position %d: %w", it.pos, err)
	}

	row := document.Row{Position: it.pos, Key: key, Cells: cells}
	it.pos++
	return row, true, nil
}

func (it *rowIter) Close() error {
	return it.f.Close()
}
