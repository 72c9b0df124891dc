// Package jsonldoc adapts a line-delimited JSON file to the
// document.Source contract, mirroring the teacher's pkg/resource/jsonl
// adapter's bufio.Scanner-over-encoding/json shape but restructured as a
// restartable Open().
package jsonldoc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/kasuganosora/histore/pkg/document"
)

// Options configures how a JSONL file is read.
type Options struct {
	SkipErrors bool
	Reader     document.Reader // defaults to document.DefaultReader{}
}

// Source is a document.Source backed by a line-delimited JSON file. Columns
// are discovered by scanning the file once at Open time and taking the
// union of every object's keys, sorted for determinism.
type Source struct {
	path string
	opts Options
	cols []document.Column
	ids  map[string]int
}

// Open scans path once to discover the column set, then returns a ready
// Source. Each call to (*Source).Open re-scans the file from the start.
func Open(path string, opts Options) (*Source, error) {
	if opts.Reader == nil {
		opts.Reader = document.DefaultReader{}
	}
	seen, err := discoverColumnNames(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]document.Column, len(names))
	ids := make(map[string]int, len(names))
	for i, name := range names {
		cols[i] = document.Column{ID: i, Name: name}
		ids[name] = i
	}
	return &Source{path: path, opts: opts, cols: cols, ids: ids}, nil
}

func discoverColumnNames(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jsonldoc: open %q: %w", path, err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			continue
		}
		for name := range obj {
			seen[name] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonldoc: scan %q: %w", path, err)
	}
	return seen, nil
}

func (s *Source) Columns() []document.Column { return s.cols }

func (s *Source) Open() (document.RowIter, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("jsonldoc: open %q: %w", s.path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &rowIter{f: f, scanner: scanner, src: s}, nil
}

type rowIter struct {
	f       *os.File
	scanner *bufio.Scanner
	src     *Source
	pos     int
}

func (it *rowIter) Next() (document.Row, bool, error) {
	for it.scanner.Scan() {
		line := it.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			if it.src.opts.SkipErrors {
				continue
			}
			return document.Row{}, false, fmt.Errorf("jsonldoc: decode line %d: %w", it.pos, err)
		}

		cells := make(map[int]any, len(obj))
		for name, v := range obj {
			id, ok := it.src.ids[name]
			if !ok {
				continue
			}
			cells[id] = v
		}

		raw := document.RawRow{Position: it.pos, RowID: -1, HasRowID: false, Cells: cells}
		key, err := it.src.opts.Reader.Key(raw)
		if err != nil {
			return document.Row{}, false, fmt.Errorf("jsonldoc: derive key at position %d: %w", it.pos, err)
		}

		row := document.Row{Position: it.pos, Key: key, Cells: cells}
		it.pos++
		return row, true, nil
	}
	if err := it.scanner.Err(); err != nil {
		return document.Row{}, false, fmt.Errorf("jsonldoc: scan: %w", err)
	}
	return document.Row{}, false, nil
}

func (it *rowIter) Close() error {
	return it.f.Close()
}
