package extsort

import (
	"os"

	"github.com/kasuganosora/histore/pkg/document"
	"github.com/kasuganosora/histore/pkg/rowcodec"
)

// FileSource is the sorted output of Sort: a restartable document.Source
// backed by an ndjson file on disk. Per spec.md §4 "Ownership of temp
// files", the file is transferred to the caller, which owns its lifetime
// from here on — call Remove when it is no longer needed.
type FileSource struct {
	cols        []document.Column
	path        string
	compression rowcodec.Compression
}

func (s *FileSource) Columns() []document.Column { return s.cols }

// Path returns the backing file's path.
func (s *FileSource) Path() string { return s.path }

// Remove deletes the backing file. Safe to call once the source is no
// longer needed.
func (s *FileSource) Remove() error { return os.Remove(s.path) }

// Open re-reads the file from the start, so FileSource can be opened more
// than once.
func (s *FileSource) Open() (document.RowIter, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	r, err := rowcodec.NewReader(f, s.compression)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileRowIter{file: f, reader: r}, nil
}

type fileRowIter struct {
	file   *os.File
	reader *rowcodec.Reader
}

func (it *fileRowIter) Next() (document.Row, bool, error) {
	line, ok, err := it.reader.Next()
	if err != nil || !ok {
		return document.Row{}, false, err
	}
	row, err := rowcodec.DecodeDocumentRow(line)
	if err != nil {
		return document.Row{}, false, err
	}
	return row, true, nil
}

func (it *fileRowIter) Close() error {
	rerr := it.reader.Close()
	ferr := it.file.Close()
	if rerr != nil {
		return rerr
	}
	return ferr
}

// sliceRowIter adapts a pre-sorted, in-memory slice to the reader interface
// the merge phase uses, so the retained final buffer can participate in the
// k-way merge alongside the file-backed runs without being written out.
type sliceRowIter struct {
	rows []document.Row
	pos  int
}

func (it *sliceRowIter) Next() (document.Row, bool, error) {
	if it.pos >= len(it.rows) {
		return document.Row{}, false, nil
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true, nil
}

func (it *sliceRowIter) Close() error { return nil }
