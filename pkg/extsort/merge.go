package extsort

import (
	"container/heap"
	"os"

	"github.com/kasuganosora/histore/pkg/document"
	"github.com/kasuganosora/histore/pkg/rowcodec"
	"github.com/kasuganosora/histore/pkg/rowkey"
)

// rowSource is the minimal pull interface the merge phase needs, satisfied
// by both a file-backed run and the in-memory retained buffer.
type rowSource interface {
	Next() (document.Row, bool, error)
	Close() error
}

type heapItem struct {
	row document.Row
	src int
}

type rowHeap []heapItem

func (h rowHeap) Len() int { return len(h) }

func (h rowHeap) Less(i, j int) bool {
	if c := rowkey.CompareComposite(h[i].row.Key, h[j].row.Key); c != 0 {
		return c < 0
	}
	return h[i].row.Position < h[j].row.Position
}

func (h rowHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rowHeap) Push(x any) { *h = append(*h, x.(heapItem)) }

func (h *rowHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeRuns k-way merges the flushed run files at runPaths with the
// retained in-memory buffer (already sorted by the caller), writing the
// result to outPath in the requested compression.
func mergeRuns(runPaths []string, buffered []document.Row, compression rowcodec.Compression, outPath string) (err error) {
	sources := make([]rowSource, 0, len(runPaths)+1)
	defer func() {
		for _, s := range sources {
			if cerr := s.Close(); err == nil {
				err = cerr
			}
		}
	}()

	for _, path := range runPaths {
		f, oerr := os.Open(path)
		if oerr != nil {
			return oerr
		}
		r, rerr := rowcodec.NewReader(f, compression)
		if rerr != nil {
			f.Close()
			return rerr
		}
		sources = append(sources, &fileRowIter{file: f, reader: r})
	}
	if len(buffered) > 0 {
		sources = append(sources, &sliceRowIter{rows: buffered})
	}

	out, cerr := os.Create(outPath)
	if cerr != nil {
		return cerr
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	w := rowcodec.NewWriter(out, compression)

	h := &rowHeap{}
	heap.Init(h)
	for i, s := range sources {
		row, ok, nerr := s.Next()
		if nerr != nil {
			return nerr
		}
		if ok {
			heap.Push(h, heapItem{row: row, src: i})
		}
	}

	for h.Len() > 0 {
		item := heap.Pop(h).(heapItem)
		line, eerr := rowcodec.EncodeDocumentRow(item.row)
		if eerr != nil {
			return eerr
		}
		if werr := w.WriteLine(line); werr != nil {
			return werr
		}
		next, ok, nerr := sources[item.src].Next()
		if nerr != nil {
			return nerr
		}
		if ok {
			heap.Push(h, heapItem{row: next, src: item.src})
		}
	}

	return w.Close()
}
