package extsort

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kasuganosora/histore/pkg/document"
	"github.com/kasuganosora/histore/pkg/rowkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tenRowDataset mirrors scenario S4: 10 rows keyed on (col1, col0) with a
// composite key, sorted ascending on both components.
func tenRowDataset(t *testing.T) *document.Slice {
	t.Helper()
	cols := []document.Column{{ID: 0, Name: "col0"}, {ID: 1, Name: "col1"}}
	raw := [][2]int{
		{5, 2}, {3, 1}, {9, 3}, {1, 1}, {7, 2},
		{0, 0}, {8, 3}, {2, 0}, {6, 2}, {4, 1},
	}
	rows := make([]document.Row, len(raw))
	for i, pair := range raw {
		rows[i] = document.Row{
			Position: i,
			Key:      rowkey.Composite{rowkey.Number(float64(pair[1])), rowkey.Number(float64(pair[0]))},
			Cells:    map[int]any{0: float64(pair[0]), 1: float64(pair[1])},
		}
	}
	return &document.Slice{Cols: cols, Rows: rows}
}

func readAllKeys(t *testing.T, src document.Source) []rowkey.Composite {
	t.Helper()
	it, err := src.Open()
	require.NoError(t, err)
	defer it.Close()

	var keys []rowkey.Composite
	for {
		row, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, row.Key)
	}
	return keys
}

func assertSorted(t *testing.T, keys []rowkey.Composite) {
	t.Helper()
	for i := 1; i < len(keys); i++ {
		assert.LessOrEqual(t, rowkey.CompareComposite(keys[i-1], keys[i]), 0)
	}
}

func TestSortRobustnessAcrossBufferSizes(t *testing.T) {
	src := tenRowDataset(t)

	var reference []rowkey.Composite
	for _, bufSize := range []int64{20, 200, 16 * 1024 * 1024} {
		out, err := Sort(src, Options{BufferSize: bufSize, TempDir: t.TempDir()})
		require.NoError(t, err)

		keys := readAllKeys(t, out)
		assertSorted(t, keys)

		if reference == nil {
			reference = keys
		} else {
			require.Len(t, keys, len(reference))
			for i := range keys {
				assert.Equal(t, 0, rowkey.CompareComposite(reference[i], keys[i]))
			}
		}
		require.NoError(t, out.Remove())
	}
}

func TestSortForcesMultipleRuns(t *testing.T) {
	src := tenRowDataset(t)
	out, err := Sort(src, Options{BufferSize: 20, TempDir: t.TempDir()})
	require.NoError(t, err)
	defer out.Remove()

	keys := readAllKeys(t, out)
	require.Len(t, keys, 10)
	assertSorted(t, keys)
}

func TestSortSingleBufferSkipsMergePass(t *testing.T) {
	src := tenRowDataset(t)
	out, err := Sort(src, Options{BufferSize: 16 * 1024 * 1024, TempDir: t.TempDir()})
	require.NoError(t, err)
	defer out.Remove()

	keys := readAllKeys(t, out)
	assertSorted(t, keys)
}

func TestSortIsRestartable(t *testing.T) {
	src := tenRowDataset(t)
	out, err := Sort(src, Options{BufferSize: 20, TempDir: t.TempDir()})
	require.NoError(t, err)
	defer out.Remove()

	first := readAllKeys(t, out)
	second := readAllKeys(t, out)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, 0, rowkey.CompareComposite(first[i], second[i]))
	}
}

func TestSortCleansUpRunFiles(t *testing.T) {
	tmp := t.TempDir()
	src := tenRowDataset(t)
	out, err := Sort(src, Options{BufferSize: 20, TempDir: tmp})
	require.NoError(t, err)
	defer out.Remove()

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	// Only the final sorted output file should remain; run directories
	// are removed once the merge completes.
	assert.Len(t, entries, 1)
	assert.Equal(t, out.Path(), filepath.Join(tmp, entries[0].Name()))
}

func TestSortBreaksTiesByPosition(t *testing.T) {
	cols := []document.Column{{ID: 0, Name: "col0"}}
	rows := []document.Row{
		{Position: 0, Key: rowkey.Composite{rowkey.Number(1)}, Cells: map[int]any{0: "a"}},
		{Position: 1, Key: rowkey.Composite{rowkey.Number(1)}, Cells: map[int]any{0: "b"}},
		{Position: 2, Key: rowkey.Composite{rowkey.Number(0)}, Cells: map[int]any{0: "c"}},
	}
	src := &document.Slice{Cols: cols, Rows: rows}

	out, err := Sort(src, Options{BufferSize: 16 * 1024 * 1024, TempDir: t.TempDir()})
	require.NoError(t, err)
	defer out.Remove()

	it, err := out.Open()
	require.NoError(t, err)
	defer it.Close()

	var cells []any
	for {
		row, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		cells = append(cells, row.Cells[0])
	}
	assert.Equal(t, []any{"c", "a", "b"}, cells)
}
