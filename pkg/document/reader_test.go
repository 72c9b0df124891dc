package document

import (
	"testing"

	"github.com/kasuganosora/histore/pkg/rowkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultReaderNumberKey(t *testing.T) {
	k, err := DefaultReader{}.Key(RawRow{Position: 0, RowID: 7, HasRowID: true})
	require.NoError(t, err)
	require.Len(t, k, 1)
	assert.Equal(t, rowkey.KindNumber, k[0].Kind())
	assert.Equal(t, float64(7), k[0].NumberValue())
}

func TestDefaultReaderNewRowForSentinel(t *testing.T) {
	k, err := DefaultReader{}.Key(RawRow{Position: 0, RowID: -1, HasRowID: true})
	require.NoError(t, err)
	require.Len(t, k, 1)
	assert.Equal(t, rowkey.KindNewRow, k[0].Kind())
}

func TestDefaultReaderNewRowWhenAbsent(t *testing.T) {
	k, err := DefaultReader{}.Key(RawRow{Position: 3})
	require.NoError(t, err)
	assert.Equal(t, rowkey.KindNewRow, k[0].Kind())
}

func TestDefaultReaderStableAcrossReopen(t *testing.T) {
	reader := DefaultReader{}
	row := RawRow{Position: 4, RowID: -1, HasRowID: true}
	k1, err := reader.Key(row)
	require.NoError(t, err)
	k2, err := reader.Key(row)
	require.NoError(t, err)
	assert.True(t, rowkey.CompareComposite(k1, k2) == 0)
}

func TestAnnotatedReaderProjectsCells(t *testing.T) {
	reader := AnnotatedReader{KeyColumnIDs: []int{1, 0}}
	k, err := reader.Key(RawRow{Position: 0, Cells: map[int]any{0: "alice", 1: 23}})
	require.NoError(t, err)
	require.Len(t, k, 2)
	assert.Equal(t, rowkey.KindNumber, k[0].Kind())
	assert.Equal(t, rowkey.KindString, k[1].Kind())
}

func TestAnnotatedReaderMissingCellBecomesNull(t *testing.T) {
	reader := AnnotatedReader{KeyColumnIDs: []int{0}}
	k, err := reader.Key(RawRow{Position: 2, Cells: map[int]any{}})
	require.NoError(t, err)
	require.Len(t, k, 1)
	assert.Equal(t, rowkey.KindNull, k[0].Kind())
}

func TestAnnotatedReaderStableAcrossReopen(t *testing.T) {
	reader := AnnotatedReader{KeyColumnIDs: []int{0}}
	row := RawRow{Position: 5, Cells: map[int]any{}}
	k1, err := reader.Key(row)
	require.NoError(t, err)
	k2, err := reader.Key(row)
	require.NoError(t, err)
	assert.True(t, rowkey.CompareComposite(k1, k2) == 0)
}
