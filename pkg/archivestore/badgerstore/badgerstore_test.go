package badgerstore

import (
	"testing"

	"github.com/kasuganosora/histore/pkg/archiverow"
	"github.com/kasuganosora/histore/pkg/archivestore"
	"github.com/kasuganosora/histore/pkg/document"
	"github.com/kasuganosora/histore/pkg/rowcodec"
	"github.com/kasuganosora/histore/pkg/rowkey"
	"github.com/kasuganosora/histore/pkg/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aliceRow() *archiverow.Row {
	return &archiverow.Row{
		Key:       rowkey.Composite{rowkey.String("alice")},
		Positions: []archiverow.PositionEntry{{Position: 0, TS: timestamp.Single(0)}},
		Values:    map[int][]archiverow.ValueEntry{0: {{Value: float64(23), TS: timestamp.Single(0)}}},
	}
}

func TestBadgerStoreCommitAndReread(t *testing.T) {
	s, err := Open(t.TempDir(), rowcodec.CompressionIdentity)
	require.NoError(t, err)
	defer s.Close()

	w, err := s.GetWriter()
	require.NoError(t, err)
	require.NoError(t, w.WriteRow(aliceRow()))
	require.NoError(t, w.Commit(archivestore.VersionMeta{Version: 0},
		[]document.Column{{ID: 0, Name: "age"}}))

	r, err := s.GetReader()
	require.NoError(t, err)
	defer r.Close()

	row, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", row.Key[0].StringValue())
	assert.Equal(t, float64(23), row.Values[0][0].Value)

	_, ok, err = r.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, r.Versions(), 1)
	require.Len(t, r.SchemaHistory(), 1)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, rowcodec.CompressionIdentity)
	require.NoError(t, err)
	w, err := s.GetWriter()
	require.NoError(t, err)
	require.NoError(t, w.WriteRow(aliceRow()))
	require.NoError(t, w.Commit(archivestore.VersionMeta{Version: 0}, nil))
	require.NoError(t, s.Close())

	reopened, err := Open(dir, rowcodec.CompressionIdentity)
	require.NoError(t, err)
	defer reopened.Close()

	r, err := reopened.GetReader()
	require.NoError(t, err)
	defer r.Close()
	row, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", row.Key[0].StringValue())
	require.Len(t, r.Versions(), 1)
}

func TestBadgerStoreWriterBusy(t *testing.T) {
	s, err := Open(t.TempDir(), rowcodec.CompressionIdentity)
	require.NoError(t, err)
	defer s.Close()

	w1, err := s.GetWriter()
	require.NoError(t, err)

	_, err = s.GetWriter()
	require.Error(t, err)

	require.NoError(t, w1.Rollback())
	_, err = s.GetWriter()
	require.NoError(t, err)
}

func TestBadgerStoreSecondCommitReplacesRows(t *testing.T) {
	s, err := Open(t.TempDir(), rowcodec.CompressionIdentity)
	require.NoError(t, err)
	defer s.Close()

	w, err := s.GetWriter()
	require.NoError(t, err)
	require.NoError(t, w.WriteRow(aliceRow()))
	require.NoError(t, w.Commit(archivestore.VersionMeta{Version: 0}, nil))

	bob := &archiverow.Row{
		Key:       rowkey.Composite{rowkey.String("bob")},
		Positions: []archiverow.PositionEntry{{Position: 0, TS: timestamp.Single(1)}},
		Values:    map[int][]archiverow.ValueEntry{0: {{Value: float64(32), TS: timestamp.Single(1)}}},
	}
	w2, err := s.GetWriter()
	require.NoError(t, err)
	require.NoError(t, w2.WriteRow(bob))
	require.NoError(t, w2.Commit(archivestore.VersionMeta{Version: 1}, nil))

	r, err := s.GetReader()
	require.NoError(t, err)
	defer r.Close()

	var keys []string
	for {
		row, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, row.Key[0].StringValue())
	}
	assert.Equal(t, []string{"bob"}, keys)
	assert.Len(t, r.Versions(), 2)
}
