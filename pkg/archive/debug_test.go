package archive

import (
	"strings"
	"testing"

	"github.com/kasuganosora/histore/pkg/archivestore"
	"github.com/kasuganosora/histore/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugDumpRendersPositionsAndValueHistory(t *testing.T) {
	f := newTestFacade(t)

	doc0 := &document.Slice{
		Cols: []document.Column{{ID: colAge, Name: "age"}},
		Rows: []document.Row{docRow(0, "alice", 23)},
	}
	_, err := f.Commit(doc0, archivestore.VersionMeta{}, nil)
	require.NoError(t, err)

	doc1 := &document.Slice{
		Cols: []document.Column{{ID: colAge, Name: "age"}},
		Rows: []document.Row{docRow(0, "alice", 24)},
	}
	_, err = f.Commit(doc1, archivestore.VersionMeta{}, nil)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, f.DebugDump(&buf, 0, 1))
	out := buf.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "position=0")
	assert.Contains(t, out, "col=0 value=23")
	assert.Contains(t, out, "col=0 value=24")
}

func TestDebugDumpFiltersOutsideVersionRange(t *testing.T) {
	f := newTestFacade(t)

	doc0 := &document.Slice{
		Cols: []document.Column{{ID: colAge, Name: "age"}},
		Rows: []document.Row{docRow(0, "alice", 23)},
	}
	_, err := f.Commit(doc0, archivestore.VersionMeta{}, nil)
	require.NoError(t, err)

	doc1 := &document.Slice{
		Cols: []document.Column{{ID: colAge, Name: "age"}},
		Rows: []document.Row{docRow(0, "alice", 24), docRow(1, "bob", 40)},
	}
	_, err = f.Commit(doc1, archivestore.VersionMeta{}, nil)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, f.DebugDump(&buf, 1, 1))
	out := buf.String()
	assert.Contains(t, out, "bob")
	assert.NotContains(t, out, "col=0 value=23")
	assert.Contains(t, out, "col=0 value=24")
}
