package jsonldoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSONL(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestJSONLSourceDiscoversColumnUnion(t *testing.T) {
	path := writeTempJSONL(t, `{"name":"alice","age":23}
{"name":"bob","city":"nyc"}
`)
	src, err := Open(path, Options{})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, c := range src.Columns() {
		names[c.Name] = true
	}
	assert.True(t, names["name"])
	assert.True(t, names["age"])
	assert.True(t, names["city"])
}

func TestJSONLSourceReadsRows(t *testing.T) {
	path := writeTempJSONL(t, `{"name":"alice"}
{"name":"bob"}
`)
	src, err := Open(path, Options{})
	require.NoError(t, err)

	it, err := src.Open()
	require.NoError(t, err)
	defer it.Close()

	var names []string
	for {
		row, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		for _, c := range src.Columns() {
			if c.Name == "name" {
				names = append(names, row.Cells[c.ID].(string))
			}
		}
	}
	assert.Equal(t, []string{"alice", "bob"}, names)
}

func TestJSONLSourceSkipErrors(t *testing.T) {
	path := writeTempJSONL(t, "{\"name\":\"alice\"}\nnot-json\n{\"name\":\"bob\"}\n")
	src, err := Open(path, Options{SkipErrors: true})
	require.NoError(t, err)

	it, err := src.Open()
	require.NoError(t, err)
	defer it.Close()

	var count int
	for {
		_, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}
