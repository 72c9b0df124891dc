package extsort

import (
	"fmt"
	"os"
	"path/filepath"
)

// runSet scopes the lifetime of the temporary run files produced during the
// split phase to the sort operation: every path handed out by newRunPath is
// removed on Close unless the caller calls release on it first. This is
// adapted from the start/stop lifecycle of a background maintenance loop
// into a lifecycle for on-disk scratch files — same "own a resource, clean
// it up on every exit path" shape, different resource.
type runSet struct {
	dir  string
	next int
}

func newRunSet(parent string) (*runSet, error) {
	dir, err := os.MkdirTemp(parent, "histore-sort-runs-")
	if err != nil {
		return nil, fmt.Errorf("extsort: create run directory: %w", err)
	}
	return &runSet{dir: dir}, nil
}

// newRunPath allocates a fresh path for a run file inside the set's private
// directory. The final merged output is never allocated through a runSet:
// it lives outside this directory so Close can unconditionally reclaim
// everything split-phase wrote.
func (rs *runSet) newRunPath(suffix string) string {
	rs.next++
	return filepath.Join(rs.dir, fmt.Sprintf("run-%05d%s", rs.next, suffix))
}

// Close removes every run file and the set's private directory. Safe to
// call multiple times.
func (rs *runSet) Close() error {
	return os.RemoveAll(rs.dir)
}
