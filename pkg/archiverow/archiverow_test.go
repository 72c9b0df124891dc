package archiverow

import (
	"testing"

	"github.com/kasuganosora/histore/pkg/rowkey"
	"github.com/kasuganosora/histore/pkg/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTS(t *testing.T, ivs ...timestamp.Interval) timestamp.Timestamp {
	t.Helper()
	ts, err := timestamp.New(ivs...)
	require.NoError(t, err)
	return ts
}

func TestPresenceTimestampUnionsPositions(t *testing.T) {
	row := &Row{
		Key: rowkey.Composite{rowkey.Number(1)},
		Positions: []PositionEntry{
			{Position: 0, TS: mustTS(t, timestamp.Interval{Start: 0, End: 1})},
			{Position: 1, TS: mustTS(t, timestamp.Interval{Start: 3, End: 3})},
		},
	}
	presence := row.PresenceTimestamp()
	assert.True(t, presence.Contains(0))
	assert.True(t, presence.Contains(1))
	assert.False(t, presence.Contains(2))
	assert.True(t, presence.Contains(3))
}

func TestPositionAtScansBackward(t *testing.T) {
	row := &Row{
		Positions: []PositionEntry{
			{Position: 0, TS: timestamp.Single(0)},
			{Position: 2, TS: timestamp.Single(1)},
		},
	}
	pos, ok := row.PositionAt(0)
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	pos, ok = row.PositionAt(1)
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	_, ok = row.PositionAt(2)
	assert.False(t, ok)
}

func TestValueAtScansBackward(t *testing.T) {
	row := &Row{
		Values: map[int][]ValueEntry{
			0: {
				{Value: "a", TS: timestamp.Single(0)},
				{Value: "b", TS: timestamp.Single(1)},
			},
		},
	}
	v, ok := row.ValueAt(0, 0)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = row.ValueAt(0, 1)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = row.ValueAt(0, 2)
	assert.False(t, ok)

	_, ok = row.ValueAt(1, 0)
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	row := &Row{
		Key: rowkey.Composite{rowkey.Number(1)},
		Positions: []PositionEntry{
			{Position: 0, TS: timestamp.Single(0)},
		},
		Values: map[int][]ValueEntry{
			0: {{Value: "a", TS: timestamp.Single(0)}},
		},
	}
	clone := row.Clone()
	clone.Positions[0].Position = 99
	clone.Values[0][0].Value = "z"

	assert.Equal(t, 0, row.Positions[0].Position)
	assert.Equal(t, "a", row.Values[0][0].Value)
	assert.Equal(t, 99, clone.Positions[0].Position)
	assert.Equal(t, "z", clone.Values[0][0].Value)
}
