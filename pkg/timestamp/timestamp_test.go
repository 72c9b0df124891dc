package timestamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCoalescing(t *testing.T) {
	ts, err := Single(1).Append(2)
	require.NoError(t, err)
	ts, err = ts.Append(3)
	require.NoError(t, err)
	assert.Equal(t, "1-3", ts.String())

	withGap, err := ts.Append(5)
	require.NoError(t, err)
	assert.Equal(t, "1-3,5", withGap.String())

	filled, err := ts.Append(4)
	require.NoError(t, err)
	assert.Equal(t, "1-4", filled.String())
}

func TestAppendNonMonotonic(t *testing.T) {
	ts := Single(3)
	_, err := ts.Append(3)
	require.Error(t, err)
	var nonMono *NonMonotonicError
	require.ErrorAs(t, err, &nonMono)

	_, err = ts.Append(2)
	require.Error(t, err)
}

func TestContains(t *testing.T) {
	ts, err := New(Interval{1, 3}, Interval{5, 5}, Interval{7, 9})
	require.NoError(t, err)

	for _, v := range []int{1, 2, 3, 5, 7, 8, 9} {
		assert.True(t, ts.Contains(v), "expected %d to be contained", v)
	}
	for _, v := range []int{0, 4, 6, 10} {
		assert.False(t, ts.Contains(v), "expected %d to be absent", v)
	}
}

func TestNewRejectsOverlapAndAdjacency(t *testing.T) {
	_, err := New(Interval{1, 3}, Interval{3, 5})
	require.Error(t, err)

	_, err = New(Interval{1, 3}, Interval{4, 5})
	require.Error(t, err, "adjacent intervals must be coalesced by the caller")

	_, err = New(Interval{5, 1})
	require.Error(t, err)
}

func TestIsSubsetOf(t *testing.T) {
	whole, err := New(Interval{1, 10})
	require.NoError(t, err)
	part, err := New(Interval{2, 4}, Interval{6, 6})
	require.NoError(t, err)

	assert.True(t, part.IsSubsetOf(whole))
	assert.False(t, whole.IsSubsetOf(part))
	assert.True(t, whole.IsSubsetOf(whole), "IsSubsetOf is non-strict")
	assert.False(t, whole.IsProperSubsetOf(whole))
	assert.True(t, part.IsProperSubsetOf(whole))
}

func TestIntersects(t *testing.T) {
	a, _ := New(Interval{1, 3}, Interval{10, 12})
	b, _ := New(Interval{4, 5})
	c, _ := New(Interval{3, 3})

	assert.False(t, a.Intersects(b))
	assert.True(t, a.Intersects(c))
}

func TestUnionCoalescesAcrossBoundary(t *testing.T) {
	a, _ := New(Interval{1, 3})
	b, _ := New(Interval{4, 6})
	u := a.Union(b)
	assert.Equal(t, "1-6", u.String())

	c, _ := New(Interval{1, 2}, Interval{8, 9})
	d, _ := New(Interval{4, 5})
	u2 := c.Union(d)
	assert.Equal(t, "1-2,4-5,8-9", u2.String())
}

func TestStringRoundTrip(t *testing.T) {
	ts, err := New(Interval{1, 3}, Interval{5, 5}, Interval{7, 9})
	require.NoError(t, err)
	parsed, err := Parse(ts.String())
	require.NoError(t, err)
	assert.True(t, ts.Equals(parsed))
}

func TestJSONRoundTrip(t *testing.T) {
	ts, err := New(Interval{1, 3}, Interval{5, 5})
	require.NoError(t, err)
	data, err := ts.MarshalJSON()
	require.NoError(t, err)

	var out Timestamp
	require.NoError(t, out.UnmarshalJSON(data))
	assert.True(t, ts.Equals(out))
}

func TestEmptyTimestamp(t *testing.T) {
	var ts Timestamp
	assert.True(t, ts.IsEmpty())
	assert.Equal(t, "", ts.String())
	assert.False(t, ts.Contains(0))
}

func TestAppendSequencePropertyScenario(t *testing.T) {
	// Testable property 2: append strictly-increasing versions, every
	// appended version is contained, and none outside the set is.
	versions := []int{0, 1, 2, 5, 6, 9}
	ts := Empty()
	var err error
	for _, v := range versions {
		ts, err = ts.Append(v)
		require.NoError(t, err)
	}
	for _, v := range versions {
		assert.True(t, ts.Contains(v))
	}
	for _, v := range []int{3, 4, 7, 8, 10, -1} {
		assert.False(t, ts.Contains(v))
	}
}
