package timeindex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2023, 8, 21, 0, 0, 0, 0, time.UTC)

func regular(n int, step time.Duration) []time.Time {
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = t0.Add(time.Duration(i) * step)
	}
	return ts
}

func TestNewConstantStepIsIdentity(t *testing.T) {
	native := regular(7, 10*time.Minute)

	idx, err := New(native)
	require.NoError(t, err)

	assert.Equal(t, native, idx.Times())
	assert.Equal(t, 10*time.Minute, idx.Step())
	for i, ts := range native {
		f, err := idx.Frame(ts)
		require.NoError(t, err)
		assert.Equal(t, i, f)
	}
}

func TestNewCleansJitter(t *testing.T) {
	jitter := []time.Duration{0, -2 * time.Second, 3 * time.Second, -1 * time.Second, 2 * time.Second, -3 * time.Second}
	native := regular(len(jitter), 10*time.Minute)
	for i := range native {
		native[i] = native[i].Add(jitter[i])
	}

	idx, err := New(native)
	require.NoError(t, err)

	assert.Equal(t, regular(len(native), 10*time.Minute), idx.Times())
	assert.Equal(t, len(native), idx.Len())

	f, err := idx.Frame(t0.Add(30 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, f)

	_, err = idx.Frame(native[1])
	assert.ErrorIs(t, err, ErrUnknownTimestamp, "jittered native values are not on the clean axis")
}

func TestNewRejectsBadAxes(t *testing.T) {
	testCases := []struct {
		name   string
		native []time.Time
	}{
		{"empty", nil},
		{"single", []time.Time{t0}},
		{"zero step", []time.Time{t0, t0.Add(10 * time.Second)}},
		{"decreasing", []time.Time{t0, t0.Add(-time.Hour)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.native)
			assert.ErrorIs(t, err, ErrInvalidTimeAxis)
		})
	}
}

func TestFrameUnknownTimestamp(t *testing.T) {
	idx, err := New(regular(3, time.Hour))
	require.NoError(t, err)

	_, err = idx.Frame(t0.Add(30 * time.Minute))
	assert.ErrorIs(t, err, ErrUnknownTimestamp)
	_, err = idx.Frame(t0.Add(3 * time.Hour))
	assert.ErrorIs(t, err, ErrUnknownTimestamp)
}

func TestFrameIgnoresLocation(t *testing.T) {
	idx, err := New(regular(3, time.Hour))
	require.NoError(t, err)

	jst := time.FixedZone("JST", 9*60*60)
	f, err := idx.Frame(t0.Add(time.Hour).In(jst))
	require.NoError(t, err)
	assert.Equal(t, 1, f)
}
