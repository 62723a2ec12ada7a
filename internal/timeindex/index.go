// Package timeindex maps the time axis of a model-output dataset to frame
// offsets.
package timeindex

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidTimeAxis is returned when a clean time axis cannot be
	// derived from the native timestamps.
	ErrInvalidTimeAxis = errors.New("invalid time axis")
	// ErrUnknownTimestamp is returned for a timestamp that is not on the
	// regenerated time axis.
	ErrUnknownTimestamp = errors.New("unknown timestamp")
)

// Index is the evenly spaced time axis of a dataset together with the native
// frame offset of every timestamp on it. It is immutable once built.
type Index struct {
	times  []time.Time
	step   time.Duration
	frames map[int64]int
}

// New builds an Index from the dataset's native timestamps. The step is the
// difference between the first two timestamps rounded to whole minutes, and
// the axis is regenerated from the first to the last timestamp with that
// step, so rounding noise in the native values does not leak into frame
// lookups.
func New(native []time.Time) (*Index, error) {
	if len(native) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 timestamps, got %d", ErrInvalidTimeAxis, len(native))
	}
	step := native[1].Sub(native[0]).Round(time.Minute)
	if step <= 0 {
		return nil, fmt.Errorf("%w: non-positive step %s between %s and %s",
			ErrInvalidTimeAxis, step, native[0].Format(time.RFC3339), native[1].Format(time.RFC3339))
	}
	first, last := native[0], native[len(native)-1]
	n := int(math.Round(float64(last.Sub(first))/float64(step))) + 1
	if n < 2 {
		return nil, fmt.Errorf("%w: last timestamp %s is not after first %s",
			ErrInvalidTimeAxis, last.Format(time.RFC3339), first.Format(time.RFC3339))
	}
	// Positions past the native frame count have no frame to map to.
	n = min(n, len(native))

	idx := &Index{
		times:  make([]time.Time, n),
		step:   step,
		frames: make(map[int64]int, n),
	}
	for i := range n {
		t := first.Add(time.Duration(i) * step)
		idx.times[i] = t
		idx.frames[t.UnixNano()] = i
	}
	return idx, nil
}

// Times returns the regenerated time axis in frame order.
func (idx *Index) Times() []time.Time {
	return append([]time.Time(nil), idx.times...)
}

// Step returns the time step of the axis.
func (idx *Index) Step() time.Duration {
	return idx.step
}

// Len returns the number of timestamps on the axis.
func (idx *Index) Len() int {
	return len(idx.times)
}

// Frame returns the native frame offset of t.
func (idx *Index) Frame(t time.Time) (int, error) {
	f, ok := idx.frames[t.UnixNano()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTimestamp, t.UTC().Format(time.RFC3339Nano))
	}
	return f, nil
}
