package xsect

import (
	"fmt"
	"math"
	"strings"
)

// VerticalCoord is the vertical coordinate a cross-section is resampled on.
type VerticalCoord int

const (
	// Pressure levels in hPa, decreasing upwards.
	Pressure VerticalCoord = iota + 1
	// Height levels in m, increasing upwards.
	Height
)

// ParseVerticalCoord parses "pressure" or "height", case-insensitively.
func ParseVerticalCoord(s string) (VerticalCoord, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pressure", "p":
		return Pressure, nil
	case "height", "z":
		return Height, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidVerticalCoordinateKind, s)
	}
}

// Valid reports whether c is Pressure or Height.
func (c VerticalCoord) Valid() bool {
	return c == Pressure || c == Height
}

func (c VerticalCoord) String() string {
	switch c {
	case Pressure:
		return "pressure"
	case Height:
		return "height"
	default:
		return fmt.Sprintf("VerticalCoord(%d)", int(c))
	}
}

// Units returns the units levels of c are given in.
func (c VerticalCoord) Units() string {
	switch c {
	case Pressure:
		return "hPa"
	case Height:
		return "m"
	default:
		return ""
	}
}

// Levels generates the target vertical levels from bottom to top every
// interval. Pressure levels descend and height levels ascend; top is included
// when it falls on the interval grid.
func Levels(kind VerticalCoord, bottom, top, interval float64) ([]float64, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerticalCoordinateKind, kind)
	}
	if interval <= 0 || math.IsNaN(interval) || math.IsInf(interval, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevelStep, interval)
	}
	if math.IsNaN(bottom) || math.IsNaN(top) {
		return nil, fmt.Errorf("%w: bottom %v, top %v", ErrEmptyLevels, bottom, top)
	}
	sign := 1.0
	if kind == Pressure {
		sign = -1
	}
	span := sign * (top - bottom)
	if span < 0 {
		return nil, fmt.Errorf("%w: %s from %v to %v", ErrEmptyLevels, kind, bottom, top)
	}
	// Tolerate rounding so that a top on the grid is kept.
	n := int(math.Floor(span/interval+1e-9)) + 1
	levels := make([]float64, n)
	for i := range levels {
		levels[i] = bottom + sign*float64(i)*interval
	}
	return levels, nil
}

// CheckLevels verifies that levels are non-empty and strictly monotonic in
// the direction of kind.
func CheckLevels(kind VerticalCoord, levels []float64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidVerticalCoordinateKind, kind)
	}
	if len(levels) == 0 {
		return ErrEmptyLevels
	}
	for i, l := range levels {
		if math.IsNaN(l) {
			return fmt.Errorf("%w: level %d is NaN", ErrNonMonotonicLevels, i)
		}
		if i == 0 {
			continue
		}
		prev := levels[i-1]
		if (kind == Pressure && l >= prev) || (kind == Height && l <= prev) {
			return fmt.Errorf("%w: %s level %d (%v) after %v", ErrNonMonotonicLevels, kind, i, l, prev)
		}
	}
	return nil
}
